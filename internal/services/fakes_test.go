package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-user-accounts/internal/apperrors"
	"github.com/sbilibin2017/gw-user-accounts/internal/hasher"
	"github.com/sbilibin2017/gw-user-accounts/internal/jwt"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
	"github.com/sbilibin2017/gw-user-accounts/internal/repositories"
	"github.com/segmentio/kafka-go"
	"golang.org/x/crypto/bcrypt"
)

// memoryUsers is an in-memory users table with the same conflict and
// compare-and-swap semantics as the Postgres repositories.
type memoryUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.UserDB
	subs  map[[2]uuid.UUID]struct{}

	countCalls int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		users: make(map[uuid.UUID]*models.UserDB),
		subs:  make(map[[2]uuid.UUID]struct{}),
	}
}

func copyUser(u *models.UserDB) *models.UserDB {
	c := *u
	if u.RefreshToken != nil {
		t := *u.RefreshToken
		c.RefreshToken = &t
	}
	if u.CoverImageURL != nil {
		v := *u.CoverImageURL
		c.CoverImageURL = &v
	}
	return &c
}

func (m *memoryUsers) GetByUsernameOrEmail(ctx context.Context, username, email *string) (*models.UserDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var byEmail *models.UserDB
	for _, u := range m.users {
		if username != nil && u.Username == *username {
			return copyUser(u), nil
		}
		if email != nil && u.Email == *email {
			byEmail = u
		}
	}
	if byEmail == nil {
		return nil, nil
	}
	return copyUser(byEmail), nil
}

func (m *memoryUsers) GetByID(ctx context.Context, userID uuid.UUID) (*models.UserDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (m *memoryUsers) Save(ctx context.Context, nu models.NewUser) (*models.UserDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == nu.Username || u.Email == nu.Email {
			return nil, apperrors.Conflict("User with this username or email already exists")
		}
	}
	now := time.Now()
	u := &models.UserDB{
		UserID:        uuid.New(),
		Username:      nu.Username,
		Email:         nu.Email,
		FullName:      nu.FullName,
		AvatarURL:     nu.AvatarURL,
		CoverImageURL: nu.CoverImageURL,
		PasswordHash:  nu.PasswordHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.users[u.UserID] = u
	return copyUser(u), nil
}

func (m *memoryUsers) SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		if token == nil {
			u.RefreshToken = nil
		} else {
			t := *token
			u.RefreshToken = &t
		}
	}
	return nil
}

func (m *memoryUsers) RotateRefreshToken(ctx context.Context, userID uuid.UUID, current, next string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != current {
		return false, nil
	}
	u.RefreshToken = &next
	return true, nil
}

func (m *memoryUsers) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return apperrors.NotFound("User not found")
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memoryUsers) update(userID uuid.UUID, fn func(u *models.UserDB) error) (*models.UserDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, apperrors.NotFound("User not found")
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now()
	return copyUser(u), nil
}

func (m *memoryUsers) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, email string) (*models.UserDB, error) {
	return m.update(userID, func(u *models.UserDB) error {
		for id, other := range m.users {
			if id != userID && other.Email == email {
				return apperrors.Conflict("User with this email already exists")
			}
		}
		u.FullName = fullName
		u.Email = email
		return nil
	})
}

func (m *memoryUsers) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*models.UserDB, error) {
	return m.update(userID, func(u *models.UserDB) error {
		u.AvatarURL = avatarURL
		return nil
	})
}

func (m *memoryUsers) UpdateCoverImage(ctx context.Context, userID uuid.UUID, coverImageURL string) (*models.UserDB, error) {
	return m.update(userID, func(u *models.UserDB) error {
		u.CoverImageURL = &coverImageURL
		return nil
	})
}

func (m *memoryUsers) GetProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username != username {
			continue
		}
		_, subscribed := m.subs[[2]uuid.UUID{viewerID, u.UserID}]
		return &models.ChannelProfile{
			ID:            u.UserID,
			Username:      u.Username,
			FullName:      u.FullName,
			Email:         u.Email,
			AvatarURL:     u.AvatarURL,
			CoverImageURL: u.Sanitize().CoverImageURL,
			IsSubscribed:  subscribed,
		}, nil
	}
	return nil, nil
}

func (m *memoryUsers) GetCounts(ctx context.Context, channelID uuid.UUID) (models.ChannelCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countCalls++
	var counts models.ChannelCounts
	for key := range m.subs {
		if key[1] == channelID {
			counts.SubscribersCount++
		}
		if key[0] == channelID {
			counts.SubscribedToCount++
		}
	}
	return counts, nil
}

func (m *memoryUsers) Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[[2]uuid.UUID{subscriberID, channelID}] = struct{}{}
	return nil
}

func (m *memoryUsers) Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, [2]uuid.UUID{subscriberID, channelID})
	return nil
}

type fakeUploader struct {
	mu    sync.Mutex
	fail  map[string]error
	calls []string
}

func (f *fakeUploader) Upload(ctx context.Context, localPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, localPath)
	if err := f.fail[localPath]; err != nil {
		return "", err
	}
	return "http://media.local/" + localPath, nil
}

type fakeKafka struct {
	mu     sync.Mutex
	events []kafka.Message
	err    error
}

func (f *fakeKafka) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, msgs...)
	return nil
}

var errUploadFailed = errors.New("upload failed")

type testEnv struct {
	users    *memoryUsers
	store    *CredentialStore
	sessions *SessionIssuer
	accounts *AccountService
	uploader *fakeUploader
	kafka    *fakeKafka
	redis    *miniredis.Miniredis
	access   *jwt.JWT
	refresh  *jwt.JWT
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newMemoryUsers()
	store := NewCredentialStore(users, users, hasher.New(bcrypt.MinCost, 0))
	access := jwt.New(jwt.WithSecretKey("access-secret"), jwt.WithExpiration(15*time.Minute))
	refresh := jwt.New(jwt.WithSecretKey("refresh-secret"), jwt.WithExpiration(240*time.Hour))
	kw := &fakeKafka{}
	events := NewEventPublisher(kw)
	uploader := &fakeUploader{fail: map[string]error{}}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	cache := repositories.NewChannelCacheRepository(rdb, time.Minute)

	return &testEnv{
		users:    users,
		store:    store,
		sessions: NewSessionIssuer(store, access, refresh, events),
		accounts: NewAccountService(store, uploader, users, users, cache, events),
		uploader: uploader,
		kafka:    kw,
		redis:    mr,
		access:   access,
		refresh:  refresh,
	}
}

func (e *testEnv) register(t *testing.T, username, email, password string) *models.User {
	t.Helper()
	user, err := e.accounts.Register(context.Background(), models.RegisterInput{
		FullName:   "Test " + username,
		Username:   username,
		Email:      email,
		Password:   password,
		AvatarPath: username + "-avatar.png",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}

func (e *testEnv) eventTypes() []string {
	e.kafka.mu.Lock()
	defer e.kafka.mu.Unlock()
	var out []string
	for _, m := range e.kafka.events {
		var ev struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(m.Value, &ev)
		out = append(out, ev.Type)
	}
	return out
}

func strPtr(s string) *string { return &s }
