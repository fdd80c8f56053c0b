package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-user-accounts/internal/apperrors"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistration() models.RegisterInput {
	return models.RegisterInput{
		FullName:   "  Alice Doe ",
		Username:   " Alice ",
		Email:      "A@X.com",
		Password:   "Secret123",
		AvatarPath: "avatar.png",
	}
}

func TestAccountService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes and uploads media", func(t *testing.T) {
		e := newTestEnv(t)
		in := validRegistration()
		in.CoverImagePath = strPtr("cover.png")

		user, err := e.accounts.Register(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "a@x.com", user.Email)
		assert.Equal(t, "Alice Doe", user.FullName)
		assert.Equal(t, "http://media.local/avatar.png", user.AvatarURL)
		assert.Equal(t, "http://media.local/cover.png", user.CoverImageURL)
		assert.Equal(t, []string{models.EventUserRegistered}, e.eventTypes())
	})

	t.Run("cover upload failure is not fatal", func(t *testing.T) {
		e := newTestEnv(t)
		e.uploader.fail["cover.png"] = errUploadFailed
		in := validRegistration()
		in.CoverImagePath = strPtr("cover.png")

		user, err := e.accounts.Register(ctx, in)
		require.NoError(t, err)
		assert.Empty(t, user.CoverImageURL)
	})

	t.Run("avatar upload failure stores nothing", func(t *testing.T) {
		e := newTestEnv(t)
		e.uploader.fail["avatar.png"] = errUploadFailed

		_, err := e.accounts.Register(ctx, validRegistration())
		assert.ErrorIs(t, err, apperrors.ErrInternal)
		assert.Empty(t, e.users.users)
	})

	t.Run("validation runs before anything else", func(t *testing.T) {
		e := newTestEnv(t)
		tests := []struct {
			name  string
			patch func(in *models.RegisterInput)
			field string
		}{
			{"short username", func(in *models.RegisterInput) { in.Username = "abc" }, "username"},
			{"long username", func(in *models.RegisterInput) { in.Username = "abcdefghijklmnopq" }, "username"},
			{"bad email", func(in *models.RegisterInput) { in.Email = "not-an-email" }, "email"},
			{"short password", func(in *models.RegisterInput) { in.Password = "short" }, "password"},
			{"password over 72 bytes", func(in *models.RegisterInput) { in.Password = strings.Repeat("é", 40) }, "password"},
			{"blank full name", func(in *models.RegisterInput) { in.FullName = "   " }, "fullName"},
			{"missing avatar", func(in *models.RegisterInput) { in.AvatarPath = "" }, "avatar"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				in := validRegistration()
				tt.patch(&in)

				_, err := e.accounts.Register(ctx, in)
				require.ErrorIs(t, err, apperrors.ErrValidation)
				require.NotEmpty(t, apperrors.Fields(err))
				assert.Contains(t, apperrors.Fields(err)[0], tt.field)
			})
		}
		assert.Empty(t, e.uploader.calls)
		assert.Empty(t, e.users.users)
	})

	t.Run("duplicates conflict before upload", func(t *testing.T) {
		e := newTestEnv(t)
		_, err := e.accounts.Register(ctx, validRegistration())
		require.NoError(t, err)
		uploads := len(e.uploader.calls)

		dupName := validRegistration()
		dupName.Email = "other@x.com"
		_, err = e.accounts.Register(ctx, dupName)
		assert.ErrorIs(t, err, apperrors.ErrConflict)

		dupEmail := validRegistration()
		dupEmail.Username = "alice2"
		_, err = e.accounts.Register(ctx, dupEmail)
		assert.ErrorIs(t, err, apperrors.ErrConflict)

		assert.Len(t, e.uploader.calls, uploads)
		assert.Len(t, e.users.users, 1)
	})
}

func TestAccountService_CurrentUserAndProfile(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.register(t, "alice", "a@x.com", "Secret123")
	e.register(t, "bobby", "b@x.com", "Secret123")

	got, err := e.accounts.GetCurrentUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = e.accounts.GetCurrentUser(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	updated, err := e.accounts.UpdateProfile(ctx, alice.ID, models.UpdateProfileInput{FullName: " Alice D ", Email: "NEW@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "Alice D", updated.FullName)
	assert.Equal(t, "new@x.com", updated.Email)

	_, err = e.accounts.UpdateProfile(ctx, alice.ID, models.UpdateProfileInput{FullName: "Alice", Email: "b@x.com"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = e.accounts.UpdateProfile(ctx, alice.ID, models.UpdateProfileInput{FullName: "", Email: "x@x.com"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.Contains(t, e.eventTypes(), models.EventUserProfileUpdated)
}

func TestAccountService_ChangePassword(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.register(t, "alice", "a@x.com", "Secret123")
	session := login(t, e, "alice", "Secret123")

	err := e.accounts.ChangePassword(ctx, session.User.ID, models.ChangePasswordInput{OldPassword: "Secret123", NewPassword: "Secret123"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = e.accounts.ChangePassword(ctx, session.User.ID, models.ChangePasswordInput{OldPassword: "Secret123", NewPassword: strings.Repeat("é", 40)})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, "newPassword must be at most 72 bytes", apperrors.Message(err))

	err = e.accounts.ChangePassword(ctx, session.User.ID, models.ChangePasswordInput{OldPassword: "nope", NewPassword: "NewSecret456"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	require.NoError(t, e.accounts.ChangePassword(ctx, session.User.ID, models.ChangePasswordInput{OldPassword: "Secret123", NewPassword: "NewSecret456"}))

	_, err = e.sessions.Login(ctx, models.LoginInput{Username: strPtr("alice"), Password: "Secret123"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// the session from before the change stays usable
	_, err = e.sessions.Refresh(ctx, session.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestAccountService_Media(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.register(t, "alice", "a@x.com", "Secret123")

	user, err := e.accounts.UpdateAvatar(ctx, alice.ID, "new-avatar.png")
	require.NoError(t, err)
	assert.Equal(t, "http://media.local/new-avatar.png", user.AvatarURL)

	user, err = e.accounts.UpdateCoverImage(ctx, alice.ID, "new-cover.png")
	require.NoError(t, err)
	assert.Equal(t, "http://media.local/new-cover.png", user.CoverImageURL)

	_, err = e.accounts.UpdateAvatar(ctx, alice.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = e.accounts.UpdateCoverImage(ctx, alice.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	e.uploader.fail["broken.png"] = errUploadFailed
	_, err = e.accounts.UpdateAvatar(ctx, alice.ID, "broken.png")
	assert.ErrorIs(t, err, apperrors.ErrInternal)

	stored, _ := e.store.FindByID(ctx, alice.ID)
	assert.Equal(t, "http://media.local/new-avatar.png", stored.AvatarURL)

	_, err = e.accounts.UpdateAvatar(ctx, uuid.New(), "x.png")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Contains(t, e.eventTypes(), models.EventUserAvatarUpdated)
	assert.Contains(t, e.eventTypes(), models.EventUserCoverImageUpdated)
}

func TestAccountService_Channels(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.register(t, "alice", "a@x.com", "Secret123")
	bob := e.register(t, "bobby", "b@x.com", "Secret123")

	profile, err := e.accounts.GetChannelProfile(ctx, "bobby", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, profile.ID)
	assert.Zero(t, profile.SubscribersCount)
	assert.False(t, profile.IsSubscribed)

	// served from cache the second time
	_, err = e.accounts.GetChannelProfile(ctx, "bobby", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, e.users.countCalls)

	require.NoError(t, e.accounts.Subscribe(ctx, alice.ID, "BOBBY"))
	require.NoError(t, e.accounts.Subscribe(ctx, alice.ID, "bobby"))

	profile, err = e.accounts.GetChannelProfile(ctx, "bobby", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), profile.SubscribersCount)
	assert.True(t, profile.IsSubscribed)

	mine, err := e.accounts.GetChannelProfile(ctx, "alice", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.SubscribedToCount)

	err = e.accounts.Subscribe(ctx, alice.ID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, e.accounts.Unsubscribe(ctx, alice.ID, "bobby"))
	profile, err = e.accounts.GetChannelProfile(ctx, "bobby", alice.ID)
	require.NoError(t, err)
	assert.Zero(t, profile.SubscribersCount)

	_, err = e.accounts.GetChannelProfile(ctx, "ghost", alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = e.accounts.GetChannelProfile(ctx, "  ", alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAccountService_ChannelsWithoutRedis(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.register(t, "alice", "a@x.com", "Secret123")
	e.register(t, "bobby", "b@x.com", "Secret123")
	e.redis.Close()

	require.NoError(t, e.accounts.Subscribe(ctx, alice.ID, "bobby"))

	profile, err := e.accounts.GetChannelProfile(ctx, "bobby", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), profile.SubscribersCount)
}
