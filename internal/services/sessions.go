package services

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-user-accounts/internal/apperrors"
	"github.com/sbilibin2017/gw-user-accounts/internal/jwt"
	"github.com/sbilibin2017/gw-user-accounts/internal/logger"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
)

// TokenIssuer signs and verifies tokens of one kind.
type TokenIssuer interface {
	Generate(ctx context.Context, claims jwt.Claims) (string, time.Time, error)
	GetClaims(ctx context.Context, token string) (*jwt.Claims, error)
}

// SessionStore is the part of the credential store sessions depend on.
type SessionStore interface {
	FindByID(ctx context.Context, userID uuid.UUID) (*models.UserDB, error)
	FindByUsernameOrEmail(ctx context.Context, username, email *string) (*models.UserDB, error)
	VerifyPassword(ctx context.Context, user *models.UserDB, plaintext string) (bool, error)
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error
	RotateRefreshToken(ctx context.Context, userID uuid.UUID, presented, next string) (bool, error)
}

// SessionIssuer runs the login, refresh and logout protocol. An account has
// at most one live refresh token; issuing a new one invalidates the old.
type SessionIssuer struct {
	store   SessionStore
	access  TokenIssuer
	refresh TokenIssuer
	events  *EventPublisher
}

// NewSessionIssuer creates a new SessionIssuer instance.
func NewSessionIssuer(store SessionStore, access, refresh TokenIssuer, events *EventPublisher) *SessionIssuer {
	return &SessionIssuer{
		store:   store,
		access:  access,
		refresh: refresh,
		events:  events,
	}
}

func errInvalidRefreshToken() error {
	return apperrors.Unauthorized("invalid refresh token")
}

// Login authenticates by username or email and starts a new session,
// replacing any previous one.
func (s *SessionIssuer) Login(ctx context.Context, in models.LoginInput) (*models.Session, error) {
	if in.Username != nil {
		v := normalizeIdentifier(*in.Username)
		in.Username = &v
	}
	if in.Email != nil {
		v := normalizeIdentifier(*in.Email)
		in.Email = &v
	}
	if (in.Username == nil || *in.Username == "") && (in.Email == nil || *in.Email == "") {
		return nil, apperrors.Validation("username or email is required", "username", "email")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	user, err := s.store.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		logger.Log.Infow("user does not exist", "username", in.Username, "email", in.Email)
		return nil, apperrors.NotFound("User does not exist")
	}

	ok, err := s.store.VerifyPassword(ctx, user, in.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Log.Infow("invalid credentials", "userID", user.UserID)
		return nil, apperrors.Unauthorized("Invalid user credentials")
	}

	pair, err := s.mint(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetRefreshToken(ctx, user.UserID, &pair.RefreshToken); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, user.UserID, models.EventUserLoggedIn)

	return &models.Session{Tokens: pair, User: user.Sanitize()}, nil
}

// Refresh exchanges the current refresh token for a new pair. Every way the
// presented token can be unacceptable yields the same unauthorized error.
func (s *SessionIssuer) Refresh(ctx context.Context, presented string) (*models.TokenPair, error) {
	if presented == "" {
		return nil, errInvalidRefreshToken()
	}

	claims, err := s.refresh.GetClaims(ctx, presented)
	if err != nil {
		logger.Log.Infow("refresh token rejected", "error", err)
		return nil, errInvalidRefreshToken()
	}

	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		logger.Log.Infow("refresh token for unknown user", "userID", claims.UserID)
		return nil, errInvalidRefreshToken()
	}
	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(presented)) != 1 {
		logger.Log.Infow("refresh token is expired or used", "userID", user.UserID)
		return nil, errInvalidRefreshToken()
	}

	pair, err := s.mint(ctx, user)
	if err != nil {
		return nil, err
	}

	swapped, err := s.store.RotateRefreshToken(ctx, user.UserID, presented, pair.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !swapped {
		logger.Log.Infow("refresh token already rotated", "userID", user.UserID)
		return nil, errInvalidRefreshToken()
	}

	return &pair, nil
}

// Logout ends the account's session. Logging out twice is not an error.
func (s *SessionIssuer) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.SetRefreshToken(ctx, userID, nil); err != nil {
		return err
	}
	s.events.Publish(ctx, userID, models.EventUserLoggedOut)
	return nil
}

func (s *SessionIssuer) mint(ctx context.Context, user *models.UserDB) (models.TokenPair, error) {
	accessToken, accessExp, err := s.access.Generate(ctx, jwt.Claims{
		UserID:   user.UserID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	})
	if err != nil {
		logger.Log.Errorw("failed to generate access token", "userID", user.UserID, "error", err)
		return models.TokenPair{}, apperrors.Internal(err, "Something went wrong while generating access and refresh tokens")
	}

	refreshToken, refreshExp, err := s.refresh.Generate(ctx, jwt.Claims{UserID: user.UserID})
	if err != nil {
		logger.Log.Errorw("failed to generate refresh token", "userID", user.UserID, "error", err)
		return models.TokenPair{}, apperrors.Internal(err, "Something went wrong while generating access and refresh tokens")
	}

	return models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
