package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-user-accounts/internal/apperrors"
	"github.com/sbilibin2017/gw-user-accounts/internal/logger"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
)

// UserReader defines read-only operations for users.
type UserReader interface {
	GetByUsernameOrEmail(ctx context.Context, username *string, email *string) (*models.UserDB, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*models.UserDB, error)
}

// UserWriter defines write operations for users.
type UserWriter interface {
	Save(ctx context.Context, user models.NewUser) (*models.UserDB, error)
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error
	RotateRefreshToken(ctx context.Context, userID uuid.UUID, current, next string) (bool, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, email string) (*models.UserDB, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*models.UserDB, error)
	UpdateCoverImage(ctx context.Context, userID uuid.UUID, coverImageURL string) (*models.UserDB, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, hash, password string) (bool, error)
}

// CredentialStore owns the persisted account record: identity fields,
// password hash and the current refresh token.
type CredentialStore struct {
	reader UserReader
	writer UserWriter
	hasher PasswordHasher
}

// NewCredentialStore creates a new CredentialStore instance.
func NewCredentialStore(reader UserReader, writer UserWriter, hasher PasswordHasher) *CredentialStore {
	return &CredentialStore{
		reader: reader,
		writer: writer,
		hasher: hasher,
	}
}

// CheckAvailable fails with a conflict when username or email is taken.
func (s *CredentialStore) CheckAvailable(ctx context.Context, username, email string) error {
	user, err := s.reader.GetByUsernameOrEmail(ctx, &username, &email)
	if err != nil {
		logger.Log.Errorw("failed to check user exists", "username", username, "error", err)
		return apperrors.Internal(err, "failed to check user exists")
	}
	if user != nil {
		logger.Log.Infow("user already exists", "username", username, "email", email)
		return apperrors.Conflict("User with email or username already exists")
	}
	return nil
}

// Create hashes the password and stores a new account.
func (s *CredentialStore) Create(ctx context.Context, account models.NewAccount) (*models.User, error) {
	if err := s.CheckAvailable(ctx, account.Username, account.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, account.Password)
	if err != nil {
		logger.Log.Errorw("failed to hash password", "error", err)
		return nil, apperrors.Internal(err, "failed to hash password")
	}

	user, err := s.writer.Save(ctx, models.NewUser{
		Username:      account.Username,
		Email:         account.Email,
		FullName:      account.FullName,
		PasswordHash:  hash,
		AvatarURL:     account.AvatarURL,
		CoverImageURL: account.CoverImageURL,
	})
	if err != nil {
		logger.Log.Errorw("failed to save user", "username", account.Username, "error", err)
		return nil, classify(err, "Something went wrong while registering the user")
	}

	return user.Sanitize(), nil
}

// FindByID returns the account or (nil, nil) when it does not exist.
func (s *CredentialStore) FindByID(ctx context.Context, userID uuid.UUID) (*models.UserDB, error) {
	user, err := s.reader.GetByID(ctx, userID)
	if err != nil {
		logger.Log.Errorw("failed to get user", "userID", userID, "error", err)
		return nil, apperrors.Internal(err, "failed to get user")
	}
	return user, nil
}

// FindByUsernameOrEmail returns the first account matching either
// identifier, or (nil, nil).
func (s *CredentialStore) FindByUsernameOrEmail(ctx context.Context, username, email *string) (*models.UserDB, error) {
	user, err := s.reader.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		logger.Log.Errorw("failed to get user", "error", err)
		return nil, apperrors.Internal(err, "failed to get user")
	}
	return user, nil
}

// VerifyPassword reports whether plaintext matches the account's hash.
func (s *CredentialStore) VerifyPassword(ctx context.Context, user *models.UserDB, plaintext string) (bool, error) {
	ok, err := s.hasher.Compare(ctx, user.PasswordHash, plaintext)
	if err != nil {
		logger.Log.Errorw("failed to compare password", "userID", user.UserID, "error", err)
		return false, apperrors.Internal(err, "failed to verify password")
	}
	return ok, nil
}

// SetRefreshToken stores token as the account's only refresh token. Nil
// clears it.
func (s *CredentialStore) SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	if err := s.writer.SetRefreshToken(ctx, userID, token); err != nil {
		logger.Log.Errorw("failed to set refresh token", "userID", userID, "error", err)
		return apperrors.Internal(err, "failed to store refresh token")
	}
	return nil
}

// RotateRefreshToken replaces presented with next only if presented is still
// the stored token. It reports whether the swap happened.
func (s *CredentialStore) RotateRefreshToken(ctx context.Context, userID uuid.UUID, presented, next string) (bool, error) {
	ok, err := s.writer.RotateRefreshToken(ctx, userID, presented, next)
	if err != nil {
		logger.Log.Errorw("failed to rotate refresh token", "userID", userID, "error", err)
		return false, apperrors.Internal(err, "failed to rotate refresh token")
	}
	return ok, nil
}

// ChangePassword re-verifies oldPassword and stores the hash of newPassword.
// The stored hash is untouched when oldPassword is wrong.
func (s *CredentialStore) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.NotFound("User does not exist")
	}

	ok, err := s.VerifyPassword(ctx, user, oldPassword)
	if err != nil {
		return err
	}
	if !ok {
		logger.Log.Infow("invalid old password", "userID", userID)
		return apperrors.Unauthorized("Invalid old password")
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		logger.Log.Errorw("failed to hash password", "userID", userID, "error", err)
		return apperrors.Internal(err, "failed to hash password")
	}

	if err := s.writer.UpdatePassword(ctx, userID, hash); err != nil {
		logger.Log.Errorw("failed to update password", "userID", userID, "error", err)
		return classify(err, "failed to update password")
	}
	return nil
}

// UpdateProfile replaces full name and email.
func (s *CredentialStore) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, email string) (*models.User, error) {
	user, err := s.writer.UpdateProfile(ctx, userID, fullName, email)
	if err != nil {
		logger.Log.Errorw("failed to update profile", "userID", userID, "error", err)
		return nil, classify(err, "failed to update account details")
	}
	return user.Sanitize(), nil
}

// UpdateAvatar stores a new avatar URL.
func (s *CredentialStore) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*models.User, error) {
	user, err := s.writer.UpdateAvatar(ctx, userID, avatarURL)
	if err != nil {
		logger.Log.Errorw("failed to update avatar", "userID", userID, "error", err)
		return nil, classify(err, "failed to update avatar")
	}
	return user.Sanitize(), nil
}

// UpdateCoverImage stores a new cover image URL.
func (s *CredentialStore) UpdateCoverImage(ctx context.Context, userID uuid.UUID, coverImageURL string) (*models.User, error) {
	user, err := s.writer.UpdateCoverImage(ctx, userID, coverImageURL)
	if err != nil {
		logger.Log.Errorw("failed to update cover image", "userID", userID, "error", err)
		return nil, classify(err, "failed to update cover image")
	}
	return user.Sanitize(), nil
}

// classify keeps already classified errors and wraps the rest as internal.
func classify(err error, msg string) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Internal(fmt.Errorf("%s: %w", msg, err), msg)
}
