package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-user-accounts/internal/apperrors"
	"github.com/sbilibin2017/gw-user-accounts/internal/logger"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

const userColumns = `user_id, username, email, full_name, avatar_url, cover_image_url,
		password_hash, refresh_token, created_at, updated_at`

// redacted replaces secrets in logged query args.
const redacted = "[redacted]"

// TxGetter returns the transaction bound to ctx, or nil.
type TxGetter func(ctx context.Context) *sqlx.Tx

func executor(ctx context.Context, db *sqlx.DB, txGetter TxGetter) sqlx.ExtContext {
	if txGetter != nil {
		if tx := txGetter(ctx); tx != nil {
			return tx
		}
	}
	return db
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func logQuery(query string, args []any, result any, err error) {
	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", result,
		"error", err,
	)
}

type UserReadRepository struct {
	db       *sqlx.DB
	txGetter TxGetter
}

func NewUserReadRepository(db *sqlx.DB, txGetter TxGetter) *UserReadRepository {
	return &UserReadRepository{db: db, txGetter: txGetter}
}

// GetByUsernameOrEmail returns the account whose username equals username or
// whose email equals email. Nil arguments are ignored. When the two match
// different accounts the username match wins. A missing account is
// (nil, nil).
func (r *UserReadRepository) GetByUsernameOrEmail(ctx context.Context, username, email *string) (*models.UserDB, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1::VARCHAR IS NOT NULL AND username = $1)
		   OR ($2::VARCHAR IS NOT NULL AND email = $2)
		ORDER BY ($1::VARCHAR IS NOT NULL AND username = $1) DESC
		LIMIT 1
	`

	var user models.UserDB
	err := sqlx.GetContext(ctx, executor(ctx, r.db, r.txGetter), &user, query, username, email)
	logQuery(query, []any{username, email}, user.UserID, err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID returns the account with the given id, or (nil, nil).
func (r *UserReadRepository) GetByID(ctx context.Context, userID uuid.UUID) (*models.UserDB, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE user_id = $1
	`

	var user models.UserDB
	err := sqlx.GetContext(ctx, executor(ctx, r.db, r.txGetter), &user, query, userID)
	logQuery(query, []any{userID}, user.Username, err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type UserWriteRepository struct {
	db       *sqlx.DB
	txGetter TxGetter
}

func NewUserWriteRepository(db *sqlx.DB, txGetter TxGetter) *UserWriteRepository {
	return &UserWriteRepository{db: db, txGetter: txGetter}
}

// Save inserts a new account. A username or email collision is reported as
// a conflict.
func (r *UserWriteRepository) Save(ctx context.Context, u models.NewUser) (*models.UserDB, error) {
	query := `
		INSERT INTO users (username, email, full_name, password_hash, avatar_url, cover_image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING ` + userColumns

	var user models.UserDB
	err := sqlx.GetContext(ctx, executor(ctx, r.db, r.txGetter), &user, query,
		u.Username, u.Email, u.FullName, u.PasswordHash, u.AvatarURL, u.CoverImageURL)
	logQuery(query, []any{u.Username, u.Email, u.FullName, redacted, u.AvatarURL, u.CoverImageURL}, user.UserID, err)

	if isUniqueViolation(err) {
		return nil, apperrors.Conflict("User with this username or email already exists")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetRefreshToken overwrites the stored refresh token; nil clears it.
// Only the refresh_token column is written.
func (r *UserWriteRepository) SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	query := `
		UPDATE users
		SET refresh_token = $2, updated_at = NOW()
		WHERE user_id = $1
	`

	res, err := executor(ctx, r.db, r.txGetter).ExecContext(ctx, query, userID, token)
	rowsAffected := affected(res)
	logQuery(query, []any{userID, redacted}, rowsAffected, err)

	return err
}

// RotateRefreshToken replaces current with next in one statement and reports
// whether it did. It returns false when the stored token is no longer
// current, e.g. because a concurrent refresh already rotated it.
func (r *UserWriteRepository) RotateRefreshToken(ctx context.Context, userID uuid.UUID, current, next string) (bool, error) {
	query := `
		UPDATE users
		SET refresh_token = $3, updated_at = NOW()
		WHERE user_id = $1 AND refresh_token = $2
	`

	res, err := executor(ctx, r.db, r.txGetter).ExecContext(ctx, query, userID, current, next)
	rowsAffected := affected(res)
	logQuery(query, []any{userID, redacted, redacted}, rowsAffected, err)

	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

// UpdatePassword stores a new password hash. It is the only statement that
// writes password_hash after registration.
func (r *UserWriteRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE user_id = $1
	`

	res, err := executor(ctx, r.db, r.txGetter).ExecContext(ctx, query, userID, passwordHash)
	rowsAffected := affected(res)
	logQuery(query, []any{userID, redacted}, rowsAffected, err)

	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperrors.NotFound("User not found")
	}
	return nil
}

// UpdateProfile replaces full name and email and returns the updated row.
func (r *UserWriteRepository) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, email string) (*models.UserDB, error) {
	query := `
		UPDATE users
		SET full_name = $2, email = $3, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + userColumns

	return r.updateReturning(ctx, query, userID, fullName, email)
}

// UpdateAvatar replaces the avatar URL and returns the updated row.
func (r *UserWriteRepository) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*models.UserDB, error) {
	query := `
		UPDATE users
		SET avatar_url = $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + userColumns

	return r.updateReturning(ctx, query, userID, avatarURL)
}

// UpdateCoverImage replaces the cover image URL and returns the updated row.
func (r *UserWriteRepository) UpdateCoverImage(ctx context.Context, userID uuid.UUID, coverImageURL string) (*models.UserDB, error) {
	query := `
		UPDATE users
		SET cover_image_url = $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + userColumns

	return r.updateReturning(ctx, query, userID, coverImageURL)
}

func (r *UserWriteRepository) updateReturning(ctx context.Context, query string, args ...any) (*models.UserDB, error) {
	var user models.UserDB
	err := sqlx.GetContext(ctx, executor(ctx, r.db, r.txGetter), &user, query, args...)
	logQuery(query, args, user.UserID, err)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, apperrors.NotFound("User not found")
	case isUniqueViolation(err):
		return nil, apperrors.Conflict("User with this email already exists")
	case err != nil:
		return nil, err
	}
	return &user, nil
}

func affected(res sql.Result) int64 {
	if res == nil {
		return 0
	}
	n, _ := res.RowsAffected()
	return n
}
