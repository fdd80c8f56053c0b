package models

import (
	"time"

	"github.com/google/uuid"
)

// UserDB represents a user record in the database
type UserDB struct {
	UserID        uuid.UUID `json:"id" db:"user_id"`                      // Primary key
	Username      string    `json:"username" db:"username"`               // Unique, lowercased username
	Email         string    `json:"email" db:"email"`                     // Unique, lowercased email
	FullName      string    `json:"full_name" db:"full_name"`             // Display name
	AvatarURL     string    `json:"avatar_url" db:"avatar_url"`           // Avatar location on the media host
	CoverImageURL *string   `json:"cover_image_url" db:"cover_image_url"` // Optional cover image location
	PasswordHash  string    `json:"-" db:"password_hash"`                 // bcrypt hash, never the raw password
	RefreshToken  *string   `json:"-" db:"refresh_token"`                 // Most recently issued refresh token, nil when logged out
	CreatedAt     time.Time `json:"created_at" db:"created_at"`           // Creation timestamp
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`           // Last update timestamp
}

// User is the outward-facing view of an account.
// It deliberately has no password hash or refresh token.
// swagger:model User
type User struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Sanitize strips credential fields and returns the public view.
func (u *UserDB) Sanitize() *User {
	if u == nil {
		return nil
	}
	out := &User{
		ID:        u.UserID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.CoverImageURL != nil {
		out.CoverImageURL = *u.CoverImageURL
	}
	return out
}

// NewUser holds the fields persisted on registration.
type NewUser struct {
	Username      string
	Email         string
	FullName      string
	PasswordHash  string
	AvatarURL     string
	CoverImageURL *string
}
