package models

// RegisterInput is the validated registration payload.
// AvatarPath and CoverImagePath point at local temp files written by the
// HTTP layer; CoverImagePath is nil when no cover image was sent.
type RegisterInput struct {
	FullName       string  `validate:"required,max=100"`
	Username       string  `validate:"required,min=4,max=16"`
	Email          string  `validate:"required,email,max=100"`
	Password       string  `validate:"required,min=8,maxbytes=72"`
	AvatarPath     string  `validate:"required"`
	CoverImagePath *string `validate:"omitempty,min=1"`
}

// LoginInput identifies the account by username or email.
// At least one of them must be set.
type LoginInput struct {
	Username *string `validate:"omitempty,min=4,max=16"`
	Email    *string `validate:"omitempty,email"`
	Password string  `validate:"required"`
}

// ChangePasswordInput carries the old password for re-verification.
type ChangePasswordInput struct {
	OldPassword string `validate:"required"`
	NewPassword string `validate:"required,min=8,maxbytes=72,nefield=OldPassword"`
}

// UpdateProfileInput replaces the mutable identity fields.
type UpdateProfileInput struct {
	FullName string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=100"`
}

// NewAccount holds the normalized registration fields once media are
// uploaded. Password is plaintext and is hashed before it is stored.
type NewAccount struct {
	Username      string
	Email         string
	FullName      string
	Password      string
	AvatarURL     string
	CoverImageURL *string
}
