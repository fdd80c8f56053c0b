package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/sbilibin2017/gw-user-accounts/internal/apperrors"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
	"github.com/sbilibin2017/gw-user-accounts/internal/response"
)

// Loginer defines the interface that the login service must implement.
type Loginer interface {
	Login(ctx context.Context, in models.LoginInput) (*models.Session, error)
}

// LoginRequest represents the JSON body for user login
// swagger:model LoginRequest
type LoginRequest struct {
	// Username, either this or email is required
	Username *string `json:"username,omitempty" example:"john_doe"`

	// Email, either this or username is required
	Email *string `json:"email,omitempty" example:"john@example.com"`

	// Password
	// required: true
	Password string `json:"password" example:"secret123"`
}

// SessionResponse is the data of a successful login or refresh.
// swagger:model SessionResponse
type SessionResponse struct {
	User         *models.User `json:"user,omitempty"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// NewLoginHandler returns an HTTP handler for user login.
// @Summary User login
// @Description Authenticate by username or email and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param loginRequest body handlers.LoginRequest true "Login Request"
// @Success 200 {object} response.Envelope{data=handlers.SessionResponse} "Tokens returned and set as cookies"
// @Failure 400 {object} response.ErrorEnvelope "Invalid request body"
// @Failure 401 {object} response.ErrorEnvelope "Invalid user credentials"
// @Failure 404 {object} response.ErrorEnvelope "User does not exist"
// @Failure 429 {object} response.ErrorEnvelope "Too many login attempts"
// @Router /login [post]
func NewLoginHandler(svc Loginer, cookies CookieOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			if errors.Is(err, io.EOF) {
				err = apperrors.Validation("invalid request body")
			}
			response.Error(w, err)
			return
		}

		session, err := svc.Login(r.Context(), models.LoginInput{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			response.Error(w, err)
			return
		}

		setSessionCookies(w, cookies, session.Tokens)
		response.JSON(w, http.StatusOK, SessionResponse{
			User:         session.User,
			AccessToken:  session.Tokens.AccessToken,
			RefreshToken: session.Tokens.RefreshToken,
		}, "User logged In Successfully")
	}
}
