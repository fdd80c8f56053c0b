package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/sbilibin2017/gw-user-accounts/internal/models"
	"github.com/sbilibin2017/gw-user-accounts/internal/response"
)

// Refresher defines the interface that the refresh service must implement.
type Refresher interface {
	Refresh(ctx context.Context, presented string) (*models.TokenPair, error)
}

// RefreshRequest carries the refresh token when it is not sent as a cookie.
// swagger:model RefreshRequest
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// NewRefreshHandler returns an HTTP handler that rotates the session tokens.
// The refreshToken cookie wins over the request body.
// @Summary Refresh access token
// @Description Exchange the current refresh token for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param refreshRequest body handlers.RefreshRequest false "Refresh token when no cookie is sent"
// @Success 200 {object} response.Envelope{data=handlers.SessionResponse} "New tokens"
// @Failure 401 {object} response.ErrorEnvelope "invalid refresh token"
// @Router /refresh-token [post]
func NewRefreshHandler(svc Refresher, cookies CookieOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var presented string
		if c, err := r.Cookie(RefreshTokenCookie); err == nil {
			presented = c.Value
		}
		if presented == "" {
			var req RefreshRequest
			if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
				response.Error(w, err)
				return
			}
			presented = req.RefreshToken
		}

		pair, err := svc.Refresh(r.Context(), presented)
		if err != nil {
			response.Error(w, err)
			return
		}

		setSessionCookies(w, cookies, *pair)
		response.JSON(w, http.StatusOK, SessionResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		}, "Access token refreshed")
	}
}
