package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-user-accounts/internal/response"
)

// Logouter defines the interface that the logout service must implement.
type Logouter interface {
	Logout(ctx context.Context, userID uuid.UUID) error
}

// NewLogoutHandler returns an HTTP handler that ends the current session.
// @Summary Logout
// @Description Invalidate the refresh token and clear session cookies
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope "User logged out"
// @Failure 401 {object} response.ErrorEnvelope "Unauthorized"
// @Router /logout [post]
func NewLogoutHandler(svc Logouter, cookies CookieOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			response.Error(w, err)
			return
		}

		if err := svc.Logout(r.Context(), userID); err != nil {
			response.Error(w, err)
			return
		}

		clearSessionCookies(w, cookies)
		response.JSON(w, http.StatusOK, struct{}{}, "User logged Out")
	}
}
