package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-user-accounts/internal/apperrors"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
	"github.com/sbilibin2017/gw-user-accounts/internal/response"
)

// PasswordChanger defines the interface that the password service must implement.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID uuid.UUID, in models.ChangePasswordInput) error
}

// ChangePasswordRequest represents the JSON body for a password change
// swagger:model ChangePasswordRequest
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" example:"secret123"`
	NewPassword string `json:"newPassword" example:"n3w-secret"`
}

// NewChangePasswordHandler returns an HTTP handler for password changes.
// @Summary Change password
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param changePasswordRequest body handlers.ChangePasswordRequest true "Old and new password"
// @Success 200 {object} response.Envelope "Password changed"
// @Failure 400 {object} response.ErrorEnvelope "Invalid input"
// @Failure 401 {object} response.ErrorEnvelope "Invalid old password"
// @Router /change-password [post]
func NewChangePasswordHandler(svc PasswordChanger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			response.Error(w, err)
			return
		}

		var req ChangePasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			if errors.Is(err, io.EOF) {
				err = apperrors.Validation("invalid request body")
			}
			response.Error(w, err)
			return
		}

		err = svc.ChangePassword(r.Context(), userID, models.ChangePasswordInput{
			OldPassword: req.OldPassword,
			NewPassword: req.NewPassword,
		})
		if err != nil {
			response.Error(w, err)
			return
		}

		response.JSON(w, http.StatusOK, struct{}{}, "Password changed successfully")
	}
}
