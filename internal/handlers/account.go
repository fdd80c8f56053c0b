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

// CurrentUserGetter defines the interface that the account service must implement.
type CurrentUserGetter interface {
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// ProfileUpdater updates the mutable identity fields.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, userID uuid.UUID, in models.UpdateProfileInput) (*models.User, error)
}

// UpdateAccountRequest represents the JSON body for an account update
// swagger:model UpdateAccountRequest
type UpdateAccountRequest struct {
	FullName string `json:"fullName" example:"John Doe"`
	Email    string `json:"email" example:"john@example.com"`
}

// NewCurrentUserHandler returns an HTTP handler for the authenticated account.
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=models.User} "User fetched"
// @Failure 401 {object} response.ErrorEnvelope "Unauthorized"
// @Failure 404 {object} response.ErrorEnvelope "User does not exist"
// @Router /current-user [get]
func NewCurrentUserHandler(svc CurrentUserGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			response.Error(w, err)
			return
		}

		user, err := svc.GetCurrentUser(r.Context(), userID)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.JSON(w, http.StatusOK, user, "User fetched successfully")
	}
}

// NewUpdateAccountHandler returns an HTTP handler that updates full name and email.
// @Summary Update account details
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param updateAccountRequest body handlers.UpdateAccountRequest true "New details"
// @Success 200 {object} response.Envelope{data=models.User} "Account updated"
// @Failure 400 {object} response.ErrorEnvelope "Invalid input"
// @Failure 409 {object} response.ErrorEnvelope "Email already in use"
// @Router /update-account [patch]
func NewUpdateAccountHandler(svc ProfileUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			response.Error(w, err)
			return
		}

		var req UpdateAccountRequest
		if err := decodeJSON(r, &req); err != nil {
			if errors.Is(err, io.EOF) {
				err = apperrors.Validation("invalid request body")
			}
			response.Error(w, err)
			return
		}

		user, err := svc.UpdateProfile(r.Context(), userID, models.UpdateProfileInput{
			FullName: req.FullName,
			Email:    req.Email,
		})
		if err != nil {
			response.Error(w, err)
			return
		}

		response.JSON(w, http.StatusOK, user, "Account details updated successfully")
	}
}
