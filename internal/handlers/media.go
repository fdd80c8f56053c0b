package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
	"github.com/sbilibin2017/gw-user-accounts/internal/response"
)

// AvatarUpdater replaces the avatar.
type AvatarUpdater interface {
	UpdateAvatar(ctx context.Context, userID uuid.UUID, localPath string) (*models.User, error)
}

// CoverImageUpdater replaces the cover image.
type CoverImageUpdater interface {
	UpdateCoverImage(ctx context.Context, userID uuid.UUID, localPath string) (*models.User, error)
}

type mediaUpdateFunc func(ctx context.Context, userID uuid.UUID, localPath string) (*models.User, error)

// NewAvatarHandler returns an HTTP handler that replaces the avatar.
// @Summary Update avatar
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} response.Envelope{data=models.User} "Avatar updated"
// @Failure 400 {object} response.ErrorEnvelope "Avatar file is missing"
// @Router /avatar [patch]
func NewAvatarHandler(svc AvatarUpdater, uploadDir string) http.HandlerFunc {
	return newMediaHandler("avatar", uploadDir, svc.UpdateAvatar, "Avatar image updated successfully")
}

// NewCoverImageHandler returns an HTTP handler that replaces the cover image.
// @Summary Update cover image
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param coverImage formData file true "Cover image"
// @Success 200 {object} response.Envelope{data=models.User} "Cover image updated"
// @Failure 400 {object} response.ErrorEnvelope "Cover image file is missing"
// @Router /cover-image [patch]
func NewCoverImageHandler(svc CoverImageUpdater, uploadDir string) http.HandlerFunc {
	return newMediaHandler("coverImage", uploadDir, svc.UpdateCoverImage, "Cover image updated successfully")
}

func newMediaHandler(field, uploadDir string, update mediaUpdateFunc, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			response.Error(w, err)
			return
		}

		if err := parseMultipart(w, r); err != nil {
			response.Error(w, err)
			return
		}

		path, err := saveFormFile(r, field, uploadDir)
		defer removeTemp(path)
		if err != nil {
			response.Error(w, err)
			return
		}

		user, err := update(r.Context(), userID, path)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.JSON(w, http.StatusOK, user, message)
	}
}
