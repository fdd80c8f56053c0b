package handlers

import (
	"context"
	"net/http"

	"github.com/sbilibin2017/gw-user-accounts/internal/models"
	"github.com/sbilibin2017/gw-user-accounts/internal/response"
)

// Registerer defines the interface that the register service must implement.
type Registerer interface {
	Register(ctx context.Context, in models.RegisterInput) (*models.User, error)
}

// NewRegisterHandler returns an HTTP handler for user registration.
// Uploaded files are staged in uploadDir (the OS temp dir when empty) and
// removed once the request is done.
// @Summary Register a new user
// @Description Create an account with an avatar and an optional cover image
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Param fullName formData string true "Full name"
// @Param username formData string true "Username, 4 to 16 characters"
// @Param email formData string true "Email"
// @Param password formData string true "Password, 8 to 72 characters"
// @Param avatar formData file true "Avatar image"
// @Param coverImage formData file false "Cover image"
// @Success 201 {object} response.Envelope{data=models.User} "User registered"
// @Failure 400 {object} response.ErrorEnvelope "Invalid input"
// @Failure 409 {object} response.ErrorEnvelope "Username or email already exists"
// @Failure 500 {object} response.ErrorEnvelope "Internal server error"
// @Router /register [post]
func NewRegisterHandler(svc Registerer, uploadDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseMultipart(w, r); err != nil {
			response.Error(w, err)
			return
		}

		avatarPath, err := saveFormFile(r, "avatar", uploadDir)
		defer removeTemp(avatarPath)
		if err != nil {
			response.Error(w, err)
			return
		}

		coverPath, err := saveFormFile(r, "coverImage", uploadDir)
		defer removeTemp(coverPath)
		if err != nil {
			response.Error(w, err)
			return
		}

		in := models.RegisterInput{
			FullName:   r.FormValue("fullName"),
			Username:   r.FormValue("username"),
			Email:      r.FormValue("email"),
			Password:   r.FormValue("password"),
			AvatarPath: avatarPath,
		}
		if coverPath != "" {
			in.CoverImagePath = &coverPath
		}

		user, err := svc.Register(r.Context(), in)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.JSON(w, http.StatusCreated, user, "User registered Successfully")
	}
}
