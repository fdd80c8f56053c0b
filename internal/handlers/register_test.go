package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-user-accounts/internal/apperrors"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fields := map[string]string{
		"fullName": "John Doe",
		"username": "john",
		"email":    "john@example.com",
		"password": "secret123",
	}

	t.Run("success with cover image", func(t *testing.T) {
		svc := NewMockRegisterer(ctrl)
		dir := t.TempDir()
		var seen models.RegisterInput

		svc.EXPECT().Register(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, in models.RegisterInput) (*models.User, error) {
				seen = in
				data, err := os.ReadFile(in.AvatarPath)
				require.NoError(t, err)
				assert.Equal(t, "avatar-bytes", string(data))
				require.NotNil(t, in.CoverImagePath)
				return &models.User{ID: uuid.New(), Username: in.Username}, nil
			})

		req := multipartRequest(t, http.MethodPost, "/register", fields, map[string][]byte{
			"avatar":     []byte("avatar-bytes"),
			"coverImage": []byte("cover-bytes"),
		})
		rr := httptest.NewRecorder()

		NewRegisterHandler(svc, dir).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		env := decodeEnvelope(t, rr)
		assert.True(t, env.Success)
		assert.Equal(t, "User registered Successfully", env.Message)
		assert.Equal(t, "john", seen.Username)
		assert.Equal(t, "john@example.com", seen.Email)
		assert.Equal(t, "secret123", seen.Password)

		// temp files are gone once the request is done
		_, err := os.Stat(seen.AvatarPath)
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(*seen.CoverImagePath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing avatar is passed on for validation", func(t *testing.T) {
		svc := NewMockRegisterer(ctrl)
		svc.EXPECT().Register(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, in models.RegisterInput) (*models.User, error) {
				assert.Empty(t, in.AvatarPath)
				assert.Nil(t, in.CoverImagePath)
				return nil, apperrors.Validation("avatar is required", "avatar is required")
			})

		req := multipartRequest(t, http.MethodPost, "/register", fields, nil)
		rr := httptest.NewRecorder()

		NewRegisterHandler(svc, t.TempDir()).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		env := decodeEnvelope(t, rr)
		assert.False(t, env.Success)
		assert.Equal(t, []string{"avatar is required"}, env.Errors)
	})

	t.Run("user already exists", func(t *testing.T) {
		svc := NewMockRegisterer(ctrl)
		svc.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, apperrors.Conflict("User with email or username already exists"))

		req := multipartRequest(t, http.MethodPost, "/register", fields, map[string][]byte{"avatar": []byte("a")})
		rr := httptest.NewRecorder()

		NewRegisterHandler(svc, t.TempDir()).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "User with email or username already exists", decodeEnvelope(t, rr).Message)
	})

	t.Run("not multipart", func(t *testing.T) {
		svc := NewMockRegisterer(ctrl)
		req := jsonRequest(t, http.MethodPost, "/register", fields)
		rr := httptest.NewRecorder()

		NewRegisterHandler(svc, t.TempDir()).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
