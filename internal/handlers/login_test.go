package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-user-accounts/internal/apperrors"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	username := "john"
	session := &models.Session{
		Tokens: models.TokenPair{
			AccessToken:      "access",
			RefreshToken:     "refresh",
			AccessExpiresAt:  time.Now().Add(15 * time.Minute),
			RefreshExpiresAt: time.Now().Add(240 * time.Hour),
		},
		User: &models.User{ID: uuid.New(), Username: username},
	}

	tests := []struct {
		name         string
		body         string
		mockSetup    func(m *MockLoginer)
		expectedCode int
		expectCookie bool
	}{
		{
			name: "success",
			body: `{"username":"john","password":"secret123"}`,
			mockSetup: func(m *MockLoginer) {
				m.EXPECT().
					Login(gomock.Any(), models.LoginInput{Username: &username, Password: "secret123"}).
					Return(session, nil)
			},
			expectedCode: http.StatusOK,
			expectCookie: true,
		},
		{
			name: "invalid credentials",
			body: `{"username":"john","password":"wrong"}`,
			mockSetup: func(m *MockLoginer) {
				m.EXPECT().Login(gomock.Any(), gomock.Any()).
					Return(nil, apperrors.Unauthorized("Invalid user credentials"))
			},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "unknown user",
			body: `{"email":"ghost@example.com","password":"secret123"}`,
			mockSetup: func(m *MockLoginer) {
				m.EXPECT().Login(gomock.Any(), gomock.Any()).
					Return(nil, apperrors.NotFound("User does not exist"))
			},
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "invalid json",
			body:         `{"username":`,
			mockSetup:    func(m *MockLoginer) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "empty body",
			body:         ``,
			mockSetup:    func(m *MockLoginer) {},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewMockLoginer(ctrl)
			tt.mockSetup(svc)

			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			NewLoginHandler(svc, CookieOptions{Secure: true}).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			access := findCookie(rr, AccessTokenCookie)
			if !tt.expectCookie {
				assert.Nil(t, access)
				return
			}

			require.NotNil(t, access)
			assert.Equal(t, "access", access.Value)
			assert.True(t, access.HttpOnly)
			assert.True(t, access.Secure)
			assert.Equal(t, "/", access.Path)

			refresh := findCookie(rr, RefreshTokenCookie)
			require.NotNil(t, refresh)
			assert.Equal(t, "refresh", refresh.Value)

			env := decodeEnvelope(t, rr)
			assert.Contains(t, string(env.Data), `"accessToken":"access"`)
			assert.Contains(t, string(env.Data), `"refreshToken":"refresh"`)
			assert.NotContains(t, string(env.Data), "password")
		})
	}
}
