package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fable-app/fable-api/internal/config"
	"github.com/fable-app/fable-api/internal/service/auth"
)

func newTestAuth(t *testing.T) (auth.JWTService, *AuthMiddleware) {
	t.Helper()
	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            "test-jwt-secret-that-is-32-chars-long",
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err, "Failed to create JWT service")
	return jwtService, NewAuthMiddleware(jwtService)
}

// protectedHandler records whether it ran and with which user ID.
func protectedHandler(gotUser *uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := GetUserID(r); ok {
			*gotUser = userID
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateAllowsValidToken(t *testing.T) {
	jwtService, middleware := newTestAuth(t)
	userID := uuid.New()

	token, err := jwtService.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	var gotUser uuid.UUID
	handler := middleware.Authenticate(protectedHandler(&gotUser))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, gotUser, "user ID from the token claims should reach the handler context")
}

func TestAuthenticateRejectsBadRequests(t *testing.T) {
	_, middleware := newTestAuth(t)

	var gotUser uuid.UUID
	handler := middleware.Authenticate(protectedHandler(&gotUser))

	testCases := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "malformed token", header: "Bearer not.a.jwt"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, uuid.Nil, gotUser, "the protected handler must not run")
		})
	}
}

func TestAuthenticateRejectsTokenSignedWithOtherSecret(t *testing.T) {
	otherService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            "another-secret-that-is-32-chars-long!",
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	token, err := otherService.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	_, middleware := newTestAuth(t)
	var gotUser uuid.UUID
	handler := middleware.Authenticate(protectedHandler(&gotUser))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
