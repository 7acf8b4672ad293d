package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-program-wizard/internal/common/config"
	"card-program-wizard/internal/common/errors"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestClient(t *testing.T, handler http.HandlerFunc) *KeycloakClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewKeycloakClient(config.KeycloakConfig{URL: server.URL + "/", Realm: "wizard"}, server.Client())
}

// ==========================
// UserInfo Tests
// ==========================

func TestUserInfo_Success(t *testing.T) {
	client := createTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realms/wizard/protocol/openid-connect/userinfo", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"user-42","email":"ops@acme.example","preferred_username":"ops"}`))
	})

	info, err := client.UserInfo(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "user-42", info.Subject)
	assert.Equal(t, "ops@acme.example", info.Email)
}

func TestUserInfo_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  errors.ErrorCode
		retryable bool
	}{
		{"rejected token", http.StatusUnauthorized, "", errors.ErrCodeAuthenticationFailed, false},
		{"unavailable", http.StatusServiceUnavailable, "down", errors.ErrCodeExternalService, true},
		{"server error", http.StatusInternalServerError, "oops", errors.ErrCodeExternalService, false},
		{"no subject", http.StatusOK, `{"email":"x@y.example"}`, errors.ErrCodeAuthenticationFailed, false},
		{"bad json", http.StatusOK, `{`, errors.ErrCodeExternalService, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := createTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.UserInfo(context.Background(), "tok")
			stdErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

func TestUserInfo_MissingToken(t *testing.T) {
	client := NewKeycloakClient(config.KeycloakConfig{URL: "http://unused", Realm: "wizard"}, nil)
	_, err := client.UserInfo(context.Background(), "")
	stdErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeAuthenticationFailed, stdErr.Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer "))
	assert.Equal(t, "", BearerToken(""))
}
