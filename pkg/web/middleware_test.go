package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mkovtun/storecore/pkg/auth"
)

// MockVerifier is a mock implementation of the auth.Verifier interface for testing purposes.
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, tokenString string) (jwt.Token, error) {
	args := m.Called(ctx, tokenString)

	var token jwt.Token
	if args.Get(0) != nil {
		token = args.Get(0).(jwt.Token)
	}
	return token, args.Error(1)
}

func TestAuthMiddleware(t *testing.T) {
	// given
	buildToken := func(t *testing.T, claims map[string]any) jwt.Token {
		t.Helper()
		builder := jwt.NewBuilder().
			Subject("user-123").
			Issuer("test-issuer").
			IssuedAt(time.Now()).
			Expiration(time.Now().Add(time.Hour))
		for k, v := range claims {
			builder = builder.Claim(k, v)
		}
		token, err := builder.Build()
		require.NoError(t, err)
		return token
	}

	userToken := buildToken(t, map[string]any{"email": "user@example.com", "name": "User One"})
	adminToken := buildToken(t, map[string]any{"email": "admin@example.com", "role": "admin"})

	testCases := []struct {
		name               string
		authHeader         string
		setupMock          func(m *MockVerifier)
		expectedStatusCode int
		shouldCallNext     bool
		expectedUser       auth.User
	}{
		{
			name:       "Success - valid bearer token",
			authHeader: "Bearer valid-token",
			setupMock: func(m *MockVerifier) {
				m.On("Verify", mock.Anything, "valid-token").Return(userToken, nil)
			},
			expectedStatusCode: http.StatusOK,
			shouldCallNext:     true,
			expectedUser:       auth.User{ID: "user-123", Email: "user@example.com", Name: "User One", Role: auth.RoleUser},
		},
		{
			name:       "Success - role claim resolves to admin",
			authHeader: "Bearer admin-token",
			setupMock: func(m *MockVerifier) {
				m.On("Verify", mock.Anything, "admin-token").Return(adminToken, nil)
			},
			expectedStatusCode: http.StatusOK,
			shouldCallNext:     true,
			expectedUser:       auth.User{ID: "user-123", Email: "admin@example.com", Name: "admin@example.com", Role: auth.RoleAdmin},
		},
		{
			name:       "Failure - no auth header",
			authHeader: "",
			setupMock: func(m *MockVerifier) { // Nothing to set up, Verify should not be called
			},
			expectedStatusCode: http.StatusUnauthorized,
			shouldCallNext:     false,
		},
		{
			name:       "Failure - not a bearer token",
			authHeader: "Basic some-credentials",
			setupMock: func(m *MockVerifier) { // Nothing to set up, Verify should not be called
			},
			expectedStatusCode: http.StatusUnauthorized,
			shouldCallNext:     false,
		},
		{
			name:       "Failure - verifier returns error",
			authHeader: "Bearer invalid-token",
			setupMock: func(m *MockVerifier) {
				m.On("Verify", mock.Anything, "invalid-token").Return(nil, errors.New("signature is invalid"))
			},
			expectedStatusCode: http.StatusUnauthorized,
			shouldCallNext:     false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockVerifier := new(MockVerifier)
			tc.setupMock(mockVerifier)
			authMiddleware := AuthMiddleware(mockVerifier)

			nextHandlerCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextHandlerCalled = true
				user, ok := UserFromContext(r.Context())
				assert.True(t, ok, "user should be in context")
				assert.Equal(t, tc.expectedUser, user, "user in context is incorrect")
				w.WriteHeader(http.StatusOK)
			})

			testHandler := authMiddleware(nextHandler)

			req := httptest.NewRequest("GET", "/", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rr := httptest.NewRecorder()

			// when
			testHandler.ServeHTTP(rr, req)

			// then
			assert.Equal(t, tc.expectedStatusCode, rr.Code, "HTTP status code is wrong")
			assert.Equal(t, tc.shouldCallNext, nextHandlerCalled, "Next handler call status is wrong")

			mockVerifier.AssertExpectations(t)
		})
	}
}
