package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildToken(t *testing.T, subject string, claims map[string]any) jwt.Token {
	t.Helper()
	builder := jwt.NewBuilder().
		Issuer("test-issuer").
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour))
	if subject != "" {
		builder = builder.Subject(subject)
	}
	for k, v := range claims {
		builder = builder.Claim(k, v)
	}
	token, err := builder.Build()
	require.NoError(t, err)
	return token
}

func Test_UserFromToken(t *testing.T) {
	testCases := []struct {
		name      string
		subject   string
		claims    map[string]any
		expected  User
		expectErr bool
	}{
		{
			name:    "full profile claims",
			subject: "user-123",
			claims: map[string]any{
				"email":   "user@example.com",
				"name":    "User One",
				"picture": "https://example.com/u.png",
			},
			expected: User{
				ID:    "user-123",
				Email: "user@example.com",
				Name:  "User One",
				Photo: "https://example.com/u.png",
				Role:  RoleUser,
			},
		},
		{
			name:    "name falls back to email",
			subject: "user-123",
			claims:  map[string]any{"email": "user@example.com"},
			expected: User{
				ID:    "user-123",
				Email: "user@example.com",
				Name:  "user@example.com",
				Role:  RoleUser,
			},
		},
		{
			name:     "role claim overrides default",
			subject:  "admin-1",
			claims:   map[string]any{"role": "admin"},
			expected: User{ID: "admin-1", Role: RoleAdmin},
		},
		{
			name:      "missing subject",
			subject:   "",
			claims:    map[string]any{"email": "user@example.com"},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token := buildToken(t, tc.subject, tc.claims)

			user, err := UserFromToken(token)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, user)
		})
	}
}

func Test_User_IsAdmin(t *testing.T) {
	assert.True(t, User{Role: RoleAdmin}.IsAdmin())
	assert.False(t, User{Role: RoleUser}.IsAdmin())
	assert.False(t, User{}.IsAdmin())
}
