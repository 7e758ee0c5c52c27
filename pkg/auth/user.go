package auth

import (
	"errors"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the caller identity resolved from a verified credential.
type User struct {
	ID    string
	Email string
	Name  string
	Photo string
	Role  string
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserFromToken builds a User from verified token claims. The subject claim
// is mandatory; display name falls back to the email, and the role claim
// defaults to the regular user role when absent.
func UserFromToken(token jwt.Token) (User, error) {
	sub, ok := token.Subject()
	if !ok || sub == "" {
		return User{}, errors.New("token has no subject claim")
	}

	u := User{ID: sub, Role: RoleUser}
	var claim string
	if err := token.Get("email", &claim); err == nil {
		u.Email = claim
	}
	if err := token.Get("name", &claim); err == nil && claim != "" {
		u.Name = claim
	} else {
		u.Name = u.Email
	}
	if err := token.Get("picture", &claim); err == nil {
		u.Photo = claim
	}
	if err := token.Get("role", &claim); err == nil && claim != "" {
		u.Role = claim
	}
	return u, nil
}
