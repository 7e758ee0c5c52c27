package web

import (
	"context"

	"github.com/mkovtun/storecore/pkg/auth"
)

type requestIDKey struct{}
type userKey struct{}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and a boolean indicating whether it was found.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// WithUser adds the authenticated caller to the context.
func WithUser(ctx context.Context, user auth.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext retrieves the authenticated caller from the context.
func UserFromContext(ctx context.Context) (auth.User, bool) {
	user, ok := ctx.Value(userKey{}).(auth.User)
	return user, ok
}
