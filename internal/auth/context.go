// Package auth carries the signed-in user through request contexts and owns
// password hashing and the session table.
package auth

import (
	"context"
	"errors"
)

// ErrUnauthenticated means no user identity is attached to the context.
var ErrUnauthenticated = errors.New("unauthenticated")

type userKey struct{}

// WithUser attaches the signed-in user id to the context.
func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID reads the signed-in user id from the context.
func UserID(ctx context.Context) (int64, error) {
	id, ok := ctx.Value(userKey{}).(int64)
	if !ok || id <= 0 {
		return 0, ErrUnauthenticated
	}
	return id, nil
}
