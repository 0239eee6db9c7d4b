package service

import (
	"context"

	apperrors "github.com/target/municipal-portal/internal/errors"
)

// Caller is the browser session on whose behalf a backend call is made.
// *session.Store implements it.
type Caller interface {
	Token() string
	Invalidate(ctx context.Context)
}

// withCaller runs fn with the caller's token. A rejected token ends the
// session so the next gate decision sends the user to log in again.
func withCaller[T any](ctx context.Context, c Caller, fn func(token string) (T, error)) (T, error) {
	v, err := fn(c.Token())
	if err != nil && apperrors.IsUnauthorized(err) {
		c.Invalidate(ctx)
	}
	return v, err
}

func withCallerErr(ctx context.Context, c Caller, fn func(token string) error) error {
	_, err := withCaller(ctx, c, func(token string) (struct{}, error) {
		return struct{}{}, fn(token)
	})
	return err
}
