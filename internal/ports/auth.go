// Package ports defines interfaces (hexagonal ports) for the front end's collaborators.
// Implementations live in internal/adapters; orchestration in internal/service.
package ports

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
)

// AuthBoundary is the backend's authentication surface.
// token is the opaque backend session token; an empty token means anonymous.
type AuthBoundary interface {
	// WhoAmI returns the identity bound to token, or an Unauthorized error.
	WhoAmI(ctx context.Context, token string) (domainauth.Identity, error)
	// Login checks credentials and returns the identity plus a new backend token.
	Login(ctx context.Context, creds domainauth.Credentials) (domainauth.LoginResult, error)
	// Logout revokes token on the backend.
	Logout(ctx context.Context, token string) error
}

// ErrSessionNotFound is returned by SessionStore.Get when no session exists for an id.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists browser sessions (session id -> backend token).
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// IdentityCache holds the last known identity per browser session.
// It is a hint for optimistic rendering and never the source of truth.
type IdentityCache interface {
	// Get returns the cached identity and whether one was present.
	Get(ctx context.Context, key string) (domainauth.Identity, bool, error)
	Set(ctx context.Context, key string, id domainauth.Identity, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
