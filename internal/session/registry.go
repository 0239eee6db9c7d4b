package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/target/municipal-portal/internal/ports"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Boundary ports.AuthBoundary
	Cache    ports.IdentityCache
	Sessions ports.SessionStore
	TTL      time.Duration
	// Size caps the number of live stores kept in memory. Evicted stores are
	// rebuilt from Sessions on the next request.
	Size   int
	Logger *slog.Logger
}

// Registry hands out one Store per browser session id.
type Registry struct {
	opts   RegistryOptions
	mu     sync.Mutex
	stores *expirable.LRU[string, *Store]
}

// NewRegistry creates a Registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Size <= 0 {
		opts.Size = 10000
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{
		opts:   opts,
		stores: expirable.NewLRU[string, *Store](opts.Size, nil, opts.TTL),
	}
}

// NewID returns a fresh random browser session id.
func (r *Registry) NewID() string {
	return uuid.NewString()
}

// Store returns the store for id, restoring its backend token from the
// session store when it is not already live.
func (r *Registry) Store(ctx context.Context, id string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores.Get(id); ok {
		return s
	}
	s := NewStore(StoreOptions{
		ID:       id,
		Boundary: r.opts.Boundary,
		Cache:    r.opts.Cache,
		Persist:  r.opts.Sessions,
		Token:    r.restoreToken(ctx, id),
		TTL:      r.opts.TTL,
		Logger:   r.opts.Logger,
	})
	r.stores.Add(id, s)
	return s
}

func (r *Registry) restoreToken(ctx context.Context, id string) string {
	if r.opts.Sessions == nil || id == "" {
		return ""
	}
	sess, err := r.opts.Sessions.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ports.ErrSessionNotFound) {
			r.opts.Logger.WarnContext(ctx, "session restore failed", "error", err)
		}
		return ""
	}
	return sess.Token
}

// Forget drops the live store for id. The persisted session is untouched.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores.Remove(id)
}

// Len returns the number of live stores.
func (r *Registry) Len() int {
	return r.stores.Len()
}
