package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	apperrors "github.com/target/municipal-portal/internal/errors"
	"github.com/target/municipal-portal/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthBoundary  = (*FakeBoundary)(nil)
	_ ports.SessionStore  = (*MemorySessionStore)(nil)
	_ ports.IdentityCache = (*MemoryIdentityCache)(nil)
)

// FakeBoundary simulates the backend auth endpoints with a fixed user table.
// Tokens are "token-<username>-<n>". Any Func field overrides the default behavior.
type FakeBoundary struct {
	WhoAmIFunc func(ctx context.Context, token string) (domainauth.Identity, error)
	LoginFunc  func(ctx context.Context, creds domainauth.Credentials) (domainauth.LoginResult, error)
	LogoutFunc func(ctx context.Context, token string) error

	// Users maps username -> identity; Passwords maps username -> password.
	Users     map[string]domainauth.Identity
	Passwords map[string]string

	mu        sync.Mutex
	tokens    map[string]string
	issued    int
	loggedOut []string
}

// NewFakeBoundary creates a FakeBoundary with an admin ("admin"/"admin123")
// and a regular user ("ana"/"ana123").
func NewFakeBoundary() *FakeBoundary {
	return &FakeBoundary{
		Users: map[string]domainauth.Identity{
			"admin": {ID: "u-admin", Username: "admin", Email: "admin@example.com", Role: domainauth.RoleAdmin, Active: true},
			"ana":   {ID: "u-ana", Username: "ana", Email: "ana@example.com", Role: domainauth.RoleUser, Active: true},
		},
		Passwords: map[string]string{"admin": "admin123", "ana": "ana123"},
		tokens:    make(map[string]string),
	}
}

func (f *FakeBoundary) WhoAmI(ctx context.Context, token string) (domainauth.Identity, error) {
	if f.WhoAmIFunc != nil {
		return f.WhoAmIFunc(ctx, token)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	username, ok := f.tokens[token]
	if !ok {
		return domainauth.Identity{}, apperrors.Unauthorized("Not authenticated")
	}
	return f.Users[username], nil
}

func (f *FakeBoundary) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.LoginResult, error) {
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, creds)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.Users[creds.Username]
	if !ok || f.Passwords[creds.Username] != creds.Password {
		return domainauth.LoginResult{}, apperrors.Unauthorized("Usuário ou senha incorretos")
	}
	f.issued++
	token := fmt.Sprintf("token-%s-%d", creds.Username, f.issued)
	f.tokens[token] = creds.Username
	return domainauth.LoginResult{
		Identity:  id,
		Message:   "Login realizado com sucesso",
		Token:     token,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (f *FakeBoundary) Logout(ctx context.Context, token string) error {
	if f.LogoutFunc != nil {
		return f.LogoutFunc(ctx, token)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

// LoggedOut returns the tokens passed to the default Logout, in order.
func (f *FakeBoundary) LoggedOut() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loggedOut...)
}

// Revoke forgets token as if it expired server-side.
func (f *FakeBoundary) Revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// MemoryIdentityCache is a map-backed identity cache that ignores TTLs.
type MemoryIdentityCache struct {
	mu      sync.Mutex
	entries map[string]domainauth.Identity
	// GetErr, when set, is returned by Get.
	GetErr error
}

// NewMemoryIdentityCache creates an empty cache.
func NewMemoryIdentityCache() *MemoryIdentityCache {
	return &MemoryIdentityCache{entries: make(map[string]domainauth.Identity)}
}

func (c *MemoryIdentityCache) Get(_ context.Context, key string) (domainauth.Identity, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return domainauth.Identity{}, false, c.GetErr
	}
	id, ok := c.entries[key]
	return id, ok, nil
}

func (c *MemoryIdentityCache) Set(_ context.Context, key string, id domainauth.Identity, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = id
	return nil
}

func (c *MemoryIdentityCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Has reports whether key is cached.
func (c *MemoryIdentityCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}
