// Package memory provides in-process session persistence and identity caching
// for single-instance deployments and local development.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/ports"
)

var (
	_ ports.SessionStore  = (*SessionStore)(nil)
	_ ports.IdentityCache = (*IdentityCache)(nil)
)

const defaultSize = 10000

// SessionStore keeps sessions in a bounded LRU. maxTTL bounds how long any
// entry lives; each session additionally expires at its own ExpiresAt.
type SessionStore struct {
	lru *expirable.LRU[string, domainauth.Session]
	now func() time.Time
}

// NewSessionStore creates a store holding at most size sessions.
func NewSessionStore(size int, maxTTL time.Duration) *SessionStore {
	if size <= 0 {
		size = defaultSize
	}
	return &SessionStore{
		lru: expirable.NewLRU[string, domainauth.Session](size, nil, maxTTL),
		now: time.Now,
	}
}

func (s *SessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	if !s.now().Before(sess.ExpiresAt) {
		return errors.New("session is expired")
	}
	s.lru.Add(sess.ID, sess)
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	sess, ok := s.lru.Get(id)
	if !ok {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		s.lru.Remove(id)
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.lru.Remove(id)
	return nil
}

type cachedIdentity struct {
	id        domainauth.Identity
	expiresAt time.Time
}

// IdentityCache is a bounded LRU of identities with per-entry expiry.
type IdentityCache struct {
	lru *expirable.LRU[string, cachedIdentity]
	now func() time.Time
}

// NewIdentityCache creates a cache holding at most size identities for at most maxTTL.
func NewIdentityCache(size int, maxTTL time.Duration) *IdentityCache {
	if size <= 0 {
		size = defaultSize
	}
	return &IdentityCache{
		lru: expirable.NewLRU[string, cachedIdentity](size, nil, maxTTL),
		now: time.Now,
	}
}

func (c *IdentityCache) Get(_ context.Context, key string) (domainauth.Identity, bool, error) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return domainauth.Identity{}, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.lru.Remove(key)
		return domainauth.Identity{}, false, nil
	}
	return entry.id, true, nil
}

// Set stores id. A non-positive ttl falls back to the cache-wide maximum.
func (c *IdentityCache) Set(_ context.Context, key string, id domainauth.Identity, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	entry := cachedIdentity{id: id}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, entry)
	return nil
}

func (c *IdentityCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}
