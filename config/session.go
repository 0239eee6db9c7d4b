package config

import (
	"fmt"
	"strings"
	"time"
)

// SessionStoreKind selects where browser sessions are persisted.
type SessionStoreKind string

const (
	// SessionStoreMemory keeps sessions in process; they are lost on restart.
	SessionStoreMemory SessionStoreKind = "memory"
	// SessionStoreRedis keeps sessions and cached identities in Redis.
	SessionStoreRedis SessionStoreKind = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionStoreKind.
func (k *SessionStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "redis":
		*k = SessionStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionStoreKind: %q (valid options: memory, redis)", v)
	}
}

// SessionConfig controls browser sessions.
type SessionConfig struct {
	CookieName string `env:"COOKIE_NAME" envDefault:"session_id"`

	// TTL bounds a session's lifetime. It is shortened to the backend token
	// expiry when the token carries one.
	TTL time.Duration `env:"TTL" envDefault:"168h"`

	Store SessionStoreKind `env:"STORE" envDefault:"memory"`

	// CacheSize caps the number of live sessions held in memory.
	CacheSize int `env:"CACHE_SIZE" envDefault:"10000"`

	// InitWait bounds how long a request waits for a session's first
	// identity check before the loading page is shown.
	InitWait time.Duration `env:"INIT_WAIT" envDefault:"2s"`
}

// Sanitize restores defaults for empty or non-positive values.
func (s *SessionConfig) Sanitize() {
	s.CookieName = strings.TrimSpace(s.CookieName)
	if s.CookieName == "" {
		s.CookieName = "session_id"
	}
	if s.TTL <= 0 {
		s.TTL = 7 * 24 * time.Hour
	}
	if s.Store == "" {
		s.Store = SessionStoreMemory
	}
	if s.CacheSize <= 0 {
		s.CacheSize = 10000
	}
	if s.InitWait < 0 {
		s.InitWait = 0
	}
}
