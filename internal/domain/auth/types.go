package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"fmt"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Identity is the authenticated subject as reported by the backend.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Active   bool   `json:"is_active"`
}

// DisplayName prefers the username and falls back to the email.
func (i Identity) DisplayName() string {
	if i.Username != "" {
		return i.Username
	}
	return i.Email
}

// StateKind tags a SessionState.
type StateKind int

const (
	// StateUnresolved means the initial check has not settled yet.
	StateUnresolved StateKind = iota
	// StateAnonymous means there is no identity.
	StateAnonymous
	// StateAuthenticated means Identity holds the current subject.
	StateAuthenticated
)

func (k StateKind) String() string {
	switch k {
	case StateUnresolved:
		return "unresolved"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// SessionState is exactly one of Unresolved, Anonymous or Authenticated(identity).
// Identity is only meaningful when Kind is StateAuthenticated.
type SessionState struct {
	Kind     StateKind
	Identity Identity
}

// Unresolved returns the state used while the initial check is in flight.
func Unresolved() SessionState { return SessionState{Kind: StateUnresolved} }

// Anonymous returns the state with no identity.
func Anonymous() SessionState { return SessionState{Kind: StateAnonymous} }

// Authenticated returns the state carrying id.
func Authenticated(id Identity) SessionState {
	return SessionState{Kind: StateAuthenticated, Identity: id}
}

// IsAuthenticated reports whether the state carries an identity.
func (s SessionState) IsAuthenticated() bool { return s.Kind == StateAuthenticated }

// HasRole reports whether the state is authenticated with the given role.
func (s SessionState) HasRole(r Role) bool {
	return s.Kind == StateAuthenticated && s.Identity.Role == r
}

// Credentials are submitted by the login form.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is what the backend returns for a successful login.
// Token is the opaque backend session token; ExpiresAt is zero when unknown.
type LoginResult struct {
	Identity  Identity
	Message   string
	Token     string
	ExpiresAt time.Time
}

// Outcome is returned to callers of a login attempt. It never carries an error;
// failures are reported via OK=false and a human-readable Message.
type Outcome struct {
	OK      bool
	Message string
}

// Session is the server-side record persisted per browser session.
// ID is the opaque browser session identifier stored in the session cookie.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}
