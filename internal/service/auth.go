package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/session"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Registry *session.Registry
	Logger   *slog.Logger
}

// AuthService maps browser session ids to session stores and runs the
// login and logout flows against them.
type AuthService struct {
	registry *session.Registry
	logger   *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Registry == nil {
		panic("AuthService requires a session registry")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{registry: opts.Registry, logger: logger}
}

// Session returns the store for the browser session id. Malformed or empty ids
// get a fresh id; fresh reports whether the caller must set a new cookie.
func (s *AuthService) Session(ctx context.Context, id string) (store *session.Store, sessionID string, fresh bool) {
	if _, err := uuid.Parse(id); err != nil {
		id = s.registry.NewID()
		fresh = true
	}
	return s.registry.Store(ctx, id), id, fresh
}

// Login authenticates store with creds. Blank fields are rejected locally.
func (s *AuthService) Login(ctx context.Context, store *session.Store, creds domainauth.Credentials) domainauth.Outcome {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		return domainauth.Outcome{OK: false, Message: "Informe usuário e senha"}
	}
	out := store.Login(ctx, creds)
	if out.OK {
		s.logger.InfoContext(ctx, "user logged in", "username", creds.Username)
	}
	return out
}

// Refresh re-verifies store against the backend, for example after the
// signed-in user's own account was edited.
func (s *AuthService) Refresh(ctx context.Context, store *session.Store) domainauth.SessionState {
	store.Recheck(ctx)
	st := store.State()
	s.logger.InfoContext(ctx, "session re-verified", "state", st.Kind)
	return st
}

// Logout ends the session. It always succeeds locally.
func (s *AuthService) Logout(ctx context.Context, store *session.Store) {
	store.Logout(ctx)
	s.registry.Forget(store.ID())
}
