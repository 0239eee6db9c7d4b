// Package session holds the per-browser session store: the single writer of
// "who is using the application right now".
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	apperrors "github.com/target/municipal-portal/internal/errors"
	"github.com/target/municipal-portal/internal/ports"
)

// DefaultTTL bounds how long a session and its cached identity live when the
// backend does not report a token expiry.
const DefaultTTL = 7 * 24 * time.Hour

// Persister saves or forgets the backend token of a browser session.
type Persister interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Delete(ctx context.Context, id string) error
}

// StoreOptions configures a Store.
type StoreOptions struct {
	// ID is the browser session id.
	ID       string
	Boundary ports.AuthBoundary
	Cache    ports.IdentityCache
	// Persist records token changes. Optional.
	Persist Persister
	// Token restores a previously persisted backend token. Optional.
	Token  string
	TTL    time.Duration
	Logger *slog.Logger
	Now    func() time.Time
}

// Store is the session state machine for one browser session.
//
// State starts Unresolved and settles to Anonymous or Authenticated on Initialize.
// Login and Logout are the only other transitions; every transition happens
// under mu. generation counts applied transitions and discards identity checks
// that were overtaken by one. attempts counts login starts and logouts and
// discards login responses that were overtaken by a later login or logout.
type Store struct {
	id       string
	boundary ports.AuthBoundary
	cache    ports.IdentityCache
	persist  Persister
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	init singleflight.Group

	mu         sync.RWMutex
	state      domainauth.SessionState
	token      string
	generation uint64
	attempts   uint64
}

// NewStore creates a Store in the Unresolved state.
func NewStore(opts StoreOptions) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		id:       opts.ID,
		boundary: opts.Boundary,
		cache:    opts.Cache,
		persist:  opts.Persist,
		ttl:      opts.TTL,
		logger:   opts.Logger.With("session", shortID(opts.ID)),
		now:      opts.Now,
		state:    domainauth.Unresolved(),
		token:    opts.Token,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ID returns the browser session id.
func (s *Store) ID() string { return s.id }

// IdentityCacheKey is the identity cache key of session id.
func IdentityCacheKey(id string) string { return "identity:" + id }

func (s *Store) cacheKey() string { return IdentityCacheKey(s.id) }

// State returns the current session state.
func (s *Store) State() domainauth.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the backend token for authenticated calls.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether the state carries an identity.
// Unresolved counts as not authenticated.
func (s *Store) IsAuthenticated() bool { return s.State().IsAuthenticated() }

// HasRole reports whether the current identity has role r.
func (s *Store) HasRole(r domainauth.Role) bool { return s.State().HasRole(r) }

// Initialize resolves the state if it is still Unresolved. It never fails:
// backend errors degrade to the cached identity or to Anonymous.
// Concurrent callers share one resolution.
func (s *Store) Initialize(ctx context.Context) {
	if s.State().Kind != domainauth.StateUnresolved {
		return
	}
	//nolint:errcheck // resolve never returns an error
	s.init.Do("init", func() (any, error) {
		s.resolve(ctx)
		return nil, nil
	})
}

// Recheck re-enters Unresolved and resolves again against the backend.
// It returns once the state has settled.
func (s *Store) Recheck(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	s.state = domainauth.Unresolved()
	s.mu.Unlock()
	s.Initialize(ctx)
}

// resolve runs identity checks until one settles the state or another
// transition leaves it resolved. A check overtaken by a Recheck runs again.
func (s *Store) resolve(ctx context.Context) {
	for {
		s.mu.Lock()
		if s.state.Kind != domainauth.StateUnresolved {
			s.mu.Unlock()
			return
		}
		gen := s.generation
		token := s.token
		s.mu.Unlock()

		if s.check(ctx, gen, token) {
			return
		}
		if ctx.Err() != nil {
			s.settle(ctx, s.currentGeneration(), domainauth.Anonymous())
			return
		}
	}
}

func (s *Store) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// check asks the backend who owns token and reports whether the answer was
// applied. Only a network failure falls back to the cached identity; any
// other backend answer is definitive.
func (s *Store) check(ctx context.Context, gen uint64, token string) bool {
	if token == "" {
		return s.settle(ctx, gen, domainauth.Anonymous())
	}

	cached, hit := s.readCache(ctx)
	if hit {
		// Optimistic hint while the backend answers; visible to concurrent readers.
		s.mu.Lock()
		if s.generation == gen && s.state.Kind == domainauth.StateUnresolved {
			s.state = domainauth.Authenticated(cached)
		}
		s.mu.Unlock()
	}

	id, err := s.boundary.WhoAmI(ctx, token)
	switch {
	case err == nil:
		return s.settleAuthenticated(ctx, gen, id)
	case apperrors.IsNetwork(err):
		s.logger.WarnContext(ctx, "backend unreachable, using cached identity if any", "error", err, "cached", hit)
		if hit {
			return s.settle(ctx, gen, domainauth.Authenticated(cached))
		}
		return s.settle(ctx, gen, domainauth.Anonymous())
	default:
		s.logger.InfoContext(ctx, "backend rejected session token", "error", err)
		return s.settleRejected(ctx, gen)
	}
}

func (s *Store) readCache(ctx context.Context) (domainauth.Identity, bool) {
	if s.cache == nil {
		return domainauth.Identity{}, false
	}
	id, ok, err := s.cache.Get(ctx, s.cacheKey())
	if err != nil {
		s.logger.WarnContext(ctx, "identity cache read failed", "error", err)
		return domainauth.Identity{}, false
	}
	return id, ok
}

// settle applies st if no newer transition happened since gen was read.
func (s *Store) settle(_ context.Context, gen uint64, st domainauth.SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	s.state = st
	return true
}

func (s *Store) settleAuthenticated(ctx context.Context, gen uint64, id domainauth.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	s.state = domainauth.Authenticated(id)
	s.writeCacheLocked(ctx, id)
	return true
}

func (s *Store) settleRejected(ctx context.Context, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	s.clearLocked(ctx)
	return true
}

// Login authenticates against the backend. Failures are reported in the
// Outcome and leave the state unchanged. A response that arrives after a newer
// login or a logout is discarded.
func (s *Store) Login(ctx context.Context, creds domainauth.Credentials) domainauth.Outcome {
	s.mu.Lock()
	s.attempts++
	attempt := s.attempts
	s.mu.Unlock()

	res, err := s.boundary.Login(ctx, creds)
	if err != nil {
		s.logger.InfoContext(ctx, "login failed", "username", creds.Username, "error", err)
		return domainauth.Outcome{OK: false, Message: loginFailureMessage(err)}
	}

	s.mu.Lock()
	if s.attempts != attempt {
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "discarding superseded login response", "username", creds.Username)
		s.revoke(ctx, res.Token)
		return domainauth.Outcome{OK: false, Message: "Sessão encerrada antes da conclusão do login"}
	}
	s.generation++
	s.state = domainauth.Authenticated(res.Identity)
	s.token = res.Token
	s.persistLocked(ctx, res.ExpiresAt)
	s.writeCacheLocked(ctx, res.Identity)
	s.mu.Unlock()

	msg := res.Message
	if msg == "" {
		msg = "Login realizado com sucesso"
	}
	return domainauth.Outcome{OK: true, Message: msg}
}

func loginFailureMessage(err error) string {
	switch {
	case apperrors.IsNetwork(err):
		return "Não foi possível conectar ao servidor"
	case apperrors.IsUnauthorized(err), apperrors.IsValidation(err), apperrors.IsForbidden(err):
		if msg := apperrors.Message(err); msg != "" {
			return msg
		}
		return "Credenciais inválidas"
	default:
		return "Erro ao realizar login"
	}
}

// revoke logs out an orphaned backend token without touching local state.
func (s *Store) revoke(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.boundary.Logout(ctx, token); err != nil {
		s.logger.WarnContext(ctx, "revoking superseded token failed", "error", err)
	}
}

// Logout revokes the backend token best-effort, then always clears the cached
// identity and moves to Anonymous. Any login still in flight is discarded.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.attempts++
	token := s.token
	s.mu.Unlock()

	if token != "" {
		if err := s.boundary.Logout(ctx, token); err != nil {
			s.logger.WarnContext(ctx, "backend logout failed", "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.clearLocked(ctx)
}

// Invalidate drops the identity after an authenticated backend call was
// rejected as Unauthorized. It does not call the backend.
func (s *Store) Invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.attempts++
	s.clearLocked(ctx)
}

// clearLocked resets to Anonymous and forgets the token and cached identity.
func (s *Store) clearLocked(ctx context.Context) {
	s.state = domainauth.Anonymous()
	s.token = ""
	if s.cache != nil {
		if err := s.cache.Delete(ctx, s.cacheKey()); err != nil {
			s.logger.WarnContext(ctx, "identity cache delete failed", "error", err)
		}
	}
	if s.persist != nil {
		if err := s.persist.Delete(ctx, s.id); err != nil {
			s.logger.WarnContext(ctx, "session delete failed", "error", err)
		}
	}
}

func (s *Store) writeCacheLocked(ctx context.Context, id domainauth.Identity) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(), id, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "identity cache write failed", "error", err)
	}
}

func (s *Store) persistLocked(ctx context.Context, expiresAt time.Time) {
	if s.persist == nil {
		return
	}
	limit := s.now().Add(s.ttl)
	if expiresAt.IsZero() || expiresAt.After(limit) {
		expiresAt = limit
	}
	err := s.persist.Save(ctx, domainauth.Session{ID: s.id, Token: s.token, ExpiresAt: expiresAt})
	if err != nil {
		s.logger.WarnContext(ctx, "session save failed", "error", err)
	}
}
