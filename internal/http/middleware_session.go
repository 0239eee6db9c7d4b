package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/municipal-portal/internal/session"
)

// DefaultSessionCookieName names the browser session cookie when unconfigured.
const DefaultSessionCookieName = "session_id"

// SessionResolver maps a browser session id to its store.
type SessionResolver interface {
	Session(ctx context.Context, id string) (store *session.Store, sessionID string, fresh bool)
}

// SessionCookies describes the browser session cookie.
type SessionCookies struct {
	Name   string
	Domain string
	Secure bool
	TTL    time.Duration
}

func (c SessionCookies) name() string {
	if c.Name == "" {
		return DefaultSessionCookieName
	}
	return c.Name
}

func (c SessionCookies) set(w http.ResponseWriter, r *http.Request, id string) {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    id,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure || isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func (c SessionCookies) clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure || isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
}

// SessionConfig holds configuration for the Sessions middleware.
type SessionConfig struct {
	Resolver SessionResolver
	Cookies  SessionCookies
	// InitWait bounds how long a request waits for the initial identity check.
	// Past it the request proceeds Unresolved and the check keeps running.
	// Zero waits for the check to finish.
	InitWait time.Duration
	// InitTimeout bounds the detached check itself.
	InitTimeout time.Duration
	Logger      *slog.Logger
}

// Sessions attaches the browser's session store to the request context and
// runs its initial check. New visitors get a fresh session cookie.
func Sessions(cfg SessionConfig) func(http.Handler) http.Handler {
	if cfg.Resolver == nil {
		panic("Sessions middleware requires a session resolver")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(cfg.Cookies.name()); err == nil {
				id = c.Value
			}
			store, id, fresh := cfg.Resolver.Session(r.Context(), id)
			if fresh {
				cfg.Cookies.set(w, r, id)
				logger.DebugContext(r.Context(), "issued session cookie", "request_id", RequestIDFromContext(r.Context()))
			}
			initialize(r.Context(), store, cfg)
			next.ServeHTTP(w, r.WithContext(withSessionStore(r.Context(), store)))
		})
	}
}

func initialize(ctx context.Context, store *session.Store, cfg SessionConfig) {
	if cfg.InitWait <= 0 {
		store.Initialize(ctx)
		return
	}
	timeout := cfg.InitTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		store.Initialize(bg)
	}()
	select {
	case <-done:
	case <-time.After(cfg.InitWait):
	case <-ctx.Done():
	}
}
