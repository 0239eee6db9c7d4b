package httpx

import (
	"context"
	"net/http"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/session"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

// withSessionStore returns a child context carrying the browser's session store.
func withSessionStore(ctx context.Context, s *session.Store) context.Context {
	if s == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session store attached by the Sessions middleware.
func SessionFromContext(ctx context.Context) (*session.Store, bool) {
	s, ok := ctx.Value(sessionKey{}).(*session.Store)
	return s, ok && s != nil
}

// sessionState returns the caller's state, Anonymous when no store is attached.
func sessionState(r *http.Request) domainauth.SessionState {
	if s, ok := SessionFromContext(r.Context()); ok {
		return s.State()
	}
	return domainauth.Anonymous()
}

// requestInfo is shared by the outer middleware and filled in as the request
// travels inward.
type requestInfo struct {
	id    string
	route string
}

type requestInfoKey struct{}

func withRequestInfo(ctx context.Context, info *requestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

// RequestIDFromContext returns the request id assigned by the RequestID middleware.
func RequestIDFromContext(ctx context.Context) string {
	if info := requestInfoFrom(ctx); info != nil {
		return info.id
	}
	return ""
}
