package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/target/municipal-portal/internal/gate"
)

// GateConfig holds configuration for the Gate middleware.
type GateConfig struct {
	Table *gate.Table
	// Loading renders the placeholder shown while the session is Unresolved.
	Loading http.HandlerFunc
	// Observe receives every decision. Optional.
	Observe func(kind, reason string)
	Logger  *slog.Logger
}

// Gate applies the route table to every request before it reaches a handler.
// Redirects to the anonymous landing carry the requested path in redirect_uri.
func Gate(cfg GateConfig) func(http.Handler) http.Handler {
	if cfg.Table == nil {
		panic("Gate middleware requires a route table")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		var gated http.Handler
		gated = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, reason := cfg.Table.DecideWithReason(r.URL.Path, sessionState(r))
			if cfg.Observe != nil {
				cfg.Observe(d.Kind.String(), string(reason))
			}

			switch d.Kind {
			case gate.Render:
				next.ServeHTTP(w, r)
			case gate.Loading:
				if cfg.Loading == nil {
					w.Header().Set("Retry-After", "1")
					http.Error(w, "session check in progress", http.StatusServiceUnavailable)
					return
				}
				cfg.Loading(w, r)
			case gate.Redirect:
				target := d.Path
				if reason == gate.ReasonAnonymous {
					target = withRedirectParam(d.Path, requestedPath(r))
				}
				logger.DebugContext(r.Context(), "gate redirect",
					"path", r.URL.Path, "to", target, "reason", string(reason))
				if IsHTMX(r) && inlineDepth(r) < maxInlineRedirects {
					serveReplacing(w, r, target, gated)
					return
				}
				navigate(w, r, target)
			}
		})
		return gated
	}
}

// maxInlineRedirects bounds chained gate redirects served in one response.
const maxInlineRedirects = 2

type inlineDepthKey struct{}

func inlineDepth(r *http.Request) int {
	d, _ := r.Context().Value(inlineDepthKey{}).(int)
	return d
}

// serveReplacing answers an htmx request with the content of target instead
// of a redirect, and tells htmx to replace the current history entry with
// target. HX-Location would push a new entry and leave the guarded URL in
// history.
func serveReplacing(w http.ResponseWriter, r *http.Request, target string, h http.Handler) {
	u, err := url.Parse(target)
	if err != nil {
		navigate(w, r, target)
		return
	}
	ctx := context.WithValue(r.Context(), inlineDepthKey{}, inlineDepth(r)+1)
	sub := r.Clone(ctx)
	sub.Method = http.MethodGet
	sub.URL = r.URL.ResolveReference(u)
	sub.RequestURI = u.RequestURI()
	sub.Body = http.NoBody
	sub.ContentLength = 0
	sub.Form, sub.PostForm = nil, nil
	sub.Header.Del("Content-Type")
	sub.Header.Set("Hx-Target", "content")
	sub.Header.Del("Hx-Trigger")
	sub.Header.Del("Hx-Trigger-Name")

	h.ServeHTTP(&replaceWriter{ResponseWriter: w, url: target}, sub)
}

// replaceWriter adds the replace-navigation headers unless the inner handler
// redirected on its own.
type replaceWriter struct {
	http.ResponseWriter
	url         string
	wroteHeader bool
}

func (w *replaceWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	h := w.Header()
	if h.Get("Hx-Location") == "" && h.Get("Hx-Redirect") == "" {
		h.Del("Hx-Push-Url")
		h.Set("Hx-Replace-Url", w.url)
		h.Set("Hx-Retarget", "#content")
		h.Set("Hx-Reswap", "innerHTML")
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *replaceWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *replaceWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
