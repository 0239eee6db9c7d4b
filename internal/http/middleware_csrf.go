package httpx

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// CSRFCookieName is the double-submit cookie read by htmx via app.js.
	CSRFCookieName = "csrf_token"
	// CSRFHeaderName is set on every htmx request by app.js.
	CSRFHeaderName = "X-Csrf-Token"
	// CSRFFormField is the hidden input rendered into plain forms.
	CSRFFormField = "csrf_token"

	csrfTokenBytes = 32
	csrfCookieTTL  = 12 * time.Hour
)

// CSRFConfig holds configuration for CSRF protection middleware.
type CSRFConfig struct {
	CookieDomain string
	// Secure forces the Secure attribute; otherwise it follows the request scheme.
	Secure bool
	Logger *slog.Logger
}

// CSRF protects state-changing requests with a double-submit cookie.
// Safe methods only receive (or keep) the token; every other method must echo
// it in the X-Csrf-Token header or the csrf_token form field.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := csrfCookie(r)
			if token == "" {
				var err error
				if token, err = newCSRFToken(); err != nil {
					cfg.Logger.ErrorContext(r.Context(), "csrf token generation failed", "error", err)
					http.Error(w, "unable to generate CSRF token", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					Domain:   cfg.CookieDomain,
					HttpOnly: false, // app.js copies it into the htmx header
					Secure:   cfg.Secure || isSecureRequest(r),
					SameSite: http.SameSiteStrictMode,
					MaxAge:   int(csrfCookieTTL.Seconds()),
				})
			}
			r = r.WithContext(context.WithValue(r.Context(), csrfTokenKey{}, token))

			if !isSafeMethod(r.Method) && !csrfMatches(r, token) {
				cfg.Logger.WarnContext(r.Context(), "csrf validation failed",
					"method", r.Method, "path", r.URL.Path)
				if IsHTMX(r) {
					triggerToast(w, "Sessão expirada. Recarregue a página.", "error")
				}
				http.Error(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

func csrfCookie(r *http.Request) string {
	c, err := r.Cookie(CSRFCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// newCSRFToken fails closed when the system RNG is unavailable.
func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// isSecureRequest honours TLS and a comma separated X-Forwarded-Proto.
func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	for _, proto := range strings.Split(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}

// csrfMatches compares the header, then the form field, in constant time.
func csrfMatches(r *http.Request, cookieToken string) bool {
	if cookieToken == "" {
		return false
	}
	if h := r.Header.Get(CSRFHeaderName); h != "" {
		return subtle.ConstantTimeCompare([]byte(h), []byte(cookieToken)) == 1
	}
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/x-www-form-urlencoded") && !strings.HasPrefix(ct, "multipart/form-data") {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	f := r.PostFormValue(CSRFFormField)
	return f != "" && subtle.ConstantTimeCompare([]byte(f), []byte(cookieToken)) == 1
}

type csrfTokenKey struct{}

// CSRFToken returns the token for embedding in forms and meta tags.
func CSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfTokenKey{}).(string)
	return token
}
