package httpx

import (
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

// RedirectParam carries the originally requested path through the login page.
const RedirectParam = "redirect_uri"

// safeRedirectPath ensures the redirect is a same-origin relative path
// starting with a single "/". Returns "/" when invalid. Browsers drop tabs and
// newlines from URLs, so control characters are rejected before the "//" check.
func safeRedirectPath(candidate string) string {
	if candidate == "" || strings.ContainsRune(candidate, '\\') || strings.HasPrefix(candidate, "//") {
		return "/"
	}
	if strings.ContainsFunc(candidate, unicode.IsControl) {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}

// requestedPath returns the path the user was trying to reach. htmx requests
// report the page URL in Hx-Current-Url, which is preferred over the fragment URL.
func requestedPath(r *http.Request) string {
	if IsHTMX(r) {
		if cur := r.Header.Get("Hx-Current-Url"); cur != "" {
			if u, err := url.Parse(cur); err == nil && u.Path != "" {
				return u.RequestURI()
			}
		}
	}
	return r.URL.RequestURI()
}

// withRedirectParam appends redirect_uri to landing unless target is trivial.
func withRedirectParam(landing, target string) string {
	target = safeRedirectPath(target)
	if target == "/" || target == landing {
		return landing
	}
	return landing + "?" + url.Values{RedirectParam: {target}}.Encode()
}

// navigate sends the browser to path: HX-Location for htmx fragments, 303 otherwise.
func navigate(w http.ResponseWriter, r *http.Request, path string) {
	if IsHTMX(r) {
		HTMX(w).Location(path)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// navigateFull forces a full page load, used after the session changes.
func navigateFull(w http.ResponseWriter, r *http.Request, path string) {
	if IsHTMX(r) {
		HTMX(w).Redirect(path)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}
