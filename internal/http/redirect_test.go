package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeRedirectPath(t *testing.T) {
	tests := map[string]string{
		"":                       "/",
		"/dashboard":             "/dashboard",
		"/pedidos?q=abc":         "/pedidos?q=abc",
		"https://evil.example/x": "/",
		"//evil.example/x":       "/",
		"///evil.example":        "/",
		"////evil.example/x":     "/",
		"/\t/evil.example":       "/",
		"/\n/evil.example":       "/",
		`/\evil.example`:         "/",
		"dashboard":              "/",
		"javascript:alert(1)":    "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeRedirectPath(in), "input %q", in)
	}
}

func TestWithRedirectParam(t *testing.T) {
	assert.Equal(t, "/login", withRedirectParam("/login", "/"))
	assert.Equal(t, "/login", withRedirectParam("/login", "/login"))
	assert.Equal(t, "/login", withRedirectParam("/login", "https://evil.example"))
	assert.Equal(t, "/login?redirect_uri=%2Fadmin%2Fusers", withRedirectParam("/login", "/admin/users"))
}

func TestRequestedPath(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/dashboard/table?page=2", nil)
	assert.Equal(t, "/dashboard/table?page=2", requestedPath(r))

	r = htmxRequest(r)
	r.Header.Set("Hx-Current-Url", "http://portal.local/dashboard?municipio=Curitiba")
	assert.Equal(t, "/dashboard?municipio=Curitiba", requestedPath(r))
}

func TestNavigate(t *testing.T) {
	w := httptest.NewRecorder()
	navigate(w, httptest.NewRequest(http.MethodGet, "/x", nil), "/login")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	navigate(w, htmxRequest(httptest.NewRequest(http.MethodGet, "/x", nil)), "/login")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.JSONEq(t, `{"path":"/login","target":"#content"}`, w.Header().Get("Hx-Location"))

	w = httptest.NewRecorder()
	navigateFull(w, htmxRequest(httptest.NewRequest(http.MethodPost, "/x", nil)), "/")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "/", w.Header().Get("Hx-Redirect"))
}
