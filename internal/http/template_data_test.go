package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	mockauth "github.com/target/municipal-portal/internal/mocks/auth"
)

func TestNewTemplateData_Anonymous(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	data := NewTemplateData(r, PageMeta{Title: "Início", CurrentPage: PageHome}).Build()

	assert.Equal(t, "Início", data["Title"])
	assert.Equal(t, false, data["IsAuthenticated"])
	assert.Equal(t, false, data["IsAdmin"])
	assert.NotContains(t, data, "UserName")
	assert.Equal(t, map[string]string{}, data["Errors"])
}

func TestNewTemplateData_Admin(t *testing.T) {
	f := mockauth.NewFakeBoundary()
	store := storeIn(t, f, tokenFor(t, f, "admin", "admin123"))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(withSessionStore(r.Context(), store))

	data := NewTemplateData(r, PageMeta{}).
		WithError("falhou").
		WithFieldErrors(map[string]string{"email": "inválido"}).
		With("Extra", 1).
		Build()

	assert.Equal(t, true, data["IsAuthenticated"])
	assert.Equal(t, true, data["IsAdmin"])
	assert.Equal(t, "admin", data["UserName"])
	assert.Equal(t, "falhou", data["ErrorMessage"])
	assert.Equal(t, map[string]string{"email": "inválido"}, data["Errors"])
	assert.Equal(t, 1, data["Extra"])
}

func TestWithPagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/dashboard?municipio=cur&page=2&hx-request=1&estado=", nil)
	data := NewTemplateData(r, PageMeta{}).
		WithPagination(PaginationData{Page: 2, PageSize: 25, TotalPages: 3, BasePath: "/dashboard"}).
		Build()

	assert.Equal(t, true, data["HasPrev"])
	assert.Equal(t, true, data["HasNext"])
	assert.Equal(t, "/dashboard?municipio=cur&page=1&page_size=25", data["PrevURL"])
	assert.Equal(t, "/dashboard?municipio=cur&page=3&page_size=25", data["NextURL"])

	data = NewTemplateData(r, PageMeta{}).
		WithPagination(PaginationData{Page: 1, TotalPages: 1, BasePath: "/dashboard"}).
		Build()
	assert.Equal(t, false, data["HasPrev"])
	assert.NotContains(t, data, "NextURL")
}

func TestBuildPageURL_KeepsRepeatedParams(t *testing.T) {
	q := url.Values{"tag": {"a", "b"}}
	assert.Equal(t, "/x?page=2&tag=a&tag=b", buildPageURL("/x", q, 2, 0))
}
