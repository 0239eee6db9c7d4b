package httpx

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
)

// PageMeta contains metadata for page rendering.
type PageMeta struct {
	Title       string
	PageTitle   string
	CurrentPage string
}

// basePageData constructs the common page data map with user context.
func basePageData(r *http.Request, meta PageMeta) map[string]any {
	st := sessionState(r)
	data := map[string]any{
		"Title":           meta.Title,
		"PageTitle":       meta.PageTitle,
		"CurrentPage":     meta.CurrentPage,
		"CSRFToken":       CSRFToken(r),
		"IsAuthenticated": st.IsAuthenticated(),
		"IsAdmin":         st.HasRole(domainauth.RoleAdmin),
		"Errors":          map[string]string{},
	}
	if st.IsAuthenticated() {
		data["UserName"] = st.Identity.DisplayName()
	}
	return data
}

// TemplateDataBuilder provides a fluent API for building template data maps.
type TemplateDataBuilder struct {
	data map[string]any
	r    *http.Request
}

// NewTemplateData creates a new TemplateDataBuilder initialized with basePageData.
func NewTemplateData(r *http.Request, meta PageMeta) *TemplateDataBuilder {
	return &TemplateDataBuilder{data: basePageData(r, meta), r: r}
}

// PaginationData describes one page of a list view.
type PaginationData struct {
	Page       int
	PageSize   int
	TotalPages int
	BasePath   string
}

// WithPagination adds page numbers and PrevURL/NextURL, preserving filters.
func (b *TemplateDataBuilder) WithPagination(p PaginationData) *TemplateDataBuilder {
	q := b.r.URL.Query()
	b.data["HasPrev"] = p.Page > 1
	b.data["HasNext"] = p.Page < p.TotalPages
	if p.Page > 1 {
		b.data["PrevURL"] = buildPageURL(p.BasePath, q, p.Page-1, p.PageSize)
	}
	if p.Page < p.TotalPages {
		b.data["NextURL"] = buildPageURL(p.BasePath, q, p.Page+1, p.PageSize)
	}
	return b
}

// WithError sets a general error message.
func (b *TemplateDataBuilder) WithError(msg string) *TemplateDataBuilder {
	b.data["Error"] = true
	b.data["ErrorMessage"] = msg
	return b
}

// WithFieldErrors adds field-level validation errors.
func (b *TemplateDataBuilder) WithFieldErrors(errs map[string]string) *TemplateDataBuilder {
	if len(errs) > 0 {
		b.data["Errors"] = errs
	}
	return b
}

// With adds a custom field to the template data.
func (b *TemplateDataBuilder) With(key string, value any) *TemplateDataBuilder {
	b.data[key] = value
	return b
}

// Build returns the final template data map.
func (b *TemplateDataBuilder) Build() map[string]any {
	return b.data
}

// buildPageURL returns basePath with page and page_size set, keeping the other
// non-blank query params and dropping htmx transients.
func buildPageURL(basePath string, q url.Values, page, pageSize int) string {
	qq := make(url.Values, len(q))
	for k, v := range q {
		if strings.HasPrefix(k, "hx-") || strings.HasPrefix(k, "hx_") {
			continue
		}
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				qq.Add(k, s)
			}
		}
	}
	qq.Set("page", strconv.Itoa(page))
	if pageSize > 0 {
		qq.Set("page_size", strconv.Itoa(pageSize))
	}
	return basePath + "?" + qq.Encode()
}
