package httpx

import (
	"context"
	"html"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/domain/leadership"
	"github.com/target/municipal-portal/internal/domain/orders"
	"github.com/target/municipal-portal/internal/domain/roads"
	apperrors "github.com/target/municipal-portal/internal/errors"
	"github.com/target/municipal-portal/internal/service"
	"github.com/target/municipal-portal/internal/session"
)

const (
	msgBackendDown = "Não foi possível conectar ao servidor. Tente novamente em instantes."
	msgUnexpected  = "Ocorreu um erro inesperado. Tente novamente."
	msgForbidden   = "Você não tem permissão para acessar esta página."
	msgNotFound    = "Página não encontrada."
	msgFixBelow    = "Corrija os campos destacados."
)

// AuthFlows runs login and logout against a session store.
type AuthFlows interface {
	Login(ctx context.Context, store *session.Store, creds domainauth.Credentials) domainauth.Outcome
	Logout(ctx context.Context, store *session.Store)
	Refresh(ctx context.Context, store *session.Store) domainauth.SessionState
}

// UsersService is the admin user management the UI needs.
type UsersService interface {
	List(ctx context.Context, c service.Caller) ([]domainauth.Identity, error)
	Get(ctx context.Context, c service.Caller, id string) (domainauth.Identity, error)
	Create(ctx context.Context, c service.Caller, in domainauth.UserInput) (domainauth.Identity, error)
	Update(ctx context.Context, c service.Caller, id string, in domainauth.UserInput) (domainauth.Identity, error)
	Delete(ctx context.Context, c service.Caller, id string) error
}

// RoadsService serves the rural roads dataset.
type RoadsService interface {
	Query(ctx context.Context, c service.Caller, q service.DatasetQuery) (service.DatasetView, error)
	Export(ctx context.Context, c service.Caller, q service.DatasetQuery) ([]roads.Record, error)
}

// OrdersService manages equipment orders.
type OrdersService interface {
	Overview(ctx context.Context, c service.Caller, query string) (service.OrdersOverview, error)
	Get(ctx context.Context, c service.Caller, id string) (orders.Order, error)
	Create(ctx context.Context, c service.Caller, d orders.Draft) (orders.Order, error)
	Update(ctx context.Context, c service.Caller, id string, d orders.Draft) (orders.Order, error)
	Delete(ctx context.Context, c service.Caller, id string) error
	Report(ctx context.Context, c service.Caller) (string, error)
}

// LeadershipService manages municipalities and leadership requests.
type LeadershipService interface {
	Municipalities(ctx context.Context, c service.Caller, query string) ([]orders.Municipality, error)
	Overview(ctx context.Context, c service.Caller, municipio string) (service.LeadershipOverview, error)
	Create(ctx context.Context, c service.Caller, r leadership.Request) (leadership.Request, error)
	Delete(ctx context.Context, c service.Caller, id string) error
}

var (
	_ AuthFlows         = (*service.AuthService)(nil)
	_ UsersService      = (*service.UserService)(nil)
	_ RoadsService      = (*service.RoadsService)(nil)
	_ OrdersService     = (*service.OrderService)(nil)
	_ LeadershipService = (*service.LeadershipService)(nil)
)

// Landings are the fixed redirect targets shared with the gate.
type Landings struct {
	Anonymous    string
	Unauthorized string
	// AfterLogin is used when the login form carries no redirect_uri.
	AfterLogin string
}

// UIHandlers serves browser-facing routes.
type UIHandlers struct {
	T          *TemplateRenderer
	Auth       AuthFlows
	Users      UsersService
	Roads      RoadsService
	Orders     OrdersService
	Leadership LeadershipService
	Cookies    SessionCookies
	Landings   Landings
	// RefreshInterval drives the dashboard auto refresh.
	RefreshInterval time.Duration
	PageSize        int
	IsDev           bool // Development mode flag for enhanced error reporting
	Logger          *slog.Logger
}

// logger returns the configured logger or falls back to slog.Default().
func (h *UIHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// caller returns the session store backing authenticated service calls.
func (h *UIHandlers) caller(r *http.Request) (*session.Store, bool) {
	return SessionFromContext(r.Context())
}

// renderPage renders data as a full page, or as the content fragment plus
// out-of-band title and nav updates for htmx navigation.
func (h *UIHandlers) renderPage(w http.ResponseWriter, r *http.Request, status int, data map[string]any) {
	name := "layout"
	if WantsPartial(r) {
		name = "partial"
		data["OOB"] = true
		SetHXTrigger(w, "nav:activate", map[string]string{"path": r.URL.Path})
	}
	if err := h.T.Render(w, status, name, data); err != nil {
		h.logAndRenderTemplateError(w, r, err, name)
	}
}

// renderFragment renders a single named template, for htmx swaps of part of a page.
func (h *UIHandlers) renderFragment(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if err := h.T.Render(w, http.StatusOK, name, data); err != nil {
		h.logAndRenderTemplateError(w, r, err, name)
	}
}

// renderError renders the error page with status.
func (h *UIHandlers) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := NewTemplateData(r, PageMeta{Title: "Erro", PageTitle: "Erro", CurrentPage: PageError}).
		WithError(message).
		With("Status", status).
		Build()
	h.renderPage(w, r, status, data)
}

// NotFound renders the 404 page.
func (h *UIHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, msgNotFound)
}

// Loading renders the placeholder that re-requests the page until the
// session check settles.
func (h *UIHandlers) Loading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	data := NewTemplateData(r, PageMeta{Title: "Carregando", PageTitle: "Carregando", CurrentPage: PageLoading}).
		With("RetryURL", r.URL.RequestURI()).
		Build()
	h.renderPage(w, r, http.StatusOK, data)
}

// handleError maps service errors to responses; JSON callers get WriteError.
// Validation errors are handled by the form handlers before reaching here.
func (h *UIHandlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if wantsJSON(r) {
		if apperrors.GetCode(err) == "" {
			h.logger().ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		}
		WriteError(w, err)
		return
	}
	switch {
	case apperrors.IsUnauthorized(err):
		h.logger().InfoContext(r.Context(), "backend rejected session", "path", r.URL.Path)
		navigateFull(w, r, withRedirectParam(h.Landings.Anonymous, requestedPath(r)))
	case apperrors.IsForbidden(err):
		triggerToast(w, msgForbidden, "error")
		navigate(w, r, h.Landings.Unauthorized)
	case apperrors.IsNotFound(err):
		h.NotFound(w, r)
	case apperrors.IsNetwork(err):
		h.logger().WarnContext(r.Context(), "backend unreachable", "path", r.URL.Path, "error", err)
		h.renderError(w, r, http.StatusBadGateway, msgBackendDown)
	case apperrors.IsValidation(err), apperrors.IsConflict(err):
		h.renderError(w, r, http.StatusUnprocessableEntity, apperrors.Message(err))
	default:
		h.logger().ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		h.renderError(w, r, http.StatusInternalServerError, msgUnexpected)
	}
}

// formErrors extracts field errors from a validation or conflict error.
// Errors without a field are reported under "_form".
func formErrors(err error) (map[string]string, bool) {
	if !apperrors.IsValidation(err) && !apperrors.IsConflict(err) {
		return nil, false
	}
	field := apperrors.GetField(err)
	if field == "" {
		field = "_form"
	}
	return map[string]string{field: apperrors.Message(err)}, true
}

// logAndRenderTemplateError logs template errors and renders them in dev mode.
func (h *UIHandlers) logAndRenderTemplateError(w http.ResponseWriter, r *http.Request, err error, name string) {
	h.logger().ErrorContext(r.Context(), "template rendering failed",
		"error", err,
		"template", name,
		"path", r.URL.Path,
		"method", r.Method,
	)
	if h.IsDev {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		if _, writeErr := w.Write([]byte(`<div class="dev-error"><h2>Template Rendering Error</h2><p><strong>Template:</strong> ` +
			html.EscapeString(name) + `</p><pre>` + html.EscapeString(err.Error()) + `</pre></div>`)); writeErr != nil {
			h.logger().ErrorContext(r.Context(), "failed to write template error response", "error", writeErr)
		}
		return
	}
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
