package httpx

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	portal "github.com/target/municipal-portal"
	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/gate"
	"github.com/target/municipal-portal/internal/observability/metrics"
)

// DefaultMetricsPath serves Prometheus metrics when unconfigured.
const DefaultMetricsPath = "/metrics"

// Auth is what the router needs from the auth service.
type Auth interface {
	AuthFlows
	SessionResolver
}

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth       Auth
	Users      UsersService
	Roads      RoadsService
	Orders     OrdersService
	Leadership LeadershipService
	Gate       *gate.Table

	Cookies SessionCookies
	// AfterLogin is where a login without redirect_uri lands.
	AfterLogin string
	// SessionInitWait bounds how long a request waits for the first identity check.
	SessionInitWait time.Duration
	BackendTimeout  time.Duration

	RefreshInterval time.Duration
	PageSize        int

	// Compression gzips text responses at CompressionLevel (0 for the gzip default).
	Compression      bool
	CompressionLevel int

	// Metrics is optional; when set it is served at MetricsPath.
	Metrics     *metrics.Metrics
	MetricsPath string

	// TemplateFS overrides the template source, mainly for tests.
	TemplateFS fs.FS
	IsDev      bool         // Development mode flag for hot reloading, etc.
	Logger     *slog.Logger // Logger for template and HTTP errors (optional)
}

// GateRoutes is the portal's route table. Paths missing here are unknown and
// redirect to the configured default path.
func GateRoutes() []gate.Route {
	return []gate.Route{
		{Pattern: "/", Guard: gate.Public()},
		{Pattern: "/login", Guard: gate.Public()},
		{Pattern: "/logout", Guard: gate.Public()},
		{Pattern: "/dashboard", Guard: gate.Authenticated()},
		{Pattern: "/dashboard/", Guard: gate.Authenticated()},
		{Pattern: "/pedidos", Guard: gate.Authenticated()},
		{Pattern: "/pedidos/", Guard: gate.Authenticated()},
		{Pattern: "/municipios", Guard: gate.Authenticated()},
		{Pattern: "/liderancas", Guard: gate.Authenticated()},
		{Pattern: "/liderancas/", Guard: gate.Authenticated()},
		{Pattern: "/admin", Guard: gate.RequireRole(domainauth.RoleAdmin)},
		{Pattern: "/admin/", Guard: gate.RequireRole(domainauth.RoleAdmin)},
	}
}

// NewRouter creates the HTTP handler: infrastructure routes are served
// directly, everything else passes the session, CSRF and gate middleware.
func NewRouter(services RouterServices) (http.Handler, error) {
	if services.Auth == nil || services.Gate == nil {
		return nil, errors.New("router requires auth and a route table")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ui, err := setupUIHandlers(services, logger)
	if err != nil {
		return nil, err
	}

	app := http.NewServeMux()
	registerUIRoutes(app, ui)

	var observe func(kind, reason string)
	if services.Metrics != nil {
		observe = services.Metrics.ObserveGate
	}
	appChain := Sessions(SessionConfig{
		Resolver:    services.Auth,
		Cookies:     services.Cookies,
		InitWait:    services.SessionInitWait,
		InitTimeout: services.BackendTimeout,
		Logger:      logger,
	})(CSRF(CSRFConfig{
		CookieDomain: services.Cookies.Domain,
		Secure:       services.Cookies.Secure,
		Logger:       logger,
	})(Gate(GateConfig{
		Table:   services.Gate,
		Loading: ui.Loading,
		Observe: observe,
		Logger:  logger,
	})(capturePattern(app))))

	root := http.NewServeMux()
	root.Handle("GET /static/", staticHandler(services.IsDev, logger))
	root.HandleFunc("GET /healthz", healthHandler)
	root.HandleFunc("HEAD /healthz", healthHandler)
	var rec MetricsRecorder
	if services.Metrics != nil {
		path := services.MetricsPath
		if path == "" {
			path = DefaultMetricsPath
		}
		root.Handle("GET "+path, services.Metrics.Handler())
		rec = services.Metrics
	}
	root.Handle("/", appChain)

	var h http.Handler = capturePattern(root)
	if services.Compression {
		h = Compression(CompressionConfig{Level: services.CompressionLevel, Logger: logger})(h)
	}
	h = Metrics(rec)(h)
	h = Logging(logger)(h)
	h = RequestID()(h)
	h = Recover(logger)(h)
	return h, nil
}

func registerUIRoutes(mux *http.ServeMux, h *UIHandlers) {
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /logout", h.Logout)

	mux.HandleFunc("GET /dashboard", h.Dashboard)
	mux.HandleFunc("GET /dashboard/table", h.DashboardTable)
	mux.HandleFunc("GET /dashboard/export.csv", h.DashboardExport)

	mux.HandleFunc("GET /admin", h.AdminIndex)
	mux.HandleFunc("GET /admin/users", h.UsersPage)
	mux.HandleFunc("GET /admin/users/new", h.NewUser)
	mux.HandleFunc("POST /admin/users", h.CreateUser)
	mux.HandleFunc("GET /admin/users/{id}/edit", h.EditUser)
	mux.HandleFunc("POST /admin/users/{id}", h.UpdateUser)
	mux.HandleFunc("POST /admin/users/{id}/delete", h.DeleteUser)

	mux.HandleFunc("GET /pedidos", h.OrdersPage)
	mux.HandleFunc("GET /pedidos/novo", h.NewOrder)
	mux.HandleFunc("GET /pedidos/linha", h.OrderLine)
	mux.HandleFunc("GET /pedidos/municipios", h.MunicipioSuggestions)
	mux.HandleFunc("GET /pedidos/relatorio", h.OrderReport)
	mux.HandleFunc("POST /pedidos", h.CreateOrder)
	mux.HandleFunc("GET /pedidos/{id}/editar", h.EditOrder)
	mux.HandleFunc("POST /pedidos/{id}", h.UpdateOrder)
	mux.HandleFunc("DELETE /pedidos/{id}", h.DeleteOrder)
	mux.HandleFunc("POST /pedidos/{id}/delete", h.DeleteOrder)

	mux.HandleFunc("GET /municipios", h.Municipios)
	mux.HandleFunc("GET /liderancas", h.Liderancas)
	mux.HandleFunc("POST /liderancas", h.CreateLideranca)
	mux.HandleFunc("DELETE /liderancas/{id}", h.DeleteLideranca)
	mux.HandleFunc("POST /liderancas/{id}/delete", h.DeleteLideranca)

	mux.HandleFunc("/", h.NotFound)
}

// templateFS picks the template source: disk in dev mode for hot reloading,
// the embedded copy otherwise.
func templateFS(services RouterServices) (fs.FS, error) {
	if services.TemplateFS != nil {
		return services.TemplateFS, nil
	}
	if services.IsDev {
		return os.DirFS(TemplatePathFromRoot), nil
	}
	sub, err := fs.Sub(portal.TemplateFS, TemplatePathFromRoot)
	if err != nil {
		return nil, fmt.Errorf("embedded templates: %w", err)
	}
	return sub, nil
}

// setupUIHandlers creates UI handlers with the template renderer.
func setupUIHandlers(services RouterServices, logger *slog.Logger) (*UIHandlers, error) {
	tfs, err := templateFS(services)
	if err != nil {
		return nil, err
	}
	tr, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: tfs, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("template renderer: %w", err)
	}
	return &UIHandlers{
		T:          tr,
		Auth:       services.Auth,
		Users:      services.Users,
		Roads:      services.Roads,
		Orders:     services.Orders,
		Leadership: services.Leadership,
		Cookies:    services.Cookies,
		Landings: Landings{
			Anonymous:    services.Gate.AnonymousLanding(),
			Unauthorized: services.Gate.UnauthorizedLanding(),
			AfterLogin:   services.AfterLogin,
		},
		RefreshInterval: services.RefreshInterval,
		PageSize:        services.PageSize,
		IsDev:           services.IsDev,
		Logger:          logger,
	}, nil
}

// staticHandler serves /static/* from disk in dev mode and from the embedded
// copy otherwise.
func staticHandler(isDev bool, logger *slog.Logger) http.Handler {
	if isDev {
		return noCache(http.StripPrefix("/static/", http.FileServer(http.Dir("frontend/static"))))
	}
	sub, err := fs.Sub(portal.StaticFS, "frontend/static")
	if err != nil {
		logger.Error("failed to create sub-filesystem for static assets, serving from disk", "error", err)
		return noCache(http.StripPrefix("/static/", http.FileServer(http.Dir("frontend/static"))))
	}
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})
}

func noCache(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.ServeHTTP(w, r)
	})
}
