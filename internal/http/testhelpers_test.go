package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/municipal-portal/internal/gate"
	"github.com/target/municipal-portal/internal/mocks"
	mockauth "github.com/target/municipal-portal/internal/mocks/auth"
	"github.com/target/municipal-portal/internal/service"
	"github.com/target/municipal-portal/internal/session"
)

const testCSRFToken = "test-csrf-token"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGate(t *testing.T) *gate.Table {
	t.Helper()
	table, err := gate.NewTable(gate.Config{
		Routes:              GateRoutes(),
		AnonymousLanding:    "/login",
		UnauthorizedLanding: "/dashboard",
		DefaultPath:         "/",
	})
	require.NoError(t, err)
	return table
}

// testApp is the full router backed by a fake auth boundary and gomock ports.
type testApp struct {
	handler  http.Handler
	boundary *mockauth.FakeBoundary
	registry *session.Registry

	users      *mocks.MockUserDirectory
	dataset    *mocks.MockDatasetSource
	orders     *mocks.MockOrderRepository
	munis      *mocks.MockMunicipalityDirectory
	leadership *mocks.MockLeadershipRepository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := discardLogger()

	app := &testApp{
		boundary:   mockauth.NewFakeBoundary(),
		users:      mocks.NewMockUserDirectory(ctrl),
		dataset:    mocks.NewMockDatasetSource(ctrl),
		orders:     mocks.NewMockOrderRepository(ctrl),
		munis:      mocks.NewMockMunicipalityDirectory(ctrl),
		leadership: mocks.NewMockLeadershipRepository(ctrl),
	}
	app.registry = session.NewRegistry(session.RegistryOptions{
		Boundary: app.boundary,
		Cache:    mockauth.NewMemoryIdentityCache(),
		Sessions: mockauth.NewMemorySessionStore(),
		Logger:   logger,
	})

	h, err := NewRouter(RouterServices{
		Auth:       service.NewAuthService(service.AuthServiceOptions{Registry: app.registry, Logger: logger}),
		Users:      service.NewUserService(service.UserServiceOptions{Directory: app.users, Logger: logger}),
		Roads:      service.NewRoadsService(service.RoadsServiceOptions{Source: app.dataset, Logger: logger}),
		Orders:     service.NewOrderService(service.OrderServiceOptions{Repo: app.orders, Logger: logger}),
		Leadership: service.NewLeadershipService(service.LeadershipServiceOptions{Requests: app.leadership, Municipalities: app.munis, Logger: logger}),
		Gate:       newTestGate(t),
		AfterLogin: "/dashboard",
		TemplateFS: os.DirFS(TemplatePathFromTest),
		Logger:     logger,
	})
	require.NoError(t, err)
	app.handler = h
	return app
}

// do serves req with the session and CSRF cookies attached.
func (a *testApp) do(req *http.Request, sessionID string) *httptest.ResponseRecorder {
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: DefaultSessionCookieName, Value: sessionID})
	}
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: testCSRFToken})
	if req.Method != http.MethodGet && req.Method != http.MethodHead && req.Header.Get(CSRFHeaderName) == "" {
		req.Header.Set(CSRFHeaderName, testCSRFToken)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(path, sessionID string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), sessionID)
}

func (a *testApp) postForm(path, sessionID string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, sessionID)
}

// login signs username in and returns the session id carrying the login.
func (a *testApp) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := a.get("/login", "")
	sessionID := cookieValue(rec, DefaultSessionCookieName)
	require.NotEmpty(t, sessionID)

	rec = a.postForm("/login", sessionID, url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return sessionID
}

func cookieValue(rec *httptest.ResponseRecorder, name string) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func htmxRequest(req *http.Request) *http.Request {
	req.Header.Set("Hx-Request", "true")
	return req
}
