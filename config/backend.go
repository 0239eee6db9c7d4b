package config

import (
	"strings"
	"time"
)

const (
	defaultBackendTimeout = 15 * time.Second
	defaultDatasetPath    = "/api/estradas-rurais"
)

// BackendConfig points the portal at the backend API.
type BackendConfig struct {
	// URL is the absolute base URL of the backend, e.g. "https://api.example.com".
	URL     string        `env:"URL,required"`
	Timeout time.Duration `env:"TIMEOUT"      envDefault:"15s"`

	// DatasetPath serves the rural-road sheet.
	DatasetPath string `env:"DATASET_PATH" envDefault:"/api/estradas-rurais"`

	// DatasetRowsExpr is a JMESPath expression selecting the row array from
	// the dataset payload.
	DatasetRowsExpr string `env:"DATASET_ROWS_EXPR" envDefault:"values"`
}

// Sanitize trims values and restores defaults for empty ones.
func (b *BackendConfig) Sanitize() {
	b.URL = strings.TrimRight(strings.TrimSpace(b.URL), "/")
	if b.Timeout <= 0 {
		b.Timeout = defaultBackendTimeout
	}
	b.DatasetPath = strings.TrimSpace(b.DatasetPath)
	if b.DatasetPath == "" {
		b.DatasetPath = defaultDatasetPath
	}
	if !strings.HasPrefix(b.DatasetPath, "/") {
		b.DatasetPath = "/" + b.DatasetPath
	}
	b.DatasetRowsExpr = strings.TrimSpace(b.DatasetRowsExpr)
}

// RoutesConfig holds the landing paths used by the navigation gate.
type RoutesConfig struct {
	// AnonymousLanding receives visitors who must sign in first.
	AnonymousLanding string `env:"ANONYMOUS_LANDING" envDefault:"/login"`
	// UnauthorizedLanding receives signed-in users who lack the role for a page.
	UnauthorizedLanding string `env:"UNAUTHORIZED_LANDING" envDefault:"/"`
	// DefaultPath receives requests for paths the route table does not know.
	DefaultPath string `env:"DEFAULT_PATH" envDefault:"/"`
	// AfterLogin is where a login without redirect_uri lands.
	AfterLogin string `env:"AFTER_LOGIN" envDefault:"/dashboard"`
}

// Sanitize forces every landing to be a local absolute path.
func (r *RoutesConfig) Sanitize() {
	r.AnonymousLanding = localPath(r.AnonymousLanding, "/login")
	r.UnauthorizedLanding = localPath(r.UnauthorizedLanding, "/")
	r.DefaultPath = localPath(r.DefaultPath, "/")
	r.AfterLogin = localPath(r.AfterLogin, "/dashboard")
}

func localPath(p, fallback string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return fallback
	}
	return p
}
