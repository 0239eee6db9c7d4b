package config

import (
	"log/slog"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// area-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See the individual files for the
// available variables:
//   - http.go: HTTP server and cookie configuration
//   - backend.go: backend API client and route landings
//   - session.go: browser session persistence
//   - redis.go: Redis connection configuration
//   - services.go: service modes and the dataset refresher
//   - observability.go: Prometheus metrics
type AppConfig struct {
	// IsDev controls development mode behavior (template hot reloading, static caching).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	HTTP    HTTPConfig
	Backend BackendConfig `envPrefix:"BACKEND_"`
	Routes  RoutesConfig  `envPrefix:"ROUTES_"`
	Session SessionConfig `envPrefix:"SESSION_"`
	Redis   RedisConfig   `envPrefix:"REDIS_"`
	Dataset DatasetConfig `envPrefix:"DATASET_"`
	Metrics MetricsConfig `envPrefix:"METRICS_"`

	// Services is a comma-separated list of service modes run by this process.
	Services string `env:"SERVICES" envDefault:"http"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Backend.Sanitize()
	c.Routes.Sanitize()
	c.Session.Sanitize()
	c.Dataset.Sanitize()
	c.Metrics.Sanitize()

	c.detectDevMode()
	if c.IsDev {
		c.HTTP.DevAssets = true
	}
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsDatasetWarmerEnabled returns true when the background dataset refresher
// should run and has credentials to log in with.
func (c *AppConfig) IsDatasetWarmerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeDatasetWarmer] && c.Dataset.HasWarmCredentials()
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *AppConfig) UsesRedis() bool {
	return c.Session.Store == SessionStoreRedis
}
