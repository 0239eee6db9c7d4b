package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/municipal-portal/config"
)

// InitLogger installs a JSON logger at info level for use until the
// configuration is loaded.
func InitLogger() *slog.Logger {
	return newLogger(os.Stdout, false, slog.LevelInfo)
}

// ConfigureLogger replaces the default logger with one honoring LOG_LEVEL.
// Development mode logs human-readable text instead of JSON.
func ConfigureLogger(cfg *config.AppConfig) *slog.Logger {
	return newLogger(os.Stdout, cfg.IsDev, cfg.LogLevel)
}

func newLogger(w io.Writer, text bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if text {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateServiceConfig validates the service list and the settings the
// enabled services depend on.
func ValidateServiceConfig(cfg *config.AppConfig, logger *slog.Logger) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("invalid service configuration: %w", err)
	}
	if !services[config.ServiceModeHTTP] {
		return errors.New("the http service must be enabled")
	}

	if services[config.ServiceModeDatasetWarmer] && !cfg.Dataset.HasWarmCredentials() && logger != nil {
		logger.Warn("dataset-warmer enabled without DATASET_WARM_USERNAME/DATASET_WARM_PASSWORD; it will not run")
	}
	return nil
}

// GetEnabledServices returns a sorted list of enabled service names.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return []string{}
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		// Return empty list on error - validation will catch this
		return []string{}
	}

	enabled := make([]string, 0, len(services))
	for svc, on := range services {
		if on {
			enabled = append(enabled, string(svc))
		}
	}
	sort.Strings(enabled)
	return enabled
}
