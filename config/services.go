package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeDatasetWarmer keeps the in-process dataset snapshot fresh
	// using a service account. It shares the snapshot with the HTTP server,
	// so it only runs alongside ServiceModeHTTP.
	ServiceModeDatasetWarmer ServiceMode = "dataset-warmer"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeDatasetWarmer,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeDatasetWarmer:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, dataset-warmer)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}
	if services[ServiceModeDatasetWarmer] && !services[ServiceModeHTTP] {
		return nil, errors.New("dataset-warmer shares the http server's snapshot and requires the http service")
	}

	return services, nil
}

const (
	// MinDatasetRefreshInterval is the shortest refresh period accepted.
	MinDatasetRefreshInterval = 5 * time.Second
	defaultRefreshInterval    = 60 * time.Second
	defaultPageSize           = 25
	maxPageSize               = 200
)

// DatasetConfig controls the rural-road dataset cache and its refresher.
type DatasetConfig struct {
	// RefreshInterval is both the snapshot max age and the warmer period.
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"60s"`
	PageSize        int           `env:"PAGE_SIZE"        envDefault:"25"`

	// Service account used by the dataset-warmer service.
	WarmUsername string `env:"WARM_USERNAME"`
	WarmPassword string `env:"WARM_PASSWORD"`
}

// Sanitize clamps the refresh interval and page size.
func (d *DatasetConfig) Sanitize() {
	if d.RefreshInterval <= 0 {
		d.RefreshInterval = defaultRefreshInterval
	}
	if d.RefreshInterval < MinDatasetRefreshInterval {
		d.RefreshInterval = MinDatasetRefreshInterval
	}
	if d.PageSize <= 0 {
		d.PageSize = defaultPageSize
	}
	if d.PageSize > maxPageSize {
		d.PageSize = maxPageSize
	}
	d.WarmUsername = strings.TrimSpace(d.WarmUsername)
}

// HasWarmCredentials reports whether the warmer can log in.
func (d *DatasetConfig) HasWarmCredentials() bool {
	return d.WarmUsername != "" && d.WarmPassword != ""
}
