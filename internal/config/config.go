// Package config handles environment variable loading for ports, database strings, etc.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port for the controller
	HTTPPort int

	// ERP (external order source) connection
	ERPURL       string
	ERPAPIKey    string
	ERPAPISecret string
	ERPTimeout   time.Duration

	// Engine periods
	SyncInterval    time.Duration // order fetch + assignment pass
	TickInterval    time.Duration // production counter advance
	AlertInterval   time.Duration // threshold alert scan
	HistoryInterval time.Duration // snapshot recorder

	// Optional NATS URL for mirroring events; empty disables mirroring.
	NATSURL string

	// OTLP collector endpoint for traces
	OTELEndpoint string

	// Fleet seed shape, used only when the machines table is empty
	FleetLocations      []string
	MachinesPerLocation int
	DefaultRateSeconds  float64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:            6161,
		ERPTimeout:          20 * time.Second,
		SyncInterval:        10 * time.Second,
		TickInterval:        1 * time.Second,
		AlertInterval:       5 * time.Second,
		HistoryInterval:     30 * time.Second,
		OTELEndpoint:        "localhost:4317",
		FleetLocations:      []string{"Modan", "Baldeya", "Al-Khraj"},
		MachinesPerLocation: 12,
		DefaultRateSeconds:  20,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.HTTPPort = p
	}

	cfg.ERPURL = os.Getenv("ERP_URL")
	cfg.ERPAPIKey = os.Getenv("ERP_API_KEY")
	cfg.ERPAPISecret = os.Getenv("ERP_API_SECRET")

	var err error
	if cfg.ERPTimeout, err = durationEnv("ERP_TIMEOUT", cfg.ERPTimeout); err != nil {
		return nil, err
	}
	if cfg.SyncInterval, err = durationEnv("SYNC_INTERVAL", cfg.SyncInterval); err != nil {
		return nil, err
	}
	if cfg.TickInterval, err = durationEnv("TICK_INTERVAL", cfg.TickInterval); err != nil {
		return nil, err
	}
	if cfg.AlertInterval, err = durationEnv("ALERT_INTERVAL", cfg.AlertInterval); err != nil {
		return nil, err
	}
	if cfg.HistoryInterval, err = durationEnv("HISTORY_INTERVAL", cfg.HistoryInterval); err != nil {
		return nil, err
	}

	cfg.NATSURL = os.Getenv("NATS_URL")

	if endpoint := os.Getenv("OTEL_ENDPOINT"); endpoint != "" {
		cfg.OTELEndpoint = endpoint
	}

	if locations := os.Getenv("FLEET_LOCATIONS"); locations != "" {
		cfg.FleetLocations = nil
		for _, loc := range strings.Split(locations, ",") {
			loc = strings.TrimSpace(loc)
			if loc != "" {
				cfg.FleetLocations = append(cfg.FleetLocations, loc)
			}
		}
		if len(cfg.FleetLocations) == 0 {
			return nil, fmt.Errorf("FLEET_LOCATIONS must name at least one location")
		}
	}

	if perLocStr := os.Getenv("MACHINES_PER_LOCATION"); perLocStr != "" {
		n, err := strconv.Atoi(perLocStr)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MACHINES_PER_LOCATION: %q", perLocStr)
		}
		cfg.MachinesPerLocation = n
	}

	if rateStr := os.Getenv("DEFAULT_SECONDS_PER_UNIT"); rateStr != "" {
		rate, err := strconv.ParseFloat(rateStr, 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("invalid DEFAULT_SECONDS_PER_UNIT: %q", rateStr)
		}
		cfg.DefaultRateSeconds = rate
	}

	return cfg, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}
