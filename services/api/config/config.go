package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	shared "github.com/printobs/printobs/internal/config"
)

const (
	defaultPort               = 8080
	defaultObservationTimeout = 30 * time.Second
)

// Config holds environment-driven settings for the REST API.
type Config struct {
	shared.Config

	Port               int
	BearerToken        string
	ObservationTimeout time.Duration
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	v := shared.NewViper()
	for _, key := range []string{"PORT", "API_PORT", "API_BEARER_TOKEN", "API_OBSERVATION_TIMEOUT"} {
		_ = v.BindEnv(key)
	}

	base, err := shared.FromViper(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Config:             base,
		Port:               defaultPort,
		ObservationTimeout: defaultObservationTimeout,
	}

	if portStr := strings.TrimSpace(v.GetString("PORT")); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := strings.TrimSpace(v.GetString("API_PORT")); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	if timeoutStr := strings.TrimSpace(v.GetString("API_OBSERVATION_TIMEOUT")); timeoutStr != "" {
		d, err := time.ParseDuration(timeoutStr)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid API_OBSERVATION_TIMEOUT: %s", timeoutStr)
		}
		cfg.ObservationTimeout = d
	}

	cfg.BearerToken = strings.TrimSpace(v.GetString("API_BEARER_TOKEN"))

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
