// Package config reads the settings shared by the printobs services from the
// environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/printobs/printobs/internal/frost"
)

const (
	EnvClientID           = "CLIENT_ID"
	EnvFrostV0URL         = "FROST_V0_URL"
	EnvFrostV1URL         = "FROST_V1_URL"
	EnvFrostAPIVersion    = "FROST_API_VERSION"
	EnvFrostTimeout       = "FROST_REQUEST_TIMEOUT"
	EnvVariablesPath      = "PRINTOBS_VARIABLES"
	EnvStationsPath       = "PRINTOBS_STATIONS"
	EnvCatalogDatabaseURL = "CATALOG_DATABASE_URL"
	EnvLogLevel           = "LOG_LEVEL"

	defaultRequestTimeout = 30 * time.Second
)

// Config holds runtime configuration shared by the CLI and the API.
type Config struct {
	ClientID           string
	FrostV0URL         string
	FrostV1URL         string
	APIVersion         frost.Version
	RequestTimeout     time.Duration
	VariablesPath      string
	StationsPath       string
	CatalogDatabaseURL string
	LogLevel           zapcore.Level
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file
	return FromViper(NewViper())
}

// NewViper returns a viper instance bound to the shared environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(EnvFrostV0URL, frost.DefaultV0URL)
	v.SetDefault(EnvFrostV1URL, frost.DefaultV1URL)
	v.SetDefault(EnvFrostAPIVersion, string(frost.V1))
	v.SetDefault(EnvFrostTimeout, defaultRequestTimeout.String())
	v.SetDefault(EnvLogLevel, "info")
	for _, key := range []string{
		EnvClientID,
		EnvFrostV0URL,
		EnvFrostV1URL,
		EnvFrostAPIVersion,
		EnvFrostTimeout,
		EnvVariablesPath,
		EnvStationsPath,
		EnvCatalogDatabaseURL,
		EnvLogLevel,
	} {
		_ = v.BindEnv(key)
	}
	return v
}

// FromViper builds a Config from v and validates it.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		ClientID:           strings.TrimSpace(v.GetString(EnvClientID)),
		FrostV0URL:         strings.TrimSpace(v.GetString(EnvFrostV0URL)),
		FrostV1URL:         strings.TrimSpace(v.GetString(EnvFrostV1URL)),
		VariablesPath:      strings.TrimSpace(v.GetString(EnvVariablesPath)),
		StationsPath:       strings.TrimSpace(v.GetString(EnvStationsPath)),
		CatalogDatabaseURL: strings.TrimSpace(v.GetString(EnvCatalogDatabaseURL)),
	}

	version, err := frost.ParseVersion(v.GetString(EnvFrostAPIVersion))
	if err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", EnvFrostAPIVersion, err)
	}
	cfg.APIVersion = version

	timeout := strings.TrimSpace(v.GetString(EnvFrostTimeout))
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", EnvFrostTimeout, err)
	}
	if d <= 0 {
		return cfg, fmt.Errorf("invalid %s: %s", EnvFrostTimeout, timeout)
	}
	cfg.RequestTimeout = d

	level, err := zapcore.ParseLevel(v.GetString(EnvLogLevel))
	if err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", EnvLogLevel, err)
	}
	cfg.LogLevel = level

	return cfg, nil
}

// FrostConfig returns the fetcher settings.
func (c Config) FrostConfig() frost.Config {
	return frost.Config{V0URL: c.FrostV0URL, V1URL: c.FrostV1URL, ClientID: c.ClientID}
}
