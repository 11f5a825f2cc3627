package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/printobs/printobs/internal/frost"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvClientID, EnvFrostV0URL, EnvFrostV1URL, EnvFrostAPIVersion, EnvFrostTimeout,
		EnvVariablesPath, EnvStationsPath, EnvCatalogDatabaseURL, EnvLogLevel,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.ClientID)
	assert.Equal(t, frost.DefaultV0URL, cfg.FrostV0URL)
	assert.Equal(t, frost.DefaultV1URL, cfg.FrostV1URL)
	assert.Equal(t, frost.V1, cfg.APIVersion)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, zapcore.InfoLevel, cfg.LogLevel)
	assert.Empty(t, cfg.CatalogDatabaseURL)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClientID, " abc-123 ")
	t.Setenv(EnvFrostAPIVersion, "V0")
	t.Setenv(EnvFrostTimeout, "5s")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvStationsPath, "/etc/printobs/stations.yaml")
	t.Setenv(EnvFrostV1URL, "http://localhost:9000/get")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "abc-123", cfg.ClientID)
	assert.Equal(t, frost.V0, cfg.APIVersion)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, zapcore.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "/etc/printobs/stations.yaml", cfg.StationsPath)

	fc := cfg.FrostConfig()
	assert.Equal(t, "abc-123", fc.ClientID)
	assert.Equal(t, "http://localhost:9000/get", fc.V1URL)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{EnvFrostAPIVersion, "v2"},
		{EnvFrostTimeout, "soon"},
		{EnvFrostTimeout, "-1s"},
		{EnvLogLevel, "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
