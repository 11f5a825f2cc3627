package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printobs/printobs/internal/frost"
)

func TestLoad(t *testing.T) {
	t.Setenv(envCommand, "")
	t.Setenv(envFormat, "")
	t.Setenv("FROST_API_VERSION", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "printobs", cfg.Command)
	assert.Empty(t, cfg.Format)
	assert.Equal(t, frost.V1, cfg.APIVersion)

	t.Setenv(envCommand, "/vol/vvfelles/printobs/printobs")
	t.Setenv(envFormat, "NC")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "/vol/vvfelles/printobs/printobs", cfg.Command)
	assert.Equal(t, "nc", cfg.Format)
}

func TestLoadInvalidFormat(t *testing.T) {
	t.Setenv(envFormat, "xls")
	_, err := Load()
	assert.ErrorContains(t, err, envFormat)
}
