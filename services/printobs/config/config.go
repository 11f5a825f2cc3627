package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"

	shared "github.com/printobs/printobs/internal/config"
	"github.com/printobs/printobs/internal/export"
)

const (
	envCommand = "PRINTOBS_COMMAND"
	envFormat  = "PRINTOBS_FORMAT"

	defaultCommand = "printobs"
)

// Config holds the CLI settings on top of the shared ones.
type Config struct {
	shared.Config

	// Command is the program path written into shell shortcuts.
	Command string
	// Format is the export format used when --output is given without --format.
	Format string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	v := shared.NewViper()
	v.SetDefault(envCommand, defaultCommand)
	_ = v.BindEnv(envCommand)
	_ = v.BindEnv(envFormat)

	base, err := shared.FromViper(v)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Config:  base,
		Command: strings.TrimSpace(v.GetString(envCommand)),
	}

	if f := strings.TrimSpace(v.GetString(envFormat)); f != "" {
		format, err := export.ParseFormat(f)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", envFormat, err)
		}
		cfg.Format = string(format)
	}
	return cfg, nil
}
