package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the process-level configuration, read from the environment.
// Connection targets live in a separate TOML file (see targets.go) so that
// credentials and tuning stay apart.
type Config struct {
	CatalogDSN  string
	TargetsFile string
	LogLevel    string
	LogFormat   string
	StepTimeout time.Duration
	AppliedBy   string
}

func Load() (Config, error) {
	cfg := Config{
		CatalogDSN:  os.Getenv("SCHEMASHIFT_CATALOG_DSN"),
		TargetsFile: getEnv("SCHEMASHIFT_TARGETS_FILE", "targets.toml"),
		LogLevel:    getEnv("SCHEMASHIFT_LOG_LEVEL", "info"),
		LogFormat:   getEnv("SCHEMASHIFT_LOG_FORMAT", "text"),
		AppliedBy:   getEnv("SCHEMASHIFT_APPLIED_BY", os.Getenv("USER")),
	}

	timeout := getEnv("SCHEMASHIFT_STEP_TIMEOUT", "5m")
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return Config{}, fmt.Errorf("SCHEMASHIFT_STEP_TIMEOUT: %w", err)
	}
	cfg.StepTimeout = d

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("SCHEMASHIFT_LOG_LEVEL must be one of debug, info, warn, error")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return errors.New("SCHEMASHIFT_LOG_FORMAT must be text or json")
	}
	if c.StepTimeout < 0 {
		return errors.New("SCHEMASHIFT_STEP_TIMEOUT must not be negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
