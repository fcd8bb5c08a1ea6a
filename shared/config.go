package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Backend kinds understood by the CLI
const (
	BackendBuiltin = "builtin"
	BackendModule  = "module"
)

// Config holds harness settings read from the environment
type Config struct {
	LogDevelopment bool     `json:"log_development"`
	LogLevel       string   `json:"log_level"`
	Backend        string   `json:"backend"`
	ModulePath     string   `json:"module_path"`
	Flags          []string `json:"flags"`
}

// LoadConfig reads envFiles, or .env when none are named, followed by the
// process environment. Only a missing default .env is tolerated. Variables
// already set in the environment take precedence over file entries.
// The backend selection is left for the caller to Validate once command-line
// overrides are applied.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		LogDevelopment: GetEnvBoolOrDefault("ACVP_LOG_DEVELOPMENT", false),
		LogLevel:       GetEnvOrDefault("ACVP_LOG_LEVEL", ""),
		Backend:        GetEnvOrDefault("ACVP_BACKEND", BackendBuiltin),
		ModulePath:     GetEnvOrDefault("ACVP_MODULE_PATH", ""),
		Flags:          GetEnvListOrDefault("ACVP_FLAGS", nil),
	}
	return cfg, nil
}

// Validate checks that the backend selection is coherent
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendBuiltin:
	case BackendModule:
		if c.ModulePath == "" {
			return fmt.Errorf("backend %q requires a module path", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}

// Helper functions for environment variable handling
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvListOrDefault splits a comma separated variable, dropping empty items
func GetEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
