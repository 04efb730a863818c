// Package config holds run configuration defaults and the flat key/value
// view of YAML configuration files.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Environment variables read by gokite.
const (
	EnvActionConf = "GOKITE_ACTION_CONF" // trigger configuration file, required by "run"
	EnvApp        = "GOKITE_APP"         // application definition file
	EnvDB         = "GOKITE_DB"          // dataset store path
)

// RunConfig holds configuration for a gokite process.
type RunConfig struct {
	AppPath        string        // Application definition (YAML)
	DBPath         string        // SQLite dataset store (default ~/.gokite/gokite.db, ":memory:" for testing)
	ActionConfPath string        // Trigger configuration written by the external scheduler
	MetricsFile    string        // Prometheus textfile output; empty disables
	LogLevel       string        // Log level: debug, info, warn, error
	LogFormat      string        // Log format: text, json
	ShutdownWait   time.Duration // Bounded wait for engine shutdown
	Addr           string        // Listen address of "serve" (default ":8080")
	PollInterval   time.Duration // Scheduler poll interval of "serve"
}

// DefaultRunConfig returns sensible defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		DBPath:       DefaultDBPath(),
		LogLevel:     "info",
		LogFormat:    "text",
		ShutdownWait: 5 * time.Second,
		Addr:         ":8080",
		PollInterval: 30 * time.Second,
	}
}

// DefaultDBPath returns ~/.gokite/gokite.db, or gokite.db when the home
// directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gokite.db"
	}
	return filepath.Join(home, ".gokite", "gokite.db")
}

// ApplyEnv fills empty path fields from the environment.
func (c *RunConfig) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvApp); v != "" && c.AppPath == "" {
		c.AppPath = v
	}
	if v := getenv(EnvDB); v != "" {
		c.DBPath = v
	}
	if v := getenv(EnvActionConf); v != "" && c.ActionConfPath == "" {
		c.ActionConfPath = v
	}
}
