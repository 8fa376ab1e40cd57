package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-mdexport/internal/config"
)

// envPrefix marks the environment variables read by mdexport.
const envPrefix = "MDEXPORT_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string        // MDEXPORT_CONFIG: config file path or name
	OutputDir  string        // MDEXPORT_OUTPUT_DIR: artifact directory
	BaseName   string        // MDEXPORT_BASE_NAME: generated filename prefix
	Timeout    time.Duration // MDEXPORT_TIMEOUT: capture timeout
	Scale      float64       // MDEXPORT_SCALE: device pixel ratio
	Workers    int           // MDEXPORT_WORKERS: parallel exporters
	Addr       string        // MDEXPORT_ADDR: serve listen address
}

// knownEnvVars lists valid MDEXPORT_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"MDEXPORT_CONFIG":     true,
	"MDEXPORT_OUTPUT_DIR": true,
	"MDEXPORT_BASE_NAME":  true,
	"MDEXPORT_TIMEOUT":    true,
	"MDEXPORT_SCALE":      true,
	"MDEXPORT_WORKERS":    true,
	"MDEXPORT_ADDR":       true,
}

// loadEnvConfig reads configuration through getenv.
// Malformed numbers and durations are ignored, not errors.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath: getenv("MDEXPORT_CONFIG"),
		OutputDir:  getenv("MDEXPORT_OUTPUT_DIR"),
		BaseName:   getenv("MDEXPORT_BASE_NAME"),
		Addr:       getenv("MDEXPORT_ADDR"),
	}

	if v := getenv("MDEXPORT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if v := getenv("MDEXPORT_SCALE"); v != "" {
		if s, err := strconv.ParseFloat(v, 64); err == nil && s > 0 {
			cfg.Scale = s
		}
	}
	if v := getenv("MDEXPORT_WORKERS"); v != "" {
		if w, err := strconv.Atoi(v); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars writes a warning for each unrecognized MDEXPORT_* name
// in environ. Helps catch typos like MDEXPORT_OUTPUTDIR.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig overrides config file values with set environment values.
// Flags are applied afterwards, giving flags > env > file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.OutputDir != "" {
		cfg.Output.Dir = env.OutputDir
	}
	if env.BaseName != "" {
		cfg.Output.BaseName = env.BaseName
	}
	if env.Timeout > 0 {
		cfg.Export.Timeout = env.Timeout.String()
	}
	if env.Scale > 0 {
		cfg.Raster.Scale = env.Scale
	}
	if env.Workers > 0 {
		cfg.Workers = env.Workers
	}
	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
}
