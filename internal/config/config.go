package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-mdexport/internal/dateutil"
	"github.com/alnah/go-mdexport/internal/fileutil"
	"github.com/alnah/go-mdexport/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// appDir is the directory under os.UserConfigDir searched by LoadConfig.
const appDir = "go-mdexport"

// Field length limits for multi-tenant safety.
const (
	MaxPathLength        = 4096 // PATH_MAX on Linux
	MaxBaseNameLength    = 100  // "research-report"
	MaxURLLength         = 2048 // Browser limit
	MaxColorLength       = 7    // "#rrggbb"
	MaxFontFamilyLength  = 200  // CSS font stack
	MaxPropertyLength    = 64   // CSS property name
	MaxAllowedProperties = 100  // sanitize.allowProperties entries
	MaxAddrLength        = 255  // host:port
)

// Numeric ranges. Zero always means "use the default".
const (
	MaxScale        = 4.0
	MinWidth        = 200
	MaxWidth        = 4000
	MaxPadding      = 200
	MinFontSize     = 6
	MaxFontSize     = 72
	MaxWorkers      = 64
	MaxExportTimeout = 10 * time.Minute
	MaxSettleDelay  = 10 * time.Second
)

// Defaults applied by DefaultConfig and WithDefaults.
const (
	DefaultBaseName    = "research-report"
	DefaultTimeout     = "30s"
	DefaultSettleDelay = "100ms"
	DefaultScale       = 2.0
	DefaultBackground  = "#ffffff"
	DefaultAddr        = ":8080"
	DefaultLogLevel    = "info"
)

// Config holds all configuration for export runs and the HTTP server.
type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Export    ExportConfig    `yaml:"export"`
	Raster    RasterConfig    `yaml:"raster"`
	Container ContainerConfig `yaml:"container"`
	Sanitize  SanitizeConfig  `yaml:"sanitize"`
	Assets    AssetsConfig    `yaml:"assets"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Workers   int             `yaml:"workers"` // 0 = auto
}

// OutputConfig defines where artifacts go and how they are named.
type OutputConfig struct {
	Dir             string `yaml:"dir"`             // Empty = current directory
	BaseName        string `yaml:"baseName"`        // Prefix of generated filenames
	TimestampFormat string `yaml:"timestampFormat"` // Token layout or preset name
}

// ExportConfig defines timing of browser work. Durations use Go syntax ("30s").
type ExportConfig struct {
	Timeout     string `yaml:"timeout"`
	SettleDelay string `yaml:"settleDelay"`
}

// RasterConfig defines how elements are captured.
type RasterConfig struct {
	Scale          float64 `yaml:"scale"`
	UseCORS        *bool   `yaml:"useCORS"`        // nil = true
	AllowTaint     bool    `yaml:"allowTaint"`
	Background     string  `yaml:"background"`     // "#rgb" or "#rrggbb"
	MathStylesheet *string `yaml:"mathStylesheet"` // nil = built-in URL, "" = none
}

// ContainerConfig overrides the off-screen container layout.
type ContainerConfig struct {
	Width      int    `yaml:"width"`
	Padding    int    `yaml:"padding"`
	FontFamily string `yaml:"fontFamily"`
	FontSize   int    `yaml:"fontSize"`
}

// SanitizeConfig restricts inline styles in captured content.
type SanitizeConfig struct {
	AllowProperties []string `yaml:"allowProperties"` // Empty = all except unsupported colors
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
}

// ServerConfig defines the HTTP download surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig defines logger verbosity.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Validate checks field lengths and ranges.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually (e.g., API adapters, library users).
func (c *Config) Validate() error {
	// Output
	if err := validateFieldLength("output.dir", c.Output.Dir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("output.baseName", c.Output.BaseName, MaxBaseNameLength); err != nil {
		return err
	}
	if strings.ContainsAny(c.Output.BaseName, `/\`) {
		return fmt.Errorf("%w: output.baseName %q must not contain path separators", ErrInvalidValue, c.Output.BaseName)
	}
	if err := validateFieldLength("output.timestampFormat", c.Output.TimestampFormat, dateutil.MaxDateFormatLength); err != nil {
		return err
	}
	if c.Output.TimestampFormat != "" {
		if _, err := dateutil.FormatTimestamp(c.Output.TimestampFormat, time.Time{}); err != nil {
			return fmt.Errorf("%w: output.timestampFormat: %v", ErrInvalidValue, err)
		}
	}

	// Export timing
	if _, err := parseDuration("export.timeout", c.Export.Timeout, time.Nanosecond, MaxExportTimeout); err != nil {
		return err
	}
	if _, err := parseDuration("export.settleDelay", c.Export.SettleDelay, 0, MaxSettleDelay); err != nil {
		return err
	}

	// Raster
	if c.Raster.Scale < 0 || c.Raster.Scale > MaxScale {
		return fmt.Errorf("%w: raster.scale must be between 0 and %.0f, got %.2f", ErrInvalidValue, MaxScale, c.Raster.Scale)
	}
	if err := validateFieldLength("raster.background", c.Raster.Background, MaxColorLength); err != nil {
		return err
	}
	if c.Raster.Background != "" && !isHexColor(c.Raster.Background) {
		return fmt.Errorf("%w: raster.background %q must be #rgb or #rrggbb", ErrInvalidValue, c.Raster.Background)
	}
	if c.Raster.MathStylesheet != nil {
		if err := validateFieldLength("raster.mathStylesheet", *c.Raster.MathStylesheet, MaxURLLength); err != nil {
			return err
		}
	}

	// Container
	if c.Container.Width != 0 && (c.Container.Width < MinWidth || c.Container.Width > MaxWidth) {
		return fmt.Errorf("%w: container.width must be between %d and %d, got %d", ErrInvalidValue, MinWidth, MaxWidth, c.Container.Width)
	}
	if c.Container.Padding < 0 || c.Container.Padding > MaxPadding {
		return fmt.Errorf("%w: container.padding must be between 0 and %d, got %d", ErrInvalidValue, MaxPadding, c.Container.Padding)
	}
	if err := validateFieldLength("container.fontFamily", c.Container.FontFamily, MaxFontFamilyLength); err != nil {
		return err
	}
	if c.Container.FontSize != 0 && (c.Container.FontSize < MinFontSize || c.Container.FontSize > MaxFontSize) {
		return fmt.Errorf("%w: container.fontSize must be between %d and %d, got %d", ErrInvalidValue, MinFontSize, MaxFontSize, c.Container.FontSize)
	}

	// Sanitize
	if len(c.Sanitize.AllowProperties) > MaxAllowedProperties {
		return fmt.Errorf("%w: sanitize.allowProperties (%d entries, max %d)", ErrFieldTooLong, len(c.Sanitize.AllowProperties), MaxAllowedProperties)
	}
	for i, p := range c.Sanitize.AllowProperties {
		if err := validateFieldLength(fmt.Sprintf("sanitize.allowProperties[%d]", i), p, MaxPropertyLength); err != nil {
			return err
		}
	}

	// Assets, server, log
	if err := validateFieldLength("assets.basePath", c.Assets.BasePath, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("server.addr", c.Server.Addr, MaxAddrLength); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q (must be debug, info, warn, or error)", ErrInvalidValue, c.Log.Level)
	}

	if c.Workers < 0 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: workers must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Workers)
	}

	return nil
}

// TimeoutDuration returns export.timeout, or 0 when unset or invalid.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := parseDuration("export.timeout", c.Export.Timeout, time.Nanosecond, MaxExportTimeout)
	return d
}

// SettleDelayDuration returns export.settleDelay and whether it was set.
// An explicit "0s" disables the pause, so unset and zero differ.
func (c *Config) SettleDelayDuration() (time.Duration, bool) {
	if c.Export.SettleDelay == "" {
		return 0, false
	}
	d, err := parseDuration("export.settleDelay", c.Export.SettleDelay, 0, MaxSettleDelay)
	if err != nil {
		return 0, false
	}
	return d, true
}

// UseCORS reports raster.useCORS, defaulting to true.
func (c *Config) UseCORS() bool {
	return c.Raster.UseCORS == nil || *c.Raster.UseCORS
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// parseDuration parses an optional duration field and checks it is within
// [lo, hi]. Empty yields 0.
func parseDuration(fieldName, value string, lo, hi time.Duration) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a duration", ErrInvalidValue, fieldName, value)
	}
	if d < lo || d > hi {
		return 0, fmt.Errorf("%w: %s must be between %s and %s, got %s", ErrInvalidValue, fieldName, lo, hi, d)
	}
	return d, nil
}

// isHexColor reports whether s is "#rgb" or "#rrggbb".
func isHexColor(s string) bool {
	if len(s) != 4 && len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{BaseName: DefaultBaseName},
		Export: ExportConfig{Timeout: DefaultTimeout, SettleDelay: DefaultSettleDelay},
		Raster: RasterConfig{Scale: DefaultScale, Background: DefaultBackground},
		Server: ServerConfig{Addr: DefaultAddr},
		Log:    LogConfig{Level: DefaultLogLevel},
	}
}

// WithDefaults fills every unset field from DefaultConfig and returns c.
func (c *Config) WithDefaults() *Config {
	d := DefaultConfig()
	if c.Output.BaseName == "" {
		c.Output.BaseName = d.Output.BaseName
	}
	if c.Export.Timeout == "" {
		c.Export.Timeout = d.Export.Timeout
	}
	if c.Export.SettleDelay == "" {
		c.Export.SettleDelay = d.Export.SettleDelay
	}
	if c.Raster.Scale == 0 {
		c.Raster.Scale = d.Raster.Scale
	}
	if c.Raster.Background == "" {
		c.Raster.Background = d.Raster.Background
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	return c
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
// Unset fields are filled with defaults.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := yamlutil.ReadFileStrict(configPath, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg.WithDefaults(), nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-mdexport/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, appDir, name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
