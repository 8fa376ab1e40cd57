package config

// Notes:
// - Name resolution tests use t.Chdir and t.Setenv, so they do not run in
//   parallel
// - XDG_CONFIG_HOME drives os.UserConfigDir on Linux; the user directory
//   test is skipped elsewhere

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestDefaultConfig
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Output.BaseName != DefaultBaseName {
		t.Errorf("Output.BaseName = %q, want %q", cfg.Output.BaseName, DefaultBaseName)
	}
	if cfg.Output.Dir != "" {
		t.Errorf("Output.Dir = %q, want empty", cfg.Output.Dir)
	}
	if got := cfg.TimeoutDuration(); got != 30*time.Second {
		t.Errorf("TimeoutDuration() = %v, want 30s", got)
	}
	if got, ok := cfg.SettleDelayDuration(); !ok || got != 100*time.Millisecond {
		t.Errorf("SettleDelayDuration() = (%v, %v), want (100ms, true)", got, ok)
	}
	if cfg.Raster.Scale != DefaultScale || cfg.Raster.Background != DefaultBackground {
		t.Errorf("Raster = %+v", cfg.Raster)
	}
	if !cfg.UseCORS() {
		t.Error("UseCORS() = false, want true")
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestWithDefaults_KeepsSetFields(t *testing.T) {
	t.Parallel()

	cfg := (&Config{
		Output: OutputConfig{BaseName: "notes"},
		Export: ExportConfig{SettleDelay: "0s"},
		Raster: RasterConfig{Scale: 1},
	}).WithDefaults()

	if cfg.Output.BaseName != "notes" {
		t.Errorf("Output.BaseName = %q, want %q", cfg.Output.BaseName, "notes")
	}
	if d, ok := cfg.SettleDelayDuration(); !ok || d != 0 {
		t.Errorf("SettleDelayDuration() = (%v, %v), want (0, true)", d, ok)
	}
	if cfg.Raster.Scale != 1 {
		t.Errorf("Raster.Scale = %v, want 1", cfg.Raster.Scale)
	}
	if cfg.Export.Timeout != DefaultTimeout {
		t.Errorf("Export.Timeout = %q, want %q", cfg.Export.Timeout, DefaultTimeout)
	}
}

func TestUseCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    *bool
		want bool
	}{
		{name: "unset", v: nil, want: true},
		{name: "true", v: boolPtr(true), want: true},
		{name: "false", v: boolPtr(false), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &Config{Raster: RasterConfig{UseCORS: tt.v}}
			if got := cfg.UseCORS(); got != tt.want {
				t.Errorf("UseCORS() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestValidate
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "zero config", mutate: func(*Config) {}},
		{name: "full valid", mutate: func(c *Config) {
			c.Output = OutputConfig{Dir: "out", BaseName: "r", TimestampFormat: "compact"}
			c.Export = ExportConfig{Timeout: "1m", SettleDelay: "0s"}
			c.Raster = RasterConfig{Scale: 4, UseCORS: boolPtr(false), Background: "#FFF", MathStylesheet: strPtr("")}
			c.Container = ContainerConfig{Width: 600, Padding: 0, FontFamily: "Georgia, serif", FontSize: 12}
			c.Sanitize.AllowProperties = []string{"color", "font-weight"}
			c.Log.Level = "DEBUG"
			c.Workers = 8
		}},
		{name: "baseName with separator", mutate: func(c *Config) { c.Output.BaseName = "a/b" }, wantErr: ErrInvalidValue},
		{name: "baseName too long", mutate: func(c *Config) { c.Output.BaseName = strings.Repeat("x", MaxBaseNameLength+1) }, wantErr: ErrFieldTooLong},
		{name: "timestamp unclosed bracket", mutate: func(c *Config) { c.Output.TimestampFormat = "YYYY[" }, wantErr: ErrInvalidValue},
		{name: "timeout not a duration", mutate: func(c *Config) { c.Export.Timeout = "soon" }, wantErr: ErrInvalidValue},
		{name: "timeout zero", mutate: func(c *Config) { c.Export.Timeout = "0s" }, wantErr: ErrInvalidValue},
		{name: "timeout too long", mutate: func(c *Config) { c.Export.Timeout = "1h" }, wantErr: ErrInvalidValue},
		{name: "negative settle delay", mutate: func(c *Config) { c.Export.SettleDelay = "-1s" }, wantErr: ErrInvalidValue},
		{name: "scale too large", mutate: func(c *Config) { c.Raster.Scale = 5 }, wantErr: ErrInvalidValue},
		{name: "negative scale", mutate: func(c *Config) { c.Raster.Scale = -1 }, wantErr: ErrInvalidValue},
		{name: "named background", mutate: func(c *Config) { c.Raster.Background = "white" }, wantErr: ErrInvalidValue},
		{name: "background too long", mutate: func(c *Config) { c.Raster.Background = "#ffffffff" }, wantErr: ErrFieldTooLong},
		{name: "stylesheet too long", mutate: func(c *Config) { c.Raster.MathStylesheet = strPtr(strings.Repeat("u", MaxURLLength+1)) }, wantErr: ErrFieldTooLong},
		{name: "width too small", mutate: func(c *Config) { c.Container.Width = 50 }, wantErr: ErrInvalidValue},
		{name: "negative padding", mutate: func(c *Config) { c.Container.Padding = -1 }, wantErr: ErrInvalidValue},
		{name: "font size too large", mutate: func(c *Config) { c.Container.FontSize = 100 }, wantErr: ErrInvalidValue},
		{name: "property too long", mutate: func(c *Config) { c.Sanitize.AllowProperties = []string{strings.Repeat("p", MaxPropertyLength+1)} }, wantErr: ErrFieldTooLong},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: ErrInvalidValue},
		{name: "too many workers", mutate: func(c *Config) { c.Workers = MaxWorkers + 1 }, wantErr: ErrInvalidValue},
		{name: "addr too long", mutate: func(c *Config) { c.Server.Addr = strings.Repeat("h", MaxAddrLength+1) }, wantErr: ErrFieldTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &Config{}
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFieldLength(t *testing.T) {
	t.Parallel()

	if err := validateFieldLength("f", "abc", 3); err != nil {
		t.Errorf("at limit: %v", err)
	}
	err := validateFieldLength("output.dir", "abcd", 3)
	if !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("over limit: %v, want ErrFieldTooLong", err)
	}
	if !strings.Contains(err.Error(), "output.dir (4 chars, max 3)") {
		t.Errorf("error message = %q", err)
	}
}

// ---------------------------------------------------------------------------
// TestLoadConfig
// ---------------------------------------------------------------------------

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	writeFile(t, valid, `output:
  dir: ./exports
  baseName: weekly
export:
  timeout: 45s
  settleDelay: 0s
raster:
  scale: 1.5
  useCORS: false
  allowTaint: true
container:
  width: 640
sanitize:
  allowProperties: [color, font-weight]
server:
  addr: 127.0.0.1:9000
workers: 2
`)
	unknown := filepath.Join(dir, "unknown.yaml")
	writeFile(t, unknown, "output:\n  basename: typo\n")
	invalid := filepath.Join(dir, "invalid.yaml")
	writeFile(t, invalid, "raster:\n  scale: 9\n")

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfig(valid)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Output.Dir != "./exports" || cfg.Output.BaseName != "weekly" {
			t.Errorf("Output = %+v", cfg.Output)
		}
		if cfg.TimeoutDuration() != 45*time.Second {
			t.Errorf("TimeoutDuration() = %v, want 45s", cfg.TimeoutDuration())
		}
		if d, ok := cfg.SettleDelayDuration(); !ok || d != 0 {
			t.Errorf("SettleDelayDuration() = (%v, %v), want (0, true)", d, ok)
		}
		if cfg.Raster.Scale != 1.5 || cfg.UseCORS() || !cfg.Raster.AllowTaint {
			t.Errorf("Raster = %+v", cfg.Raster)
		}
		if cfg.Container.Width != 640 {
			t.Errorf("Container.Width = %d, want 640", cfg.Container.Width)
		}
		if len(cfg.Sanitize.AllowProperties) != 2 {
			t.Errorf("AllowProperties = %v", cfg.Sanitize.AllowProperties)
		}
		if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Workers != 2 {
			t.Errorf("Server.Addr = %q, Workers = %d", cfg.Server.Addr, cfg.Workers)
		}
		// Defaults fill what the file leaves out.
		if cfg.Raster.Background != DefaultBackground || cfg.Log.Level != DefaultLogLevel {
			t.Errorf("defaults not applied: background %q, level %q", cfg.Raster.Background, cfg.Log.Level)
		}
	})

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty name", input: "", wantErr: ErrEmptyConfigName},
		{name: "missing path", input: filepath.Join(dir, "missing.yaml"), wantErr: ErrConfigNotFound},
		{name: "unknown field", input: unknown, wantErr: ErrConfigParse},
		{name: "out of range", input: invalid, wantErr: ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := LoadConfig(tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadConfig(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_NameResolution(t *testing.T) {
	t.Run("yaml in current directory", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "team.yaml"), "output:\n  baseName: from-yaml\n")
		t.Chdir(dir)

		cfg, err := LoadConfig("team")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Output.BaseName != "from-yaml" {
			t.Errorf("BaseName = %q, want %q", cfg.Output.BaseName, "from-yaml")
		}
	})

	t.Run("yml when yaml is missing", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "team.yml"), "output:\n  baseName: from-yml\n")
		t.Chdir(dir)

		cfg, err := LoadConfig("team")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Output.BaseName != "from-yml" {
			t.Errorf("BaseName = %q, want %q", cfg.Output.BaseName, "from-yml")
		}
	})

	t.Run("user config directory", func(t *testing.T) {
		if runtime.GOOS != "linux" {
			t.Skip("XDG_CONFIG_HOME only drives os.UserConfigDir on Linux")
		}
		home := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", home)
		if err := os.MkdirAll(filepath.Join(home, appDir), 0o750); err != nil {
			t.Fatal(err)
		}
		writeFile(t, filepath.Join(home, appDir, "shared.yaml"), "workers: 3\n")
		t.Chdir(t.TempDir())

		cfg, err := LoadConfig("shared")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Workers != 3 {
			t.Errorf("Workers = %d, want 3", cfg.Workers)
		}
	})

	t.Run("not found lists tried paths", func(t *testing.T) {
		t.Chdir(t.TempDir())

		_, err := LoadConfig("nowhere")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("error = %v, want ErrConfigNotFound", err)
		}
		if !strings.Contains(err.Error(), "nowhere.yaml") || !strings.Contains(err.Error(), "nowhere.yml") {
			t.Errorf("error should list tried paths: %v", err)
		}
	})
}
