package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/alnah/go-mdexport"
	"github.com/alnah/go-mdexport/internal/config"
	"github.com/alnah/go-mdexport/internal/logging"
	"github.com/alnah/go-mdexport/internal/yamlutil"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// CLI holds shared state for all commands.
type CLI struct {
	env    *Environment
	logger *log.Logger
	flags  commonFlags
	doctor doctorDeps
}

func newCLI(env *Environment) *CLI {
	return &CLI{
		env:    env,
		logger: logging.New(env.Stderr, log.InfoLevel),
		doctor: defaultDoctorDeps,
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "mdexport",
		Short: "Export markdown to Markdown, PDF, PNG and Word files",
		Long: `mdexport renders markdown the way a browser shows it and saves it as a
.md file, a paginated PDF, a PNG image or a .docx document.

PDF and PNG exports need Chrome or Chromium. Set ROD_BROWSER_BIN to use an
installed browser and ROD_NO_SANDBOX=1 inside containers.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.flags.config, "config", "c", "", "config file path or name")
	pf.BoolVarP(&c.flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&c.flags.quiet, "quiet", "q", false, "only print errors")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})
	root.SetIn(c.env.Stdin)
	root.SetOut(c.env.Stdout)
	root.SetErr(c.env.Stderr)

	root.AddCommand(c.exportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.doctorCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// setup runs before every command: log level, GOMAXPROCS and env checks.
func (c *CLI) setup(_ *cobra.Command, _ []string) error {
	if c.flags.verbose && c.flags.quiet {
		return fmt.Errorf("%w: --verbose and --quiet are mutually exclusive", ErrUsage)
	}
	switch {
	case c.flags.verbose:
		c.logger.SetLevel(log.DebugLevel)
	case c.flags.quiet:
		c.logger.SetLevel(log.ErrorLevel)
	}

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		c.logger.Debugf(format, args...)
	}))

	if !c.flags.quiet {
		warnUnknownEnvVars(c.env.Stderr, c.env.Environ())
	}
	return nil
}

// loadConfig resolves configuration from the config file and environment.
// Flags are applied by each command afterwards.
func (c *CLI) loadConfig() (*config.Config, error) {
	env := loadEnvConfig(c.env.Getenv)

	name := c.flags.config
	if name == "" {
		name = env.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cfg.Log.Level != "" && !c.flags.verbose && !c.flags.quiet {
		c.logger.SetLevel(logging.ParseLevel(cfg.Log.Level))
	}

	applyEnvConfig(env, cfg)
	return cfg, nil
}

// exporterOptions translates configuration into exporter options.
func exporterOptions(cfg *config.Config, logger *log.Logger) []mdexport.Option {
	rc := mdexport.DefaultRasterConfig()
	if cfg.Raster.Scale > 0 {
		rc.Scale = cfg.Raster.Scale
	}
	rc.UseCORS = cfg.UseCORS()
	rc.AllowTaint = cfg.Raster.AllowTaint
	if cfg.Raster.Background != "" {
		rc.Background = cfg.Raster.Background
	}
	if cfg.Raster.MathStylesheet != nil {
		rc.MathStylesheetURL = *cfg.Raster.MathStylesheet
	}

	opts := []mdexport.Option{
		mdexport.WithLogger(logger),
		mdexport.WithRasterConfig(rc),
		mdexport.WithBaseName(cfg.Output.BaseName),
		mdexport.WithTimestampFormat(cfg.Output.TimestampFormat),
		mdexport.WithAssetPath(cfg.Assets.BasePath),
	}
	if d := cfg.TimeoutDuration(); d > 0 {
		opts = append(opts, mdexport.WithTimeout(d))
	}
	if d, ok := cfg.SettleDelayDuration(); ok {
		opts = append(opts, mdexport.WithSettleDelay(d))
	}
	if len(cfg.Sanitize.AllowProperties) > 0 {
		opts = append(opts, mdexport.WithAllowProperties(cfg.Sanitize.AllowProperties...))
	}
	if cfg.Container != (config.ContainerConfig{}) {
		pdf, img := containerStyles(cfg.Container)
		opts = append(opts, mdexport.WithContainerStyles(pdf, img))
	}
	return opts
}

// containerStyles applies container overrides to the default layouts.
// The inner wrapper keeps its relation to the outer width.
func containerStyles(cc config.ContainerConfig) (pdf, img mdexport.ContainerStyle) {
	pdf = mdexport.DefaultPDFContainerStyle()
	img = mdexport.DefaultImageContainerStyle()
	for _, s := range []*mdexport.ContainerStyle{&pdf, &img} {
		inset := s.Width - s.InnerMaxWidth
		if cc.Width > 0 {
			s.Width = cc.Width
			s.InnerMaxWidth = cc.Width - inset
		}
		if cc.Padding > 0 {
			s.Padding = cc.Padding
		}
		if cc.FontFamily != "" {
			s.FontFamily = cc.FontFamily
		}
		if cc.FontSize > 0 {
			s.FontSize = cc.FontSize
		}
	}
	return pdf, img
}

// requestTimeout bounds a server request: at least the default, and room
// for two captures at the configured timeout.
func requestTimeout(capture, fallback time.Duration) time.Duration {
	if 2*capture > fallback {
		return 2 * capture
	}
	return fallback
}

// ---------------------------------------------------------------------------
// config and version
// ---------------------------------------------------------------------------

func (c *CLI) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			out, err := yamlutil.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mdexport version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "mdexport %s\n", Version)
			return nil
		},
	}
}
