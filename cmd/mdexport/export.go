package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-mdexport"
	"github.com/alnah/go-mdexport/internal/config"
)

// stdinArg reads markdown from standard input.
const stdinArg = "-"

// exportFlags holds flags of the export command.
type exportFlags struct {
	format     string
	outputDir  string
	name       string
	baseName   string
	timeout    time.Duration
	scale      float64
	workers    int
	allowTaint bool
}

func addExportFlags(fs *flag.FlagSet, f *exportFlags) {
	fs.StringVarP(&f.format, "format", "f", "pdf", "output format: md, pdf, png or docx")
	fs.StringVarP(&f.outputDir, "output", "o", "", "output directory (default: current directory)")
	fs.StringVarP(&f.name, "name", "n", "", "output filename (single input only)")
	fs.StringVar(&f.baseName, "base-name", "", "prefix of generated filenames")
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "browser load and capture timeout (e.g. 30s, 2m)")
	fs.Float64Var(&f.scale, "scale", 0, "device pixels per CSS pixel for PDF and PNG")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel exports (0 = auto)")
	fs.BoolVar(&f.allowTaint, "allow-taint", false, "capture even if cross-origin images failed to load")
}

// applyExportFlags overrides cfg with the flags the user set.
func applyExportFlags(fs *flag.FlagSet, f *exportFlags, cfg *config.Config) {
	if fs.Changed("output") {
		cfg.Output.Dir = f.outputDir
	}
	if fs.Changed("base-name") {
		cfg.Output.BaseName = f.baseName
	}
	if fs.Changed("timeout") {
		cfg.Export.Timeout = f.timeout.String()
	}
	if fs.Changed("scale") {
		cfg.Raster.Scale = f.scale
	}
	if fs.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fs.Changed("allow-taint") {
		cfg.Raster.AllowTaint = f.allowTaint
	}
}

func (c *CLI) exportCommand() *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export [file... | -]",
		Short: "Export markdown files or standard input",
		Example: `  mdexport export -f pdf report.md
  mdexport export -f docx -o out/ notes/*.md
  cat chart.md | mdexport export -f png -n chart.png -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd.Context(), args, cmd.Flags(), &f)
		},
	}
	addExportFlags(cmd.Flags(), &f)
	return cmd
}

// runExport exports every input concurrently, bounded by the worker count.
// Each input gets its own exporter so relative image paths resolve against
// the input's directory.
func (c *CLI) runExport(ctx context.Context, args []string, fs *flag.FlagSet, f *exportFlags) error {
	format, err := mdexport.ParseFormat(f.format)
	if err != nil {
		return err
	}

	inputs := args
	if len(inputs) == 0 {
		inputs = []string{stdinArg}
	}
	if err := validateInputs(inputs, f.name); err != nil {
		return err
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	applyExportFlags(fs, f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	saver, err := mdexport.NewDirSaver(cfg.Output.Dir)
	if err != nil {
		return err
	}

	opts := exporterOptions(cfg, c.logger)
	var outMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(mdexport.ResolvePoolSize(cfg.Workers))
	for _, in := range inputs {
		g.Go(func() error {
			path, err := c.exportOne(ctx, in, format, f.name, opts, saver)
			if err != nil {
				return fmt.Errorf("%s: %w", displayName(in), err)
			}
			if !c.flags.quiet {
				outMu.Lock()
				fmt.Fprintln(c.env.Stdout, path)
				outMu.Unlock()
			}
			return nil
		})
	}
	return g.Wait()
}

// validateInputs rejects a repeated stdin and --name with several inputs.
func validateInputs(inputs []string, name string) error {
	if name != "" && len(inputs) > 1 {
		return fmt.Errorf("%w: --name requires a single input, got %d", ErrUsage, len(inputs))
	}
	stdin := 0
	for _, in := range inputs {
		if in == stdinArg {
			stdin++
		}
	}
	if stdin > 1 {
		return fmt.Errorf("%w: standard input given more than once", ErrUsage)
	}
	return nil
}

// exportOne exports one input and saves it, returning the written path.
func (c *CLI) exportOne(ctx context.Context, in string, format mdexport.Format, name string, opts []mdexport.Option, saver *mdexport.DirSaver) (string, error) {
	content, sourceDir, err := c.readInput(in)
	if err != nil {
		return "", err
	}

	e, err := mdexport.NewExporter(append(opts[:len(opts):len(opts)], mdexport.WithSourceDir(sourceDir))...)
	if err != nil {
		return "", err
	}
	defer func() { _ = e.Close() }()

	a, err := e.Export(ctx, format, content, outputName(in, name, format))
	if err != nil {
		return "", err
	}
	if err := saver.Save(ctx, a); err != nil {
		return "", err
	}
	return filepath.Join(saver.Dir(), a.Filename), nil
}

// readInput returns the markdown of a file or stdin, and the directory that
// relative paths in it refer to.
func (c *CLI) readInput(in string) (content, dir string, err error) {
	if in == stdinArg {
		data, err := io.ReadAll(c.env.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("%w: stdin: %w", ErrReadInput, err)
		}
		wd, _ := os.Getwd()
		return string(data), wd, nil
	}

	data, err := os.ReadFile(in) // #nosec G304 -- input path is user-provided
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	abs, err := filepath.Abs(in)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	return string(data), filepath.Dir(abs), nil
}

// outputName picks the artifact filename: the explicit name, else the
// input's stem with the format extension. Stdin without a name gets a
// generated timestamped name.
func outputName(in, name string, format mdexport.Format) string {
	if name != "" {
		return name
	}
	if in == stdinArg {
		return ""
	}
	base := filepath.Base(in)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + format.Extension()
}

func displayName(in string) string {
	if in == stdinArg {
		return "stdin"
	}
	return in
}
