package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"

	"github.com/alnah/go-mdexport/internal/fileutil"
)

// errNotReady is returned by doctor when a check fails.
var errNotReady = errors.New("environment not ready for PDF and PNG exports")

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorReport holds the diagnostic results.
type doctorReport struct {
	Status   string        `json:"status"`
	Browser  browserReport `json:"browser"`
	Env      envReport     `json:"environment"`
	Output   outputReport  `json:"output"`
	Warnings []string      `json:"warnings,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
}

type browserReport struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

type envReport struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	Container string `json:"container,omitempty"`
	CI        bool   `json:"ci"`
}

type outputReport struct {
	Dir      string `json:"dir"`
	Writable bool   `json:"writable"`
}

// doctorDeps are the system probes used by doctor, swapped in tests.
type doctorDeps struct {
	lookPath       func() (string, bool)
	browserVersion func(path string) (string, error)
	fileExists     func(path string) bool
}

var defaultDoctorDeps = doctorDeps{
	lookPath: launcher.LookPath,
	browserVersion: func(path string) (string, error) {
		out, err := exec.Command(path, "--version").Output() // #nosec G204 -- path comes from ROD_BROWSER_BIN or rod's lookup
		return strings.TrimSpace(string(out)), err
	},
	fileExists: fileutil.FileExists,
}

func (c *CLI) doctorCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that a browser and the output directory are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			r := runDoctor(c.env.Getenv, cfg.Output.Dir, c.doctor)
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(r); err != nil {
					return err
				}
			} else {
				printDoctorReport(cmd.OutOrStdout(), r)
			}
			if r.Status == statusErrors {
				return errNotReady
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")
	return cmd
}

// runDoctor performs every check and derives the overall status.
func runDoctor(getenv func(string) string, outputDir string, deps doctorDeps) *doctorReport {
	r := &doctorReport{
		Status: statusReady,
		Env:    envReport{OS: runtime.GOOS, Arch: runtime.GOARCH},
	}

	checkBrowser(r, getenv, deps)
	checkEnvironment(r, getenv, deps)
	checkOutputDir(r, outputDir)

	switch {
	case len(r.Errors) > 0:
		r.Status = statusErrors
	case len(r.Warnings) > 0:
		r.Status = statusWarnings
	}
	return r
}

func checkBrowser(r *doctorReport, getenv func(string) string, deps doctorDeps) {
	path := getenv("ROD_BROWSER_BIN")
	if path == "" {
		var found bool
		if path, found = deps.lookPath(); !found {
			r.Errors = append(r.Errors, "Chrome/Chromium not found; install it or set ROD_BROWSER_BIN")
			return
		}
	}
	if !deps.fileExists(path) {
		r.Errors = append(r.Errors, fmt.Sprintf("browser not found at %s", path))
		return
	}

	r.Browser.Found = true
	r.Browser.Path = path
	r.Browser.Sandbox = getenv("ROD_NO_SANDBOX") == ""
	if v, err := deps.browserVersion(path); err == nil {
		r.Browser.Version = v
	} else {
		r.Warnings = append(r.Warnings, fmt.Sprintf("could not read browser version: %v", err))
	}
}

func checkEnvironment(r *doctorReport, getenv func(string) string, deps doctorDeps) {
	r.Env.Container = containerSignal(getenv, deps.fileExists)
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if getenv(v) != "" {
			r.Env.CI = true
			break
		}
	}
	if (r.Env.Container != "" || r.Env.CI) && getenv("ROD_NO_SANDBOX") == "" {
		r.Warnings = append(r.Warnings, "container or CI detected but ROD_NO_SANDBOX is not set")
	}
}

// containerSignal names the first container indicator found, or "".
func containerSignal(getenv func(string) string, exists func(string) bool) string {
	switch {
	case exists("/.dockerenv"):
		return "/.dockerenv"
	case getenv("container") != "":
		return "container=" + getenv("container")
	case getenv("KUBERNETES_SERVICE_HOST") != "":
		return "KUBERNETES_SERVICE_HOST"
	default:
		return ""
	}
}

// checkOutputDir probes the output directory with a throwaway file.
func checkOutputDir(r *doctorReport, dir string) {
	if dir == "" {
		dir = "."
	}
	r.Output.Dir = dir

	f, err := os.CreateTemp(dir, ".mdexport-doctor-*")
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("output directory %s is not writable", dir))
		return
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	r.Output.Writable = true
}

func printDoctorReport(w io.Writer, r *doctorReport) {
	fmt.Fprintln(w, "Browser")
	if r.Browser.Found {
		fmt.Fprintf(w, "  [OK] %s\n", r.Browser.Path)
		if r.Browser.Version != "" {
			fmt.Fprintf(w, "  [OK] %s\n", r.Browser.Version)
		}
		if r.Browser.Sandbox {
			fmt.Fprintln(w, "  [OK] sandbox enabled")
		} else {
			fmt.Fprintln(w, "  [OK] sandbox disabled (ROD_NO_SANDBOX)")
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] not found")
	}

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container != "" {
		fmt.Fprintf(w, "  [OK] container (%s)\n", r.Env.Container)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI")
	}

	fmt.Fprintln(w, "Output")
	if r.Output.Writable {
		fmt.Fprintf(w, "  [OK] %s writable\n", r.Output.Dir)
	} else {
		fmt.Fprintf(w, "  [ERROR] %s not writable\n", r.Output.Dir)
	}

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "[WARN] %s\n", warn)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "[ERROR] %s\n", e)
	}
	fmt.Fprintf(w, "Status: %s\n", r.Status)
}
