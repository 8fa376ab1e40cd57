package main

// Notes:
// - System probes are replaced through doctorDeps, so no browser is needed
// - Environment variables come from a map; tests run in parallel

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeDoctorDeps(browser string, found bool) doctorDeps {
	return doctorDeps{
		lookPath:       func() (string, bool) { return browser, found },
		browserVersion: func(string) (string, error) { return "Chromium 130.0", nil },
		fileExists:     func(p string) bool { return found && p == browser },
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctor
// ---------------------------------------------------------------------------

func TestRunDoctor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		vars       map[string]string
		deps       doctorDeps
		wantStatus string
		wantFound  bool
	}{
		{
			name:       "browser found",
			deps:       fakeDoctorDeps("/usr/bin/chromium", true),
			wantStatus: statusReady,
			wantFound:  true,
		},
		{
			name:       "browser missing",
			deps:       fakeDoctorDeps("", false),
			wantStatus: statusErrors,
		},
		{
			name:       "ROD_BROWSER_BIN points nowhere",
			vars:       map[string]string{"ROD_BROWSER_BIN": "/opt/none/chrome"},
			deps:       fakeDoctorDeps("/usr/bin/chromium", true),
			wantStatus: statusErrors,
		},
		{
			name:       "CI without sandbox override",
			vars:       map[string]string{"CI": "true"},
			deps:       fakeDoctorDeps("/usr/bin/chromium", true),
			wantStatus: statusWarnings,
			wantFound:  true,
		},
		{
			name:       "CI with sandbox override",
			vars:       map[string]string{"CI": "true", "ROD_NO_SANDBOX": "1"},
			deps:       fakeDoctorDeps("/usr/bin/chromium", true),
			wantStatus: statusReady,
			wantFound:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := runDoctor(mapGetenv(tt.vars), t.TempDir(), tt.deps)
			if r.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q (errors %v, warnings %v)", r.Status, tt.wantStatus, r.Errors, r.Warnings)
			}
			if r.Browser.Found != tt.wantFound {
				t.Errorf("browser found = %v, want %v", r.Browser.Found, tt.wantFound)
			}
			if !r.Output.Writable {
				t.Error("temp output dir reported not writable")
			}
		})
	}
}

func TestRunDoctor_OutputNotWritable(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	r := runDoctor(mapGetenv(nil), file, fakeDoctorDeps("/usr/bin/chromium", true))
	if r.Output.Writable || r.Status != statusErrors {
		t.Errorf("output = %+v, status %q; want not writable and errors", r.Output, r.Status)
	}
}

func TestContainerSignal(t *testing.T) {
	t.Parallel()

	none := func(string) bool { return false }
	tests := []struct {
		vars   map[string]string
		exists func(string) bool
		want   string
	}{
		{exists: func(p string) bool { return p == "/.dockerenv" }, want: "/.dockerenv"},
		{vars: map[string]string{"container": "podman"}, exists: none, want: "container=podman"},
		{vars: map[string]string{"KUBERNETES_SERVICE_HOST": "10.0.0.1"}, exists: none, want: "KUBERNETES_SERVICE_HOST"},
		{exists: none, want: ""},
	}
	for _, tt := range tests {
		if got := containerSignal(mapGetenv(tt.vars), tt.exists); got != tt.want {
			t.Errorf("containerSignal(%v) = %q, want %q", tt.vars, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestDoctorCommand
// ---------------------------------------------------------------------------

func TestDoctorCommand_JSON(t *testing.T) {
	t.Parallel()

	te := newTestEnv("", map[string]string{"MDEXPORT_OUTPUT_DIR": t.TempDir()})
	cli := newCLI(te.env)
	cli.doctor = fakeDoctorDeps("/usr/bin/chromium", true)
	root := cli.RootCommand()
	root.SetArgs([]string{"doctor", "--json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("doctor error = %v", err)
	}

	var r doctorReport
	if err := json.Unmarshal(te.stdout.Bytes(), &r); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, te.stdout.String())
	}
	if r.Status != statusReady || r.Browser.Version != "Chromium 130.0" {
		t.Errorf("report = %+v", r)
	}
}

func TestDoctorCommand_NotReady(t *testing.T) {
	t.Parallel()

	te := newTestEnv("", map[string]string{"MDEXPORT_OUTPUT_DIR": t.TempDir()})
	cli := newCLI(te.env)
	cli.doctor = fakeDoctorDeps("", false)
	root := cli.RootCommand()
	root.SetArgs([]string{"doctor"})

	err := root.Execute()
	if !errors.Is(err, errNotReady) {
		t.Fatalf("error = %v, want errNotReady", err)
	}
	if got := exitCodeFor(err); got != ExitGeneral {
		t.Errorf("exit code = %d, want %d", got, ExitGeneral)
	}

	if !strings.Contains(te.stdout.String(), "Status: errors") {
		t.Errorf("output = %q", te.stdout.String())
	}
}
