package mdexport

// Notes:
// - DirSaver writes through a temp file and rename; tests check that no
//   temp file is left next to the artifact
// - Filename validation is shared with the exporter, so only the
//   saver-facing error wrapping is checked here

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// Compile-time interface checks.
var (
	_ Saver = SaverFunc(nil)
	_ Saver = DiscardSaver
)

// ---------------------------------------------------------------------------
// TestNewDirSaver
// ---------------------------------------------------------------------------

func TestNewDirSaver(t *testing.T) {
	t.Parallel()

	t.Run("creates missing directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "out")
		s, err := NewDirSaver(dir)
		if err != nil {
			t.Fatalf("NewDirSaver() error = %v", err)
		}
		if s.Dir() != dir {
			t.Errorf("Dir() = %q, want %q", s.Dir(), dir)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("directory not created: %v", err)
		}
	})

	t.Run("empty means working directory", func(t *testing.T) {
		t.Parallel()

		s, err := NewDirSaver("")
		if err != nil {
			t.Fatalf("NewDirSaver() error = %v", err)
		}
		if s.Dir() != "." {
			t.Errorf("Dir() = %q, want %q", s.Dir(), ".")
		}
	})

	t.Run("path is a file", func(t *testing.T) {
		t.Parallel()

		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := NewDirSaver(filepath.Join(file, "sub"))
		if !errors.Is(err, ErrSave) {
			t.Errorf("NewDirSaver() error = %v, want ErrSave", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestDirSaver_Save
// ---------------------------------------------------------------------------

func TestDirSaver_Save(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewDirSaver(dir)
	if err != nil {
		t.Fatal(err)
	}

	a := newArtifact(FormatMarkdown, "notes.md", []byte("# Notes\n"))
	if err := s.Save(context.Background(), a); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "notes.md"))
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(got) != "# Notes\n" {
		t.Errorf("saved content = %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (temp file left behind?)", len(entries))
	}
}

func TestDirSaver_SaveReplacesExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewDirSaver(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := s.Save(ctx, newArtifact(FormatMarkdown, "a.md", []byte("old"))); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, newArtifact(FormatMarkdown, "a.md", []byte("new"))); err != nil {
		t.Fatal(err)
	}

	got, _ := os.ReadFile(filepath.Join(dir, "a.md"))
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}
}

func TestDirSaver_SaveErrors(t *testing.T) {
	t.Parallel()

	s, err := NewDirSaver(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		a       *Artifact
		wantErr error
	}{
		{
			name:    "nil artifact",
			ctx:     context.Background(),
			a:       nil,
			wantErr: ErrSave,
		},
		{
			name:    "path separator in name",
			ctx:     context.Background(),
			a:       newArtifact(FormatPDF, "../escape.pdf", nil),
			wantErr: ErrInvalidName,
		},
		{
			name:    "empty name",
			ctx:     context.Background(),
			a:       newArtifact(FormatPDF, "", nil),
			wantErr: ErrInvalidName,
		},
		{
			name:    "cancelled context",
			ctx:     cancelled,
			a:       newArtifact(FormatPDF, "ok.pdf", nil),
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if err := s.Save(tt.ctx, tt.a); !errors.Is(err, tt.wantErr) {
				t.Errorf("Save() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestSaverFunc
// ---------------------------------------------------------------------------

func TestSaverFunc(t *testing.T) {
	t.Parallel()

	var got *Artifact
	s := SaverFunc(func(_ context.Context, a *Artifact) error {
		got = a
		return nil
	})

	want := newArtifact(FormatImage, "x.png", []byte{1})
	if err := s.Save(context.Background(), want); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Error("SaverFunc did not receive the artifact")
	}

	if err := DiscardSaver.Save(context.Background(), want); err != nil {
		t.Errorf("DiscardSaver.Save() error = %v", err)
	}
}
