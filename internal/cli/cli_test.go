package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paperlay/paperlay/internal/config"
)

func TestDocumentTitle(t *testing.T) {
	cfg := config.Default()
	if got := documentTitle(cfg, "/docs/report.html"); got != "report" {
		t.Errorf("fallback title = %q, want %q", got, "report")
	}

	cfg.Document.Title = "Quarterly Review"
	if got := documentTitle(cfg, "/docs/report.html"); got != "Quarterly Review" {
		t.Errorf("configured title = %q, want %q", got, "Quarterly Review")
	}
}

func TestSidecarPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/docs/report.html", "/docs/report.overlays.json"},
		{"notes.html", "notes.overlays.json"},
		{"/a/b/plain", "/a/b/plain.overlays.json"},
	}
	for _, tt := range tests {
		if got := sidecarPath(tt.input); got != tt.want {
			t.Errorf("sidecarPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDefaultOutputPath(t *testing.T) {
	cfg := config.Default()
	if got, want := defaultOutputPath(cfg, "/docs/My Notes.html"), "/docs/my_notes.pdf"; got != want {
		t.Errorf("derived path = %q, want %q", got, want)
	}

	cfg.Document.Title = "Q3 Report / Final"
	if got, want := defaultOutputPath(cfg, "/docs/input.html"), "/docs/q3_report_final.pdf"; got != want {
		t.Errorf("titled path = %q, want %q", got, want)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Page.Width = 500
	cfg.Page.Height = 700

	applyOverrides(&cfg, &exportOpts{
		page:       "letter",
		landscape:  true,
		oversample: 3,
		title:      "Override",
		overlays:   "custom.json",
	})

	if cfg.Page.Preset != "letter" || cfg.Page.Width != 0 || cfg.Page.Height != 0 {
		t.Errorf("page = %+v, want letter preset with explicit size cleared", cfg.Page)
	}
	if cfg.Page.Orientation != "landscape" {
		t.Errorf("orientation = %q, want landscape", cfg.Page.Orientation)
	}
	if cfg.Render.Oversample != 3 {
		t.Errorf("oversample = %v, want 3", cfg.Render.Oversample)
	}
	if cfg.Document.Title != "Override" || cfg.Overlay.Sidecar != "custom.json" {
		t.Errorf("title/sidecar = %q/%q, want overridden", cfg.Document.Title, cfg.Overlay.Sidecar)
	}
}

func TestApplyOverridesLeavesConfigAlone(t *testing.T) {
	cfg := config.Default()
	cfg.Document.Title = "Keep Me"
	cfg.Render.Oversample = 4

	applyOverrides(&cfg, &exportOpts{})

	if cfg.Document.Title != "Keep Me" || cfg.Render.Oversample != 4 {
		t.Errorf("empty overrides changed config: %+v", cfg)
	}
	if cfg.Page.Orientation != "portrait" {
		t.Errorf("orientation = %q, want portrait preserved", cfg.Page.Orientation)
	}
}

func TestDiscoverSidecar(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "doc.html")
	sidecar := filepath.Join(dir, "doc.overlays.json")

	cfg := config.Default()
	discoverSidecar(&cfg, input)
	if cfg.Overlay.Sidecar != "" {
		t.Errorf("sidecar = %q with no file on disk, want empty", cfg.Overlay.Sidecar)
	}

	if err := os.WriteFile(sidecar, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	discoverSidecar(&cfg, input)
	if cfg.Overlay.Sidecar != sidecar {
		t.Errorf("sidecar = %q, want discovered %q", cfg.Overlay.Sidecar, sidecar)
	}

	cfg.Overlay.Sidecar = "explicit.json"
	discoverSidecar(&cfg, input)
	if cfg.Overlay.Sidecar != "explicit.json" {
		t.Errorf("sidecar = %q, explicit setting must win", cfg.Overlay.Sidecar)
	}
}

func TestLoadConfigDiscoversBesideInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "doc.html")
	toml := "[document]\ntitle = \"From Disk\"\n"
	if err := os.WriteFile(filepath.Join(dir, "paperlay.toml"), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(context.Background(), "", input)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Document.Title != "From Disk" {
		t.Errorf("title = %q, want %q", cfg.Document.Title, "From Disk")
	}
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	input := filepath.Join(t.TempDir(), "doc.html")
	cfg, err := loadConfig(context.Background(), "", input)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Page.Preset != "a4" || cfg.Render.Oversample != 2 {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestLoggerContextRoundTrip(t *testing.T) {
	base := context.Background()
	if loggerFromContext(base) == nil {
		t.Fatal("loggerFromContext(empty) = nil, want default logger")
	}

	l := newLogger(os.Stderr, 0)
	ctx := withLogger(base, l)
	if got := loggerFromContext(ctx); got != l {
		t.Error("loggerFromContext did not return the attached logger")
	}
}
