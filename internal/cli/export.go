package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paperlay/paperlay/internal/config"
	"github.com/paperlay/paperlay/internal/export"
	"github.com/paperlay/paperlay/pkg/api"
)

// exportOpts holds the command-line flags for the export command.
type exportOpts struct {
	config     string  // config file path, empty means auto-discover
	output     string  // output PDF path, empty derives from the title
	overlays   string  // overlay sidecar path
	title      string  // document title override
	page       string  // page preset override: a4, a5, letter, legal
	landscape  bool    // landscape orientation
	oversample float64 // capture scale override
}

// newExportCmd creates the export command for producing a PDF from a document.
func newExportCmd() *cobra.Command {
	var opts exportOpts

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Lay out a document and export it to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output PDF file (default: derived from the title)")
	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "config file (default: paperlay.toml beside the document)")
	cmd.Flags().StringVar(&opts.overlays, "overlays", "", "overlay sidecar file (default: from config)")
	cmd.Flags().StringVar(&opts.title, "title", "", "document title override")
	cmd.Flags().StringVar(&opts.page, "page", "", "page preset: a4, a5, letter, legal")
	cmd.Flags().BoolVar(&opts.landscape, "landscape", false, "landscape orientation")
	cmd.Flags().Float64Var(&opts.oversample, "oversample", 0, "capture scale factor override")

	return cmd
}

// runExport loads the configuration, applies flag overrides, and runs the
// full export pipeline on the input document.
func runExport(ctx context.Context, input string, opts *exportOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := loadConfig(ctx, opts.config, input)
	if err != nil {
		return err
	}
	applyOverrides(&cfg, opts)
	discoverSidecar(&cfg, input)
	if err := cfg.Validate(); err != nil {
		return err
	}

	options, err := api.FromConfig(cfg)
	if err != nil {
		return err
	}

	out := opts.output
	if out == "" {
		out = defaultOutputPath(cfg, input)
	}

	exporter := api.NewWithOptions(options)
	exporter.SetLogger(logger)

	p := newProgress(logger)
	if err := exporter.ExportFile(ctx, input, out); err != nil {
		return err
	}
	p.done(fmt.Sprintf("Exported %s", out))
	return nil
}

// loadConfig loads the config file, auto-discovering paperlay.toml beside
// the input document when no explicit path is given.
func loadConfig(ctx context.Context, configPath, inputPath string) (config.Config, error) {
	logger := loggerFromContext(ctx)

	path := configPath
	if path == "" {
		candidate := filepath.Join(filepath.Dir(inputPath), "paperlay.toml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path == "" {
		logger.Debug("no config file, using defaults")
		return config.Default(), nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	logger.Debug("loaded config", "path", path)
	return cfg, nil
}

// applyOverrides layers command-line flags over the loaded configuration.
func applyOverrides(cfg *config.Config, opts *exportOpts) {
	if opts.page != "" {
		cfg.Page.Preset = opts.page
		cfg.Page.Width = 0
		cfg.Page.Height = 0
	}
	if opts.landscape {
		cfg.Page.Orientation = "landscape"
	}
	if opts.oversample > 0 {
		cfg.Render.Oversample = opts.oversample
	}
	if opts.title != "" {
		cfg.Document.Title = opts.title
	}
	if opts.overlays != "" {
		cfg.Overlay.Sidecar = opts.overlays
	}
}

// defaultOutputPath derives the output file from the document title,
// falling back to the input file name, placed beside the input.
func defaultOutputPath(cfg config.Config, input string) string {
	return filepath.Join(filepath.Dir(input), export.Filename(documentTitle(cfg, input)))
}

// documentTitle is the configured title, falling back to the input name.
func documentTitle(cfg config.Config, input string) string {
	if cfg.Document.Title != "" {
		return cfg.Document.Title
	}
	return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
}

// sidecarPath is the conventional overlay sidecar location for a document.
func sidecarPath(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), base+".overlays.json")
}

// discoverSidecar fills in the conventional sidecar path beside the input
// when the config names none and the file exists.
func discoverSidecar(cfg *config.Config, input string) {
	if cfg.Overlay.Sidecar != "" {
		return
	}
	if candidate := sidecarPath(input); fileExists(candidate) {
		cfg.Overlay.Sidecar = candidate
	}
}
