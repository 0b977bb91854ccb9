package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperlay/paperlay/internal/editor"
	"github.com/paperlay/paperlay/pkg/api"
)

// editOpts holds the command-line flags for the edit command.
type editOpts struct {
	config     string
	overlays   string
	freeResize bool
}

// newEditCmd creates the edit command for the interactive overlay editor.
func newEditCmd() *cobra.Command {
	var opts editOpts

	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Place and transform overlay objects in the terminal",
		Long: `Edit opens a terminal canvas showing the document's pages. Overlay
objects can be dragged, resized and rotated with the mouse; changes are
saved to the overlay sidecar and picked up by the next export.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "config file (default: paperlay.toml beside the document)")
	cmd.Flags().StringVar(&opts.overlays, "overlays", "", "overlay sidecar file (default: <document>.overlays.json)")
	cmd.Flags().BoolVar(&opts.freeResize, "free-resize", false, "corner resizes do not keep the aspect ratio")

	return cmd
}

// runEdit lays out the document once and opens the editor over its pages.
func runEdit(ctx context.Context, input string, opts *editOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := loadConfig(ctx, opts.config, input)
	if err != nil {
		return err
	}
	if opts.overlays != "" {
		cfg.Overlay.Sidecar = opts.overlays
	}
	discoverSidecar(&cfg, input)
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}

	options, err := api.FromConfig(cfg)
	if err != nil {
		return err
	}
	exporter := api.NewWithOptions(options)
	exporter.SetLogger(logger)

	sidecar := cfg.Overlay.Sidecar
	if sidecar == "" {
		sidecar = sidecarPath(input)
	}
	if fileExists(sidecar) {
		if err := exporter.LoadOverlays(sidecar); err != nil {
			return err
		}
	}

	pages, err := exporter.Preview(ctx, string(data))
	if err != nil {
		return err
	}

	pw, ph := exporter.PageSize()
	doc := editor.Document{
		Title:      documentTitle(cfg, input),
		PageWidth:  pw,
		PageHeight: ph,
	}
	for _, p := range pages {
		ep := editor.Page{}
		for _, b := range p.Blocks {
			ep.Blocks = append(ep.Blocks, editor.Band{Y: b.Y, Height: b.Height})
		}
		doc.Pages = append(doc.Pages, ep)
	}

	logger.Info("opening editor", "pages", len(pages), "sidecar", sidecar)

	lockAspect := cfg.Editor.LockAspect && !opts.freeResize
	final, err := editor.Run(ctx, editor.New(doc, exporter.Overlays(), sidecar, lockAspect))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if final.Dirty() {
		logger.Warn("exited without saving", "sidecar", sidecar)
	}
	return nil
}
