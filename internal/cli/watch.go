package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/paperlay/paperlay/internal/watch"
)

// newWatchCmd creates the watch command for continuous re-export.
func newWatchCmd() *cobra.Command {
	var opts exportOpts
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [file]",
		Short: "Re-export a document whenever it changes",
		Long: `Watch performs an initial export and then re-exports the document
every time the source file, the overlay sidecar or the config file
changes. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), args[0], &opts, debounce)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output PDF file (default: derived from the title)")
	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "config file (default: paperlay.toml beside the document)")
	cmd.Flags().StringVar(&opts.overlays, "overlays", "", "overlay sidecar file (default: from config)")
	cmd.Flags().StringVar(&opts.title, "title", "", "document title override")
	cmd.Flags().StringVar(&opts.page, "page", "", "page preset: a4, a5, letter, legal")
	cmd.Flags().BoolVar(&opts.landscape, "landscape", false, "landscape orientation")
	cmd.Flags().Float64Var(&opts.oversample, "oversample", 0, "capture scale factor override")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "settle time before re-exporting")

	return cmd
}

// runWatch exports once, then re-exports whenever the document or its
// companion files change. A failed export is logged and watching
// continues; the config is reloaded on every run so edits to it take
// effect immediately.
func runWatch(ctx context.Context, input string, opts *exportOpts, debounce time.Duration) error {
	logger := loggerFromContext(ctx)

	cfg, err := loadConfig(ctx, opts.config, input)
	if err != nil {
		return err
	}
	applyOverrides(&cfg, opts)

	paths := []string{input}
	if opts.config != "" {
		paths = append(paths, opts.config)
	} else if candidate := filepath.Join(filepath.Dir(input), "paperlay.toml"); fileExists(candidate) {
		paths = append(paths, candidate)
	}
	// Watch the sidecar even before it exists, so saving from the editor
	// triggers a re-export.
	spath := cfg.Overlay.Sidecar
	if spath == "" {
		spath = sidecarPath(input)
	}
	paths = append(paths, spath)

	doExport := func(ctx context.Context) {
		if err := runExport(ctx, input, opts); err != nil {
			logger.Error("export failed", "err", err)
		}
	}

	w, err := watch.New(func(ctx context.Context, path string) {
		logger.Info("change detected", "path", path)
		doExport(ctx)
	}, paths...)
	if err != nil {
		return err
	}
	if debounce > 0 {
		w.Debounce = debounce
	}
	w.Logger = logger

	doExport(ctx)
	logger.Info("watching for changes", "files", len(paths))

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
