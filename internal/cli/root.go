package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package with values injected via
// ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the paperlay CLI and returns an error if any command fails.
//
// The function sets up the root command with all subcommands (export,
// watch, edit, inspect), configures logging based on the --verbose flag,
// and executes the command tree. The logger is attached to the context and
// accessible to all commands via loggerFromContext. Canceling ctx stops
// long-running commands such as watch.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "paperlay",
		Short:        "Paperlay exports annotated documents to paginated PDFs",
		Long:         `Paperlay lays out marked-up documents into pages, composites overlay objects (images and text boxes) on top, and captures every page into a single PDF.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("paperlay %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newExportCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newEditCmd())
	root.AddCommand(newInspectCmd())

	return root.ExecuteContext(ctx)
}
