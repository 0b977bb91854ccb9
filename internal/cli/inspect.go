package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/spf13/cobra"
)

// newInspectCmd creates the inspect command for examining exported PDFs.
func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Report page count and dimensions of a PDF",
		Long: `Inspect validates a PDF file and prints its page count, page
dimensions and file size. It works on any PDF, not only those produced
by paperlay.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runInspect(ctx context.Context, path string) error {
	logger := loggerFromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if err := pdfapi.ValidateFile(path, nil); err != nil {
		return fmt.Errorf("%s is not a valid PDF: %w", path, err)
	}
	logger.Debug("validated", "path", path)

	count, err := pdfapi.PageCountFile(path)
	if err != nil {
		return err
	}

	dims, err := pdfapi.PageDimsFile(path)
	if err != nil {
		return err
	}

	fmt.Println(styleTitle.Render(filepath.Base(path)))
	fmt.Printf("  %s %s\n", styleLabel.Render("size:"), formatBytes(info.Size()))
	fmt.Printf("  %s %d\n", styleLabel.Render("pages:"), count)
	if len(dims) > 0 {
		d := dims[0]
		fmt.Printf("  %s %.2f x %.2f pt\n", styleLabel.Render("page size:"), d.Width, d.Height)
	}
	return nil
}

// formatBytes renders a byte count in human readable binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
