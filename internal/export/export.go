// Package export writes captured page bitmaps into a PDF file.
//
// Export is all-or-nothing: pages are captured strictly in order, any
// capture or embed failure aborts the run, and the output path only ever
// sees a complete file. The PDF is assembled in a temporary file next to
// the destination and renamed into place after the last page lands.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"codeberg.org/go-pdf/fpdf"
	"github.com/charmbracelet/log"
	"golang.org/x/text/unicode/norm"

	"github.com/paperlay/paperlay/pkg/errors"
)

// PageCapturer yields finished page bitmaps for embedding.
type PageCapturer interface {
	// PageCount reports how many pages the document has.
	PageCount() int
	// CapturePage renders the zero-based page at export resolution.
	CapturePage(ctx context.Context, index int) (image.Image, error)
}

// Metadata is the document information embedded in the PDF catalog.
type Metadata struct {
	Title    string
	Author   string
	Subject  string
	Keywords string
	Creator  string
	Producer string
}

// Exporter assembles captured pages into a PDF at a fixed page size.
type Exporter struct {
	PageWidth  float64 // points
	PageHeight float64 // points
	Meta       Metadata
	Logger     *log.Logger
}

// NewExporter creates an exporter for the given page size in points.
func NewExporter(width, height float64) *Exporter {
	return &Exporter{PageWidth: width, PageHeight: height}
}

// Export captures every page in order and writes the finished PDF to w.
// The first failed capture aborts the run; later pages are never touched.
func (e *Exporter) Export(ctx context.Context, capturer PageCapturer, w io.Writer) error {
	n := capturer.PageCount()
	if n <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "document has no pages to export")
	}
	if e.PageWidth <= 0 || e.PageHeight <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "invalid page size %.2fx%.2f", e.PageWidth, e.PageHeight)
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: e.PageWidth, Ht: e.PageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(e.Meta.Title, true)
	pdf.SetAuthor(e.Meta.Author, true)
	pdf.SetSubject(e.Meta.Subject, true)
	pdf.SetKeywords(e.Meta.Keywords, true)
	pdf.SetCreator(e.Meta.Creator, true)
	pdf.SetProducer(e.Meta.Producer, true)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeExport, err, "export canceled before page %d", i+1)
		}

		img, err := capturer.CapturePage(ctx, i)
		if err != nil {
			return errors.Wrap(errors.ErrCodeCapture, err, "failed to capture page %d of %d", i+1, n)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return errors.Wrap(errors.ErrCodeExport, err, "failed to encode page %d", i+1)
		}

		pdf.AddPage()
		name := fmt.Sprintf("page-%d", i+1)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.ImageOptions(name, 0, 0, e.PageWidth, e.PageHeight, false, opts, 0, "")
		if pdf.Err() {
			return errors.Wrap(errors.ErrCodeExport, pdf.Error(), "failed to embed page %d", i+1)
		}

		if e.Logger != nil {
			e.Logger.Debug("captured page", "page", i+1, "pages", n)
		}
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(errors.ErrCodeExport, err, "failed to write PDF")
	}
	return nil
}

// ExportFile writes the PDF to path. On any failure the destination is
// left untouched: the document builds in a temporary sibling file that is
// renamed over path only after a fully successful export.
func (e *Exporter) ExportFile(ctx context.Context, capturer PageCapturer, path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(errors.ErrCodeExport, err, "failed to create output directory %s", dir)
		}
	}

	tmp, err := os.CreateTemp(dir, ".paperlay-*.pdf")
	if err != nil {
		return errors.Wrap(errors.ErrCodeExport, err, "failed to create temporary file in %s", dir)
	}
	done := false
	defer func() {
		if !done {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := e.Export(ctx, capturer, tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeExport, err, "failed to finalize %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(errors.ErrCodeExport, err, "failed to move finished PDF to %s", path)
	}
	done = true

	if e.Logger != nil {
		e.Logger.Info("exported document", "path", path, "pages", capturer.PageCount())
	}
	return nil
}

// Filename derives a filesystem-safe output name from a document title.
// The title is NFKC-normalized and lowercased, whitespace and path
// separators collapse to single underscores, and anything else unsafe is
// dropped. An unusable title falls back to "document.pdf".
func Filename(title string) string {
	t := norm.NFKC.String(strings.TrimSpace(title))
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(t) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.':
			if pending && b.Len() > 0 {
				b.WriteRune('_')
			}
			pending = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '/' || r == '\\' || r == '_':
			pending = true
		}
	}
	name := strings.Trim(b.String(), "._")
	if name == "" {
		return "document.pdf"
	}
	return name + ".pdf"
}
