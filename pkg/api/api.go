// Package api is the public entry point for turning marked-up documents
// and their overlay objects into paginated PDF files.
package api

import (
	"context"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/paperlay/paperlay/internal/content"
	"github.com/paperlay/paperlay/internal/export"
	"github.com/paperlay/paperlay/internal/font"
	"github.com/paperlay/paperlay/internal/measure"
	"github.com/paperlay/paperlay/internal/overlay"
	"github.com/paperlay/paperlay/internal/paginate"
	"github.com/paperlay/paperlay/internal/render/raster"
	"github.com/paperlay/paperlay/internal/res"
	"github.com/paperlay/paperlay/pkg/errors"
)

// Exporter is the main API for exporting documents to PDF
type Exporter struct {
	options  Options
	overlays *overlay.Store
	fonts    *font.Bank
	logger   *log.Logger
}

// New creates a new document exporter with default options
func New() *Exporter {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates a new document exporter with the specified options
func NewWithOptions(options Options) *Exporter {
	return &Exporter{
		options:  options,
		overlays: overlay.NewStore(),
	}
}

// Options returns a copy of the exporter's options
func (e *Exporter) Options() Options {
	return e.options
}

// Overlays exposes the overlay store so callers can add, edit, and
// persist objects between exports.
func (e *Exporter) Overlays() *overlay.Store {
	return e.overlays
}

// SetLogger routes progress and measurement warnings to the given logger.
func (e *Exporter) SetLogger(logger *log.Logger) {
	e.logger = logger
}

// WithOption returns a new exporter with the specified option set.
// The overlay store and parsed fonts carry over.
func (e *Exporter) WithOption(option Option) *Exporter {
	newOptions := e.options
	option(&newOptions)
	out := NewWithOptions(newOptions)
	out.overlays = e.overlays
	out.fonts = e.fonts
	out.logger = e.logger
	return out
}

// LoadOverlays replaces the overlay store with the contents of a sidecar file.
func (e *Exporter) LoadOverlays(path string) error {
	s, err := overlay.LoadFile(path)
	if err != nil {
		return err
	}
	e.overlays = s
	return nil
}

// SaveOverlays writes the overlay store to a sidecar file.
func (e *Exporter) SaveOverlays(path string) error {
	return e.overlays.SaveFile(path)
}

// Export lays out the document fragment and writes the finished PDF to output.
func (e *Exporter) Export(ctx context.Context, markup string, output io.Writer) error {
	capturer, err := e.prepare(ctx, markup)
	if err != nil {
		return err
	}
	return e.newPDFExporter().Export(ctx, capturer, output)
}

// ExportString lays out the document fragment and writes the finished PDF
// to outputPath. Nothing appears at outputPath unless every page exports.
func (e *Exporter) ExportString(ctx context.Context, markup, outputPath string) error {
	capturer, err := e.prepare(ctx, markup)
	if err != nil {
		return err
	}
	return e.newPDFExporter().ExportFile(ctx, capturer, outputPath)
}

// ExportFile exports a document file to a PDF file. An empty outputPath
// derives the target from the document title next to the input.
func (e *Exporter) ExportFile(ctx context.Context, inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "failed to read document %s", inputPath)
	}

	ex := e
	if ex.options.ResourceDir == "" {
		ex = ex.WithOption(WithResourceDir(filepath.Dir(inputPath)))
	}
	if ex.options.Title == "" {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		ex = ex.WithOption(WithTitle(base))
	}
	if ex.options.OverlayPath != "" {
		if err := ex.LoadOverlays(ex.options.OverlayPath); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
			if ex.logger != nil {
				ex.logger.Debug("overlay sidecar not found, starting empty", "path", ex.options.OverlayPath)
			}
		}
	}

	if outputPath == "" {
		outputPath = filepath.Join(filepath.Dir(inputPath), export.Filename(ex.options.Title))
	}
	return ex.ExportString(ctx, string(data), outputPath)
}

// layoutDocument parses the markup, measures every block at the content
// width, packs the blocks into pages, and reanchors overlay objects to the
// resulting page count.
func (e *Exporter) layoutDocument(ctx context.Context, markup string) ([]content.Block, []paginate.Page, error) {
	w, h := e.pageDimensions()
	contentWidth := w - e.options.MarginLeft - e.options.MarginRight
	capacity := h - e.options.MarginTop - e.options.MarginBottom
	if contentWidth <= 0 || capacity <= 0 {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "margins leave no room on a %.2fx%.2fpt page", w, h)
	}

	blocks, err := content.NewParser().ParseString(markup)
	if err != nil {
		return nil, nil, err
	}

	fonts, err := e.ensureFonts()
	if err != nil {
		return nil, nil, err
	}

	measurer := measure.NewMeasurer(measure.NewTextSurface(fonts))
	measurer.Settle = e.options.SettleDelay
	measurer.Fallback = e.options.FallbackHeight
	measurer.Logger = e.logger
	heights, err := measurer.MeasureAll(ctx, blocks, contentWidth)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]paginate.Block, len(blocks))
	for i := range blocks {
		entries[i] = paginate.Block{Index: i, Height: heights[i]}
	}
	pageList := paginate.NewPaginator(capacity).Paginate(entries)
	if len(pageList) == 0 {
		// Overlay-only documents still export one page.
		pageList = []paginate.Page{{Index: 0}}
	}

	moved, dropped := e.overlays.Reanchor(len(pageList))
	if e.logger != nil && (len(moved) > 0 || len(dropped) > 0) {
		e.logger.Warn("reanchored overlay objects after pagination",
			"pages", len(pageList), "moved", len(moved), "dropped", len(dropped))
	}
	return blocks, pageList, nil
}

// PreviewBlock is the on-page placement of one flowed block.
type PreviewBlock struct {
	Index  int     // block position in the source document
	Y      float64 // top edge in page points
	Height float64
}

// PreviewPage is the flowed structure of one page.
type PreviewPage struct {
	Index  int
	Blocks []PreviewBlock
}

// Preview parses, measures and paginates a document without rendering it.
// Editors use the result to show page structure behind overlay objects.
func (e *Exporter) Preview(ctx context.Context, markup string) ([]PreviewPage, error) {
	_, pageList, err := e.layoutDocument(ctx, markup)
	if err != nil {
		return nil, err
	}
	out := make([]PreviewPage, len(pageList))
	for i, p := range pageList {
		pp := PreviewPage{Index: p.Index}
		y := e.options.MarginTop
		for _, b := range p.Blocks {
			pp.Blocks = append(pp.Blocks, PreviewBlock{Index: b.Index, Y: y, Height: b.Height})
			y += b.Height
		}
		out[i] = pp
	}
	return out, nil
}

// PageSize returns the page dimensions in points with the configured
// orientation applied.
func (e *Exporter) PageSize() (w, h float64) {
	return e.pageDimensions()
}

// prepare runs the layout pipeline and wires up a renderer over the result.
func (e *Exporter) prepare(ctx context.Context, markup string) (*pageCapturer, error) {
	blocks, pageList, err := e.layoutDocument(ctx, markup)
	if err != nil {
		return nil, err
	}

	w, h := e.pageDimensions()
	fonts, err := e.ensureFonts()
	if err != nil {
		return nil, err
	}

	renderer := raster.NewRenderer(fonts, res.NewLoader(e.options.ResourceDir))
	renderer.PageWidth = w
	renderer.PageHeight = h
	renderer.MarginTop = e.options.MarginTop
	renderer.MarginRight = e.options.MarginRight
	renderer.MarginBottom = e.options.MarginBottom
	renderer.MarginLeft = e.options.MarginLeft
	renderer.Oversample = e.options.Oversample

	pages := make([]raster.Page, len(pageList))
	for i, p := range pageList {
		rp := raster.Page{Index: p.Index, Overlays: e.overlays.ForPage(p.Index)}
		for _, entry := range p.Blocks {
			rp.Blocks = append(rp.Blocks, blocks[entry.Index])
		}
		pages[i] = rp
	}

	return &pageCapturer{renderer: renderer, pages: pages}, nil
}

// pageDimensions resolves the configured size against the orientation
func (e *Exporter) pageDimensions() (float64, float64) {
	w, h := e.options.PageWidth, e.options.PageHeight
	switch e.options.PageOrientation {
	case PageOrientationLandscape:
		if w < h {
			w, h = h, w
		}
	case PageOrientationPortrait, "":
		if w > h {
			w, h = h, w
		}
	}
	return w, h
}

// ensureFonts parses the built-in faces once per exporter
func (e *Exporter) ensureFonts() (*font.Bank, error) {
	if e.fonts == nil {
		bank, err := font.NewBank()
		if err != nil {
			return nil, err
		}
		e.fonts = bank
	}
	return e.fonts, nil
}

// newPDFExporter builds the PDF writer with the document metadata applied
func (e *Exporter) newPDFExporter() *export.Exporter {
	w, h := e.pageDimensions()
	pdf := export.NewExporter(w, h)
	pdf.Meta = export.Metadata{
		Title:    e.options.Title,
		Author:   e.options.Author,
		Subject:  e.options.Subject,
		Keywords: e.options.Keywords,
		Creator:  "paperlay",
		Producer: "paperlay",
	}
	pdf.Logger = e.logger
	return pdf
}

// pageCapturer feeds rendered pages to the export loop one at a time.
type pageCapturer struct {
	renderer *raster.Renderer
	pages    []raster.Page
}

func (c *pageCapturer) PageCount() int {
	return len(c.pages)
}

func (c *pageCapturer) CapturePage(ctx context.Context, index int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(c.pages) {
		return nil, errors.New(errors.ErrCodeInvalidPage, "page index %d out of range [0, %d)", index, len(c.pages))
	}
	return c.renderer.RenderPage(c.pages[index])
}
