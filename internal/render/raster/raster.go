// Package raster composes one page's flowed blocks and overlay objects into
// a fixed-size bitmap surface.
//
// All layout decisions happened upstream: the paginator chose which blocks
// live on the page, and overlay geometry arrives final from the store. This
// layer only draws. Pages render at the physical page size times an
// oversampling factor so small text stays legible after PDF embedding.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/fogleman/gg"
	"github.com/paperlay/paperlay/internal/content"
	"github.com/paperlay/paperlay/internal/font"
	"github.com/paperlay/paperlay/internal/geom"
	"github.com/paperlay/paperlay/internal/layout"
	"github.com/paperlay/paperlay/internal/overlay"
	"github.com/paperlay/paperlay/internal/res"
	"github.com/paperlay/paperlay/internal/style"
	"github.com/paperlay/paperlay/pkg/errors"
)

// textBoxFontSize is the fixed size for text box overlay content, in points.
const textBoxFontSize = 12.0

// textBoxPadding is the inset between a text box border and its text.
const textBoxPadding = 4.0

// Page is the renderable content of one page: its flowed blocks in order
// and its overlay objects in z-order.
type Page struct {
	Index    int
	Blocks   []content.Block
	Overlays []overlay.Object
}

// Renderer draws pages onto raster surfaces.
type Renderer struct {
	Fonts        *font.Bank
	Loader       *res.Loader
	PageWidth    float64 // points
	PageHeight   float64 // points
	MarginTop    float64
	MarginRight  float64
	MarginBottom float64
	MarginLeft   float64
	Oversample   float64
}

// NewRenderer creates a renderer with the given font bank and image loader.
// Page dimensions and margins default to ISO A4 with one-inch margins at 2x
// oversampling; callers overwrite them from configuration.
func NewRenderer(fonts *font.Bank, loader *res.Loader) *Renderer {
	return &Renderer{
		Fonts:        fonts,
		Loader:       loader,
		PageWidth:    595.28,
		PageHeight:   841.89,
		MarginTop:    72,
		MarginRight:  72,
		MarginBottom: 72,
		MarginLeft:   72,
		Oversample:   2,
	}
}

// ContentWidth returns the usable width between the side margins.
func (r *Renderer) ContentWidth() float64 {
	return r.PageWidth - r.MarginLeft - r.MarginRight
}

// RenderPage draws the page and returns its bitmap at the oversampled pixel
// dimensions. Block content draws first, then overlays in array order so
// later objects cover earlier ones.
func (r *Renderer) RenderPage(p Page) (image.Image, error) {
	os := r.Oversample
	if os <= 0 {
		os = 1
	}
	pxW := int(math.Round(r.PageWidth * os))
	pxH := int(math.Round(r.PageHeight * os))
	if pxW <= 0 || pxH <= 0 {
		return nil, errors.New(errors.ErrCodeRender, "page %d has invalid pixel size %dx%d", p.Index, pxW, pxH)
	}

	dc := gg.NewContext(pxW, pxH)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	engine := layout.NewEngine(r.Fonts)
	y := r.MarginTop
	for _, b := range p.Blocks {
		bl, err := engine.LayoutBlock(b, r.ContentWidth())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeRender, err, "failed to lay out block %d on page %d", b.Index, p.Index)
		}
		y += bl.Style.SpaceBefore
		if err := r.drawBlock(dc, bl, y, os); err != nil {
			return nil, err
		}
		y += bl.ContentHeight + bl.Style.SpaceAfter
	}

	for _, o := range p.Overlays {
		if err := r.drawOverlay(dc, o, os); err != nil {
			return nil, err
		}
	}

	return dc.Image(), nil
}

// drawBlock draws one laid-out block with its content top at y points.
func (r *Renderer) drawBlock(dc *gg.Context, bl *layout.BlockLayout, y, os float64) error {
	left := r.MarginLeft

	if bl.Block.Kind == content.KindRule {
		dc.SetRGB(0.5, 0.5, 0.5)
		dc.SetLineWidth(style.RuleThickness * os)
		mid := (y + style.RuleThickness/2) * os
		dc.DrawLine(left*os, mid, (r.PageWidth-r.MarginRight)*os, mid)
		dc.Stroke()
		return nil
	}

	dc.SetRGB(0, 0, 0)

	if bl.Marker != "" && len(bl.Lines) > 0 {
		face, err := r.Fonts.Face(font.ClassRegular, bl.Style.FontSize*os)
		if err != nil {
			return errors.Wrap(errors.ErrCodeRender, err, "failed to load marker face")
		}
		dc.SetFontFace(face)
		first := bl.Lines[0]
		dc.DrawString(bl.Marker, (left+bl.MarkerX)*os, (y+first.Top+first.Baseline)*os)
	}

	for _, line := range bl.Lines {
		baseline := (y + line.Top + line.Baseline) * os
		for _, seg := range line.Segments {
			face, err := r.Fonts.Face(seg.Class, bl.Style.FontSize*os)
			if err != nil {
				return errors.Wrap(errors.ErrCodeRender, err, "failed to load face for class %d", int(seg.Class))
			}
			dc.SetFontFace(face)
			dc.DrawString(seg.Text, (left+seg.X)*os, baseline)
		}
	}
	return nil
}

// drawOverlay draws one overlay object, rotated about its center and
// blended at its opacity.
func (r *Renderer) drawOverlay(dc *gg.Context, o overlay.Object, os float64) error {
	g := o.Geometry()
	opacity := o.Opacity
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	if opacity == 0 {
		return nil
	}

	center := g.Center()
	dc.Push()
	defer dc.Pop()
	if g.Rotation != 0 {
		dc.RotateAbout(gg.Radians(g.Rotation), center.X*os, center.Y*os)
	}

	switch o.Kind {
	case overlay.KindImage:
		return r.drawImageOverlay(dc, o, g, opacity, os)
	case overlay.KindTextBox:
		return r.drawTextBoxOverlay(dc, o, g, opacity, os)
	}
	return errors.New(errors.ErrCodeRender, "unknown overlay kind %q", o.Kind)
}

// drawImageOverlay stretches the source image to the object's geometry.
func (r *Renderer) drawImageOverlay(dc *gg.Context, o overlay.Object, g geom.Geometry, opacity, os float64) error {
	if r.Loader == nil {
		return errors.New(errors.ErrCodeRender, "no image loader configured for overlay %s", o.ID)
	}
	pxW := int(math.Round(g.Width * os))
	pxH := int(math.Round(g.Height * os))
	img, err := r.Loader.Sized(o.Source, pxW, pxH)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "failed to load overlay image %s", o.ID)
	}
	if opacity < 1 {
		img = withOpacity(img, opacity)
	}
	dc.DrawImage(img, int(math.Round(g.X*os)), int(math.Round(g.Y*os)))
	return nil
}

// drawTextBoxOverlay wraps the text box content inside its geometry.
func (r *Renderer) drawTextBoxOverlay(dc *gg.Context, o overlay.Object, g geom.Geometry, opacity, os float64) error {
	face, err := r.Fonts.Face(font.ClassRegular, textBoxFontSize*os)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "failed to load text box face")
	}
	dc.SetFontFace(face)
	dc.SetRGBA(0, 0, 0, opacity)
	dc.DrawStringWrapped(
		o.Text,
		(g.X+textBoxPadding)*os,
		(g.Y+textBoxPadding)*os,
		0, 0,
		(g.Width-2*textBoxPadding)*os,
		1.4,
		gg.AlignLeft,
	)
	return nil
}

// withOpacity returns a copy of the image with its alpha scaled.
func withOpacity(img image.Image, opacity float64) image.Image {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
	draw.DrawMask(out, bounds, img, bounds.Min, mask, image.Point{}, draw.Over)
	return out
}
