package raster

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/paperlay/paperlay/internal/content"
	"github.com/paperlay/paperlay/internal/font"
	"github.com/paperlay/paperlay/internal/geom"
	"github.com/paperlay/paperlay/internal/overlay"
	"github.com/paperlay/paperlay/internal/res"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	bank, err := font.NewBank()
	if err != nil {
		t.Fatalf("failed to build font bank: %v", err)
	}
	return NewRenderer(bank, res.NewLoader(t.TempDir()))
}

// pngDataURL encodes a solid-color square as a data URL the loader accepts.
func pngDataURL(t *testing.T, c color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func rgbAt(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func isWhite(img image.Image, x, y int) bool {
	r, g, b := rgbAt(img, x, y)
	return r > 250 && g > 250 && b > 250
}

func TestRenderPagePixelDimensions(t *testing.T) {
	r := newTestRenderer(t)
	img, err := r.RenderPage(Page{Index: 0})
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	wantW := int(math.Round(r.PageWidth * r.Oversample))
	wantH := int(math.Round(r.PageHeight * r.Oversample))
	got := img.Bounds().Size()
	if got.X != wantW || got.Y != wantH {
		t.Fatalf("rendered %dx%d, want %dx%d", got.X, got.Y, wantW, wantH)
	}
}

func TestEmptyPageIsWhite(t *testing.T) {
	r := newTestRenderer(t)
	img, err := r.RenderPage(Page{Index: 0})
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	for _, p := range []image.Point{{0, 0}, {500, 500}, {1000, 1200}} {
		if !isWhite(img, p.X, p.Y) {
			t.Errorf("pixel %v is not white on an empty page", p)
		}
	}
}

func TestParagraphProducesInk(t *testing.T) {
	r := newTestRenderer(t)
	page := Page{
		Blocks: []content.Block{{
			Index: 0,
			Kind:  content.KindParagraph,
			Runs:  []content.Run{{Text: "Hello from the flowed layer"}},
		}},
	}
	img, err := r.RenderPage(page)
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	// First line sits just below the top margin; scan that band for glyphs.
	x0 := int(r.MarginLeft * r.Oversample)
	y0 := int(r.MarginTop * r.Oversample)
	found := false
	for y := y0; y < y0+80 && !found; y++ {
		for x := x0; x < x0+600; x++ {
			if !isWhite(img, x, y) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatal("no ink found in the first line band")
	}
}

func TestImageOverlayDrawsAtGeometry(t *testing.T) {
	r := newTestRenderer(t)
	src := pngDataURL(t, color.NRGBA{R: 255, A: 255})
	obj := overlay.NewImage(src, 0, geom.Geometry{X: 100, Y: 100, Width: 60, Height: 40})
	img, err := r.RenderPage(Page{Overlays: []overlay.Object{*obj}})
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	cr, _, cb := rgbAt(img, 260, 240) // object center in device pixels
	if cr < 200 || cb > 80 {
		t.Fatalf("center pixel (%d,_,%d) is not red", cr, cb)
	}
	if !isWhite(img, 150, 150) {
		t.Fatal("pixel outside the object is not white")
	}
}

func TestOverlayZOrderLaterCoversEarlier(t *testing.T) {
	r := newTestRenderer(t)
	g := geom.Geometry{X: 100, Y: 100, Width: 60, Height: 40}
	red := overlay.NewImage(pngDataURL(t, color.NRGBA{R: 255, A: 255}), 0, g)
	blue := overlay.NewImage(pngDataURL(t, color.NRGBA{B: 255, A: 255}), 0, g)
	img, err := r.RenderPage(Page{Overlays: []overlay.Object{*red, *blue}})
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	cr, _, cb := rgbAt(img, 260, 240)
	if cb < 200 || cr > 80 {
		t.Fatalf("center pixel (%d,_,%d) should show the later blue object", cr, cb)
	}
}

func TestZeroOpacityOverlayIsInvisible(t *testing.T) {
	r := newTestRenderer(t)
	obj := overlay.NewImage(pngDataURL(t, color.NRGBA{R: 255, A: 255}), 0,
		geom.Geometry{X: 100, Y: 100, Width: 60, Height: 40})
	obj.Opacity = 0
	img, err := r.RenderPage(Page{Overlays: []overlay.Object{*obj}})
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	if !isWhite(img, 260, 240) {
		t.Fatal("zero-opacity object left ink on the page")
	}
}

func TestHalfOpacityBlendsWithBackground(t *testing.T) {
	r := newTestRenderer(t)
	obj := overlay.NewImage(pngDataURL(t, color.NRGBA{R: 255, A: 255}), 0,
		geom.Geometry{X: 100, Y: 100, Width: 60, Height: 40})
	obj.Opacity = 0.5
	img, err := r.RenderPage(Page{Overlays: []overlay.Object{*obj}})
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	cr, cg, _ := rgbAt(img, 260, 240)
	if cr < 200 {
		t.Fatalf("red channel %d too low for a half-opacity red square", cr)
	}
	if cg < 80 || cg > 180 {
		t.Fatalf("green channel %d outside the expected blend range", cg)
	}
}

func TestRotatedOverlayStillCoversItsCenter(t *testing.T) {
	r := newTestRenderer(t)
	obj := overlay.NewImage(pngDataURL(t, color.NRGBA{R: 255, A: 255}), 0,
		geom.Geometry{X: 100, Y: 100, Width: 60, Height: 40, Rotation: 90})
	img, err := r.RenderPage(Page{Overlays: []overlay.Object{*obj}})
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	cr, _, cb := rgbAt(img, 260, 240)
	if cr < 180 || cb > 100 {
		t.Fatalf("rotation about the center moved the center pixel (%d,_,%d)", cr, cb)
	}
	// A quarter turn of a 60x40 box vacates its former left edge.
	if !isWhite(img, int(102*r.Oversample), 240) {
		t.Error("former left edge still covered after a quarter turn")
	}
}

func TestTextBoxOverlayProducesInk(t *testing.T) {
	r := newTestRenderer(t)
	obj := overlay.NewTextBox("Marginal note", 0, geom.Geometry{X: 200, Y: 300, Width: 160, Height: 60})
	img, err := r.RenderPage(Page{Overlays: []overlay.Object{*obj}})
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	found := false
	for y := 600; y < 720 && !found; y++ {
		for x := 400; x < 720; x++ {
			if !isWhite(img, x, y) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatal("text box produced no ink inside its geometry")
	}
}

func TestImageOverlayWithoutLoaderFails(t *testing.T) {
	bank, err := font.NewBank()
	if err != nil {
		t.Fatalf("failed to build font bank: %v", err)
	}
	r := NewRenderer(bank, nil)
	obj := overlay.NewImage("missing.png", 0, geom.Geometry{X: 0, Y: 0, Width: 40, Height: 40})
	if _, err := r.RenderPage(Page{Overlays: []overlay.Object{*obj}}); err == nil {
		t.Fatal("expected an error when no loader is configured")
	}
}
