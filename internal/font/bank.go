// Package font owns the embedded typefaces and the face cache shared by the
// measurer and the renderer. Sharing one bank keeps measured widths and
// rendered widths identical, which the paginator depends on.
package font

import (
	"sync"

	"github.com/paperlay/paperlay/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Class selects one of the bank's typefaces.
type Class int

const (
	ClassRegular Class = iota
	ClassBold
	ClassItalic
	ClassBoldItalic
	ClassMono
)

// ClassFor maps style flags to a typeface class. Mono wins over weight and
// slant since the preformatted face has no bold or italic variants here.
func ClassFor(bold, italic, mono bool) Class {
	switch {
	case mono:
		return ClassMono
	case bold && italic:
		return ClassBoldItalic
	case bold:
		return ClassBold
	case italic:
		return ClassItalic
	default:
		return ClassRegular
	}
}

// faceKey identifies a sized face in the cache. Sizes are keyed in
// hundredths of a point to keep float64 values out of map keys.
type faceKey struct {
	class     Class
	centisize int
}

// Bank parses the embedded fonts once and hands out cached faces.
//
// Face construction and measurement share one mutex: faces reuse an internal
// rasterization buffer and must not be used concurrently.
type Bank struct {
	mu    sync.Mutex
	fonts map[Class]*opentype.Font
	faces map[faceKey]font.Face
}

// NewBank parses all embedded typefaces and returns a ready bank.
func NewBank() (*Bank, error) {
	sources := []struct {
		class Class
		ttf   []byte
	}{
		{ClassRegular, goregular.TTF},
		{ClassBold, gobold.TTF},
		{ClassItalic, goitalic.TTF},
		{ClassBoldItalic, gobolditalic.TTF},
		{ClassMono, gomono.TTF},
	}

	b := &Bank{
		fonts: make(map[Class]*opentype.Font, len(sources)),
		faces: make(map[faceKey]font.Face),
	}
	for _, src := range sources {
		f, err := opentype.Parse(src.ttf)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to parse embedded font %d", int(src.class))
		}
		b.fonts[src.class] = f
	}
	return b, nil
}

// Face returns a cached face for the class at the given size in points.
// Faces are sized at 72 DPI so one point equals one pixel.
func (b *Bank) Face(c Class, size float64) (font.Face, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.faceLocked(c, size)
}

// faceLocked returns or creates the cached face. Callers hold b.mu.
func (b *Bank) faceLocked(c Class, size float64) (font.Face, error) {
	key := faceKey{class: c, centisize: int(size*100 + 0.5)}
	if face, ok := b.faces[key]; ok {
		return face, nil
	}

	f, ok := b.fonts[c]
	if !ok {
		return nil, errors.New(errors.ErrCodeInternal, "unknown font class %d", int(c))
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to create face for class %d at %.2fpt", int(c), size)
	}
	b.faces[key] = face
	return face, nil
}

// MeasureString returns the advance width of s in points.
func (b *Bank) MeasureString(c Class, size float64, s string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	face, err := b.faceLocked(c, size)
	if err != nil {
		return 0, err
	}
	return fixedToFloat(font.MeasureString(face, s)), nil
}

// Metrics returns the ascent and descent of the class at the given size,
// in points.
func (b *Bank) Metrics(c Class, size float64) (ascent, descent float64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	face, err := b.faceLocked(c, size)
	if err != nil {
		return 0, 0, err
	}
	m := face.Metrics()
	return fixedToFloat(m.Ascent), fixedToFloat(m.Descent), nil
}

// fixedToFloat converts a 26.6 fixed-point value to float64.
func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
