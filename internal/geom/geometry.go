// Package geom provides the shared position/size/rotation record for overlay
// objects and the pure functions that transform it.
//
// All functions are deterministic and free of side effects. Angles are in
// degrees; any real value is accepted and interpreted mod 360. Dimensions are
// clamped to MinSize at every step so callers never observe invalid geometry,
// not even as transient live-feedback values.
package geom

import "math"

// MinSize is the floor for overlay object width and height, in page units.
// It is enforced at every intermediate transform step, never only at commit.
const MinSize = 30.0

// Point is a position in page or screen space.
type Point struct {
	X float64
	Y float64
}

// Geometry describes the placement of an overlay object on a page.
type Geometry struct {
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Rotation float64 // degrees, interpreted mod 360
}

// Center returns the center point of the geometry's rectangle.
func (g Geometry) Center() Point {
	return Point{X: g.X + g.Width/2, Y: g.Y + g.Height/2}
}

// AspectRatio returns width divided by height.
func (g Geometry) AspectRatio() float64 {
	if g.Height == 0 {
		return 1
	}
	return g.Width / g.Height
}

// Contains reports whether the point lies inside the geometry's unrotated
// bounding rectangle.
func (g Geometry) Contains(p Point) bool {
	return p.X >= g.X && p.X <= g.X+g.Width && p.Y >= g.Y && p.Y <= g.Y+g.Height
}

// Handle identifies which resize or rotate affordance a pointer grabbed.
type Handle string

// Resize handle identifiers. Corner handles honor aspect lock; edge handles
// resize a single dimension.
const (
	HandleTopLeft     Handle = "top-left"
	HandleTop         Handle = "top"
	HandleTopRight    Handle = "top-right"
	HandleRight       Handle = "right"
	HandleBottomRight Handle = "bottom-right"
	HandleBottom      Handle = "bottom"
	HandleBottomLeft  Handle = "bottom-left"
	HandleLeft        Handle = "left"
)

// IsCorner reports whether the handle is one of the four corners.
func (h Handle) IsCorner() bool {
	switch h {
	case HandleTopLeft, HandleTopRight, HandleBottomLeft, HandleBottomRight:
		return true
	}
	return false
}

// hasLeft reports whether the handle includes the left edge.
func (h Handle) hasLeft() bool {
	return h == HandleLeft || h == HandleTopLeft || h == HandleBottomLeft
}

// hasTop reports whether the handle includes the top edge.
func (h Handle) hasTop() bool {
	return h == HandleTop || h == HandleTopLeft || h == HandleTopRight
}

// Angle returns the angle in degrees of p relative to center, via atan2.
// Zero points along the positive X axis; positive angles go toward positive Y.
func Angle(center, p Point) float64 {
	return math.Atan2(p.Y-center.Y, p.X-center.X) * 180 / math.Pi
}

// RotateDelta returns the angular difference in degrees swept by a pointer
// moving from one position to another around a fixed center.
//
// The raw atan2 difference is returned without unwrapping, so a pointer path
// crossing the ±180° boundary produces a delta that jumps by 360. Committed
// rotations are interpreted mod 360, which makes the jump invisible in the
// final value; live feedback can briefly show the discontinuity.
func RotateDelta(center, from, to Point) float64 {
	return Angle(center, to) - Angle(center, from)
}

// NormalizeDeg maps an angle in degrees into [0, 360).
func NormalizeDeg(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// Translate returns the geometry moved by (dx, dy) from its start position.
func Translate(start Geometry, dx, dy float64) Geometry {
	out := start
	out.X = start.X + dx
	out.Y = start.Y + dy
	return out
}

// ClampSize forces a dimension onto the valid range. NaN and sub-minimum
// values both collapse to MinSize.
func ClampSize(v float64) float64 {
	if math.IsNaN(v) || v < MinSize {
		return MinSize
	}
	return v
}

// ResizeFromHandle returns the geometry resulting from dragging the given
// handle by (dx, dy) from the start geometry.
//
// Corner handles with lockAspect keep width/height at the start ratio: the
// width delta follows the horizontal pointer movement (negated for left-side
// handles) and the height follows from the ratio. Corner handles without the
// lock resize both dimensions independently. Edge handles resize only their
// own dimension regardless of lockAspect. Handles on the left or top side
// shift the origin so the opposite edge stays put.
func ResizeFromHandle(start Geometry, h Handle, dx, dy float64, lockAspect bool) Geometry {
	out := start

	switch {
	case h.IsCorner() && lockAspect:
		widthDelta := dx
		if h.hasLeft() {
			widthDelta = -dx
		}
		ratio := start.AspectRatio()
		newW := ClampSize(start.Width + widthDelta)
		newH := newW / ratio
		if newH < MinSize || math.IsNaN(newH) {
			newH = MinSize
			newW = ClampSize(newH * ratio)
		}
		out.Width = newW
		out.Height = newH

	case h.IsCorner():
		widthDelta := dx
		if h.hasLeft() {
			widthDelta = -dx
		}
		heightDelta := dy
		if h.hasTop() {
			heightDelta = -dy
		}
		out.Width = ClampSize(start.Width + widthDelta)
		out.Height = ClampSize(start.Height + heightDelta)

	case h == HandleLeft:
		out.Width = ClampSize(start.Width - dx)
	case h == HandleRight:
		out.Width = ClampSize(start.Width + dx)
	case h == HandleTop:
		out.Height = ClampSize(start.Height - dy)
	case h == HandleBottom:
		out.Height = ClampSize(start.Height + dy)
	}

	if h.hasLeft() {
		out.X = start.X + (start.Width - out.Width)
	}
	if h.hasTop() {
		out.Y = start.Y + (start.Height - out.Height)
	}
	return out
}
