// Package style maps block kinds to the fixed presentation constants shared
// by the measurer and the renderer. Both sides must consult the same table:
// measuring with one set of metrics and rendering with another would
// invalidate every pagination decision made in between.
package style

import "github.com/paperlay/paperlay/internal/content"

// RuleThickness is the stroke width of a horizontal rule, in points.
const RuleThickness = 1.0

// BlockStyle carries the presentation constants for one block kind.
type BlockStyle struct {
	FontSize    float64 // points
	LineHeight  float64 // multiple of FontSize
	SpaceBefore float64 // points above the block
	SpaceAfter  float64 // points below the block
	Indent      float64 // left inset within the content width
	Bold        bool
	Italic      bool
	Mono        bool
}

// LineAdvance returns the vertical distance between line tops, in points.
func (s BlockStyle) LineAdvance() float64 {
	return s.FontSize * s.LineHeight
}

// ForBlock returns the style for a block, keyed on its kind and heading level.
func ForBlock(b content.Block) BlockStyle {
	switch b.Kind {
	case content.KindHeading:
		switch b.Level {
		case 1:
			return BlockStyle{FontSize: 24, LineHeight: 1.25, SpaceBefore: 18, SpaceAfter: 10, Bold: true}
		case 2:
			return BlockStyle{FontSize: 20, LineHeight: 1.25, SpaceBefore: 16, SpaceAfter: 8, Bold: true}
		case 3:
			return BlockStyle{FontSize: 16, LineHeight: 1.3, SpaceBefore: 14, SpaceAfter: 6, Bold: true}
		default:
			return BlockStyle{FontSize: 14, LineHeight: 1.3, SpaceBefore: 12, SpaceAfter: 6, Bold: true}
		}
	case content.KindListItem:
		return BlockStyle{FontSize: 12, LineHeight: 1.45, SpaceAfter: 4, Indent: 18}
	case content.KindQuote:
		return BlockStyle{FontSize: 12, LineHeight: 1.5, SpaceBefore: 8, SpaceAfter: 8, Indent: 24, Italic: true}
	case content.KindPre:
		return BlockStyle{FontSize: 10.5, LineHeight: 1.4, SpaceBefore: 8, SpaceAfter: 8, Mono: true}
	case content.KindRule:
		return BlockStyle{SpaceBefore: 12, SpaceAfter: 12}
	default:
		return BlockStyle{FontSize: 12, LineHeight: 1.45, SpaceAfter: 8}
	}
}
