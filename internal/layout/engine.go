// Package layout flows block content into positioned lines at a fixed width.
//
// The same engine serves the measurer and the renderer: measuring runs the
// full line-breaking pass and reports the resulting height, rendering walks
// the identical line list to draw it. Heights therefore always agree with
// what gets drawn.
package layout

import (
	"fmt"
	"strings"

	"github.com/paperlay/paperlay/internal/content"
	"github.com/paperlay/paperlay/internal/font"
	"github.com/paperlay/paperlay/internal/style"
)

// markerGap is the space between a list marker and the item text, in points.
const markerGap = 4.0

// Segment is a horizontal run of uniformly styled text on one line.
type Segment struct {
	Text  string
	Class font.Class
	X     float64 // offset from the content-box left edge
	Width float64
}

// Line is one laid-out line of a block.
type Line struct {
	Segments []Segment
	Top      float64 // offset from the block's content top
	Height   float64
	Baseline float64 // offset from line top to the text baseline
	Width    float64
}

// BlockLayout is the fully measured and positioned form of one block.
type BlockLayout struct {
	Block         content.Block
	Style         style.BlockStyle
	Lines         []Line
	Marker        string  // list bullet or ordinal prefix, empty otherwise
	MarkerX       float64 // x of the marker within the content box
	ContentHeight float64 // line stack height, excluding block spacing
	Height        float64 // SpaceBefore + ContentHeight + SpaceAfter
}

// Engine lays out blocks using a shared font bank.
type Engine struct {
	fonts *font.Bank
}

// NewEngine creates a layout engine backed by the given font bank.
func NewEngine(fonts *font.Bank) *Engine {
	return &Engine{fonts: fonts}
}

// token is one unbreakable word with its face and measured width.
type token struct {
	text  string
	class font.Class
	width float64
}

// LayoutBlock flows the block's runs into lines no wider than width.
// A single word wider than the available width is placed alone on its line
// and allowed to overflow.
func (e *Engine) LayoutBlock(b content.Block, width float64) (*BlockLayout, error) {
	st := style.ForBlock(b)
	out := &BlockLayout{Block: b, Style: st}

	switch b.Kind {
	case content.KindRule:
		out.ContentHeight = style.RuleThickness
	case content.KindPre:
		if err := e.layoutPre(b, st, out); err != nil {
			return nil, err
		}
	default:
		if err := e.layoutFlow(b, st, width, out); err != nil {
			return nil, err
		}
	}

	out.Height = st.SpaceBefore + out.ContentHeight + st.SpaceAfter
	return out, nil
}

// layoutPre emits one line per newline-separated source line, unwrapped.
func (e *Engine) layoutPre(b content.Block, st style.BlockStyle, out *BlockLayout) error {
	class := font.ClassFor(st.Bold, st.Italic, true)
	ascent, descent, err := e.fonts.Metrics(class, st.FontSize)
	if err != nil {
		return err
	}
	advance := st.LineAdvance()
	baseline := lineBaseline(advance, ascent, descent)

	top := 0.0
	for _, raw := range strings.Split(b.Text(), "\n") {
		w, err := e.fonts.MeasureString(class, st.FontSize, raw)
		if err != nil {
			return err
		}
		out.Lines = append(out.Lines, Line{
			Segments: []Segment{{Text: raw, Class: class, X: st.Indent, Width: w}},
			Top:      top,
			Height:   advance,
			Baseline: baseline,
			Width:    w,
		})
		top += advance
	}
	out.ContentHeight = top
	return nil
}

// layoutFlow wraps the block's word tokens greedily into lines.
func (e *Engine) layoutFlow(b content.Block, st style.BlockStyle, width float64, out *BlockLayout) error {
	tokens, err := e.tokenize(b, st)
	if err != nil {
		return err
	}
	if err := e.layoutMarker(b, st, out); err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	avail := width - st.Indent
	advance := st.LineAdvance()

	var line []token
	lineWidth := 0.0
	top := 0.0

	emitLine := func() error {
		if len(line) == 0 {
			return nil
		}
		built, err := e.buildLine(line, st, advance)
		if err != nil {
			return err
		}
		built.Top = top
		out.Lines = append(out.Lines, built)
		top += advance
		line = line[:0]
		lineWidth = 0
		return nil
	}

	for _, tk := range tokens {
		sep := 0.0
		if len(line) > 0 {
			sep, err = e.fonts.MeasureString(tk.class, st.FontSize, " ")
			if err != nil {
				return err
			}
		}
		if lineWidth+sep+tk.width > avail && len(line) > 0 {
			if err := emitLine(); err != nil {
				return err
			}
			sep = 0
		}
		line = append(line, tk)
		lineWidth += sep + tk.width
	}
	if err := emitLine(); err != nil {
		return err
	}

	out.ContentHeight = top
	return nil
}

// tokenize splits the block's runs into word tokens with measured widths.
func (e *Engine) tokenize(b content.Block, st style.BlockStyle) ([]token, error) {
	var tokens []token
	for _, run := range b.Runs {
		class := font.ClassFor(run.Bold || st.Bold, run.Italic || st.Italic, st.Mono)
		for _, word := range strings.Fields(run.Text) {
			w, err := e.fonts.MeasureString(class, st.FontSize, word)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{text: word, class: class, width: w})
		}
	}
	return tokens, nil
}

// layoutMarker prepares the list bullet or ordinal prefix for list items.
func (e *Engine) layoutMarker(b content.Block, st style.BlockStyle, out *BlockLayout) error {
	if b.Kind != content.KindListItem {
		return nil
	}
	if b.Ordinal > 0 {
		out.Marker = fmt.Sprintf("%d.", b.Ordinal)
	} else {
		out.Marker = "•"
	}
	w, err := e.fonts.MeasureString(font.ClassRegular, st.FontSize, out.Marker)
	if err != nil {
		return err
	}
	out.MarkerX = st.Indent - w - markerGap
	if out.MarkerX < 0 {
		out.MarkerX = 0
	}
	return nil
}

// buildLine positions the accumulated tokens, merging same-class neighbors
// into segments separated by single spaces.
func (e *Engine) buildLine(tokens []token, st style.BlockStyle, advance float64) (Line, error) {
	maxAscent := 0.0
	maxDescent := 0.0
	for _, tk := range tokens {
		ascent, descent, err := e.fonts.Metrics(tk.class, st.FontSize)
		if err != nil {
			return Line{}, err
		}
		if ascent > maxAscent {
			maxAscent = ascent
		}
		if descent > maxDescent {
			maxDescent = descent
		}
	}

	line := Line{
		Height:   advance,
		Baseline: lineBaseline(advance, maxAscent, maxDescent),
	}

	x := st.Indent
	i := 0
	for i < len(tokens) {
		j := i
		for j < len(tokens) && tokens[j].class == tokens[i].class {
			j++
		}
		parts := make([]string, 0, j-i)
		for _, tk := range tokens[i:j] {
			parts = append(parts, tk.text)
		}
		text := strings.Join(parts, " ")
		w, err := e.fonts.MeasureString(tokens[i].class, st.FontSize, text)
		if err != nil {
			return Line{}, err
		}
		line.Segments = append(line.Segments, Segment{
			Text:  text,
			Class: tokens[i].class,
			X:     x,
			Width: w,
		})
		x += w
		if j < len(tokens) {
			sep, err := e.fonts.MeasureString(tokens[j].class, st.FontSize, " ")
			if err != nil {
				return Line{}, err
			}
			x += sep
		}
		i = j
	}
	line.Width = x - st.Indent
	return line, nil
}

// lineBaseline centers the glyph box inside the line advance, splitting any
// leading evenly above and below.
func lineBaseline(advance, ascent, descent float64) float64 {
	leading := advance - (ascent + descent)
	if leading < 0 {
		leading = 0
	}
	return leading/2 + ascent
}
