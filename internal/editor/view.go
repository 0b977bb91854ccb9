package editor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/paperlay/paperlay/internal/geom"
	"github.com/paperlay/paperlay/internal/overlay"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - selection and headings
	colorBlue   = lipgloss.Color("75")  // Light blue - overlay boxes
	colorYellow = lipgloss.Color("220") // Amber - handles
	colorWhite  = lipgloss.Color("255") // Bright white - labels
	colorGray   = lipgloss.Color("245") // Gray - status text
	colorDim    = lipgloss.Color("240") // Dim gray - bands and help
)

var (
	styleTitle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim      = lipgloss.NewStyle().Foreground(colorDim)
	styleStatus   = lipgloss.NewStyle().Foreground(colorGray)
	styleBand     = lipgloss.NewStyle().Foreground(colorDim)
	styleObject   = lipgloss.NewStyle().Foreground(colorBlue)
	styleSelected = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleHandle   = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	styleLabel    = lipgloss.NewStyle().Foreground(colorWhite)

	stylePageBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim)
)

// =============================================================================
// Cell grid
// =============================================================================

type cellStyle uint8

const (
	cellBlank cellStyle = iota
	cellBand
	cellObject
	cellSelected
	cellHandle
	cellLabel
)

func styleFor(s cellStyle) lipgloss.Style {
	switch s {
	case cellBand:
		return styleBand
	case cellObject:
		return styleObject
	case cellSelected:
		return styleSelected
	case cellHandle:
		return styleHandle
	case cellLabel:
		return styleLabel
	}
	return lipgloss.NewStyle()
}

// grid is the character buffer the page is painted into.
type grid struct {
	cols, rows int
	cells      [][]rune
	styles     [][]cellStyle
}

func newGrid(cols, rows int) *grid {
	g := &grid{cols: cols, rows: rows}
	g.cells = make([][]rune, rows)
	g.styles = make([][]cellStyle, rows)
	for y := 0; y < rows; y++ {
		g.cells[y] = make([]rune, cols)
		g.styles[y] = make([]cellStyle, cols)
		for x := 0; x < cols; x++ {
			g.cells[y][x] = ' '
		}
	}
	return g
}

func (g *grid) set(x, y int, r rune, s cellStyle) {
	if x < 0 || x >= g.cols || y < 0 || y >= g.rows {
		return
	}
	g.cells[y][x] = r
	g.styles[y][x] = s
}

// fill paints the half-open cell rectangle [x0,x1) x [y0,y1).
func (g *grid) fill(x0, y0, x1, y1 int, r rune, s cellStyle) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			g.set(x, y, r, s)
		}
	}
}

// label writes text starting at a cell, clipped to the row.
func (g *grid) label(x, y int, text string, s cellStyle) {
	for i, r := range text {
		if x+i >= g.cols {
			return
		}
		g.set(x+i, y, r, s)
	}
}

// render joins the grid into styled terminal rows.
func (g *grid) render() string {
	var b strings.Builder
	for y := 0; y < g.rows; y++ {
		start := 0
		for x := 1; x <= g.cols; x++ {
			if x == g.cols || g.styles[y][x] != g.styles[y][start] {
				b.WriteString(styleFor(g.styles[y][start]).Render(string(g.cells[y][start:x])))
				start = x
			}
		}
		if y < g.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// =============================================================================
// View
// =============================================================================

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(stylePageBorder.Render(m.pageView()))
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(helpView())
	return b.String()
}

func (m Model) headerView() string {
	title := m.doc.Title
	if title == "" {
		title = "untitled"
	}
	dirty := ""
	if m.dirty {
		dirty = " *"
	}
	page := fmt.Sprintf("  page %d/%d  %d object(s)", m.page+1, len(m.doc.Pages), len(m.store.ForPage(m.page)))
	return styleTitle.Render(title+dirty) + styleDim.Render(page)
}

// pageView paints the current page: content bands first, then overlay
// objects in z-order, then the selection's handles on top.
func (m Model) pageView() string {
	g := newGrid(m.canvas.cols, m.canvas.rows)

	if m.page < len(m.doc.Pages) {
		for _, band := range m.doc.Pages[m.page].Blocks {
			y0 := m.canvas.row(band.Y)
			y1 := m.canvas.row(band.Y + band.Height)
			if y1 <= y0 {
				y1 = y0 + 1
			}
			g.fill(0, y0, m.canvas.cols, y1, '░', cellBand)
		}
	}

	for _, o := range m.store.ForPage(m.page) {
		m.paintObject(g, o)
	}

	if o, ok := m.selectedObject(); ok {
		m.paintHandles(g, m.liveGeometry(o))
	}

	return g.render()
}

// paintObject draws one overlay box with its label.
func (m Model) paintObject(g *grid, o overlay.Object) {
	geo := m.liveGeometry(o)
	sel := m.hasSel && o.ID == m.selected

	x0, y0 := m.canvas.col(geo.X), m.canvas.row(geo.Y)
	x1, y1 := m.canvas.col(geo.X+geo.Width), m.canvas.row(geo.Y+geo.Height)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}

	body, style := '▒', cellObject
	if sel {
		body, style = '▓', cellSelected
	}
	g.fill(x0, y0, x1, y1, body, style)

	label := o.Text
	if o.Kind == overlay.KindImage {
		label = "[" + filepath.Base(o.Source) + "]"
	}
	if geo.Rotation != 0 {
		label = fmt.Sprintf("%s %+.0f", label, geom.NormalizeDeg(geo.Rotation))
	}
	if x1-x0 > 2 {
		if n := x1 - x0 - 2; len(label) > n {
			label = label[:n]
		}
		g.label(x0+1, y0+(y1-y0)/2, label, cellLabel)
	}
}

// paintHandles draws the resize handles and the rotate affordance for the
// selected object.
func (m Model) paintHandles(g *grid, geo geom.Geometry) {
	for _, h := range handleOrder {
		p := handlePoint(geo, h)
		r := '□'
		if h.IsCorner() {
			r = '■'
		}
		g.set(m.canvas.col(p.X), m.canvas.row(p.Y), r, cellHandle)
	}
	rp := rotatePoint(geo)
	g.set(m.canvas.col(rp.X), m.canvas.row(rp.Y), '◉', cellHandle)
}

// liveGeometry substitutes the in-flight candidate geometry while the
// object is mid-transform.
func (m Model) liveGeometry(o overlay.Object) geom.Geometry {
	if id, active := m.ctrl.Active(); active && id == o.ID {
		if g, ok := m.ctrl.Candidate(); ok {
			return g
		}
	}
	return o.Geometry()
}

func (m Model) statusView() string {
	if m.status != "" {
		return styleStatus.Render(m.status)
	}
	if o, ok := m.selectedObject(); ok {
		return styleStatus.Render(describeObject(o))
	}
	return styleDim.Render("click an object to select it")
}

func helpView() string {
	return styleDim.Render("drag move · ■ resize · ◉ rotate · tab cycle · arrows nudge · r/R rotate · +/- opacity · t text · x delete · n/p page · s save · q quit")
}
