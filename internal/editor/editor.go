// Package editor is a terminal canvas for placing and transforming overlay
// objects on a document's pages.
//
// The editor shows one page at a time. Flowed content appears as shaded
// bands; overlay objects are drawn as boxes that can be dragged, resized via
// their corner and edge handles, and rotated via the affordance above the
// box. Geometry changes are committed to the overlay store on pointer-up and
// persisted to the sidecar file on save.
package editor

import (
	"context"
	"fmt"
	"math"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/paperlay/paperlay/internal/geom"
	"github.com/paperlay/paperlay/internal/overlay"
	"github.com/paperlay/paperlay/internal/transform"
)

// rotateHandleOffset is how far above the box top the rotate affordance
// sits, in page points.
const rotateHandleOffset = 24.0

// Band is the vertical extent of one flowed block on a page.
type Band struct {
	Y      float64
	Height float64
}

// Page holds the block silhouettes of one flowed page.
type Page struct {
	Blocks []Band
}

// Document is the flowed page structure the editor annotates.
type Document struct {
	Title      string
	PageWidth  float64
	PageHeight float64
	Pages      []Page
}

// Model is the bubbletea model for the overlay editor.
type Model struct {
	doc      Document
	store    *overlay.Store
	ctrl     *transform.Controller
	savePath string

	page     int
	selected uuid.UUID
	hasSel   bool

	width, height int
	canvas        canvas

	status string
	dirty  bool

	commitErr *error
}

// New creates an editor over a document's pages and overlay objects.
// Geometry commits go straight to the store; quitting with "q" or pressing
// "s" persists the store to the sidecar at savePath.
func New(doc Document, store *overlay.Store, savePath string, lockAspect bool) Model {
	if len(doc.Pages) == 0 {
		doc.Pages = []Page{{}}
	}

	commitErr := new(error)
	ctrl := transform.NewController(func(id uuid.UUID, g geom.Geometry) {
		if err := store.ApplyGeometry(id, g); err != nil {
			*commitErr = err
		}
	})
	ctrl.SetLockAspect(lockAspect)

	m := Model{
		doc:       doc,
		store:     store,
		ctrl:      ctrl,
		savePath:  savePath,
		commitErr: commitErr,
		width:     80,
		height:    24,
	}
	m.canvas = fitCanvas(doc.PageWidth, doc.PageHeight, m.width, m.height)
	return m
}

// Dirty reports whether the store has changes not yet saved to the sidecar.
func (m Model) Dirty() bool {
	return m.dirty
}

// Run starts the editor in the terminal and blocks until it exits.
func Run(ctx context.Context, m Model) (Model, error) {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	out, err := p.Run()
	if err != nil {
		return m, err
	}
	if final, ok := out.(Model); ok {
		return final, nil
	}
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.canvas = fitCanvas(m.doc.PageWidth, m.doc.PageHeight, msg.Width, msg.Height)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg), nil
	}
	return m, nil
}

// =============================================================================
// Keyboard
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q":
		m = m.finishSession()
		if m.dirty {
			m = m.save()
			if m.dirty {
				return m, nil
			}
		}
		return m, tea.Quit
	case "s":
		m = m.finishSession()
		return m.save(), nil
	case "esc":
		m = m.finishSession()
		m.hasSel = false
		m.status = ""
	case "tab":
		m = m.cycleSelection()
	case "n", "pgdown":
		m = m.gotoPage(m.page + 1)
	case "p", "pgup":
		m = m.gotoPage(m.page - 1)
	case "left":
		m = m.nudge(-1, 0)
	case "right":
		m = m.nudge(1, 0)
	case "up":
		m = m.nudge(0, -1)
	case "down":
		m = m.nudge(0, 1)
	case "shift+left":
		m = m.nudge(-10, 0)
	case "shift+right":
		m = m.nudge(10, 0)
	case "shift+up":
		m = m.nudge(0, -10)
	case "shift+down":
		m = m.nudge(0, 10)
	case "r":
		m = m.rotateBy(15)
	case "R":
		m = m.rotateBy(-15)
	case "+", "=":
		m = m.adjustOpacity(0.1)
	case "-":
		m = m.adjustOpacity(-0.1)
	case "t":
		m = m.addTextBox()
	case "x", "delete", "backspace":
		m = m.deleteSelected()
	}
	return m, nil
}

// finishSession force-commits any in-flight transform.
func (m Model) finishSession() Model {
	if _, active := m.ctrl.Active(); active {
		m.ctrl.ForceCommit()
		m.dirty = true
	}
	return m.drainCommitErr()
}

func (m Model) save() Model {
	if err := m.store.SaveFile(m.savePath); err != nil {
		m.status = fmt.Sprintf("save failed: %v", err)
		return m
	}
	m.dirty = false
	m.status = fmt.Sprintf("saved %s", m.savePath)
	return m
}

// cycleSelection moves the selection to the next object on the page in
// z-order, committing any in-flight transform first.
func (m Model) cycleSelection() Model {
	m = m.finishSession()

	objects := m.store.ForPage(m.page)
	if len(objects) == 0 {
		m.hasSel = false
		return m
	}
	next := 0
	if m.hasSel {
		for i, o := range objects {
			if o.ID == m.selected {
				next = (i + 1) % len(objects)
				break
			}
		}
	}
	m.selected = objects[next].ID
	m.hasSel = true
	m.status = describeObject(objects[next])
	return m
}

func (m Model) gotoPage(page int) Model {
	if page < 0 || page >= len(m.doc.Pages) || page == m.page {
		return m
	}
	m = m.finishSession()
	m.page = page
	m.hasSel = false
	m.status = ""
	return m
}

// nudge translates the selected object by whole points.
func (m Model) nudge(dx, dy float64) Model {
	o, ok := m.selectedObject()
	if !ok {
		return m
	}
	g := geom.Translate(o.Geometry(), dx, dy)
	if err := m.store.ApplyGeometry(o.ID, g); err != nil {
		m.status = err.Error()
		return m
	}
	m.dirty = true
	m.status = describeGeometry("moved", g)
	return m
}

func (m Model) rotateBy(deg float64) Model {
	o, ok := m.selectedObject()
	if !ok {
		return m
	}
	g := o.Geometry()
	g.Rotation += deg
	if err := m.store.ApplyGeometry(o.ID, g); err != nil {
		m.status = err.Error()
		return m
	}
	m.dirty = true
	m.status = describeGeometry("rotated", g)
	return m
}

func (m Model) adjustOpacity(delta float64) Model {
	o, ok := m.selectedObject()
	if !ok {
		return m
	}
	if err := m.store.SetOpacity(o.ID, o.Opacity+delta); err != nil {
		m.status = err.Error()
		return m
	}
	m.dirty = true
	updated, _ := m.store.Get(o.ID)
	m.status = fmt.Sprintf("opacity %.0f%%", updated.Opacity*100)
	return m
}

// addTextBox inserts a placeholder text box at the page center and selects
// it. The text content is edited in the sidecar file.
func (m Model) addTextBox() Model {
	const w, h = 160.0, 60.0
	g := geom.Geometry{
		X:      (m.doc.PageWidth - w) / 2,
		Y:      (m.doc.PageHeight - h) / 2,
		Width:  w,
		Height: h,
	}
	o := overlay.NewTextBox("Text", m.page, g)
	if err := m.store.Insert(o); err != nil {
		m.status = err.Error()
		return m
	}
	m.selected, m.hasSel = o.ID, true
	m.dirty = true
	m.status = "added text box"
	return m
}

func (m Model) deleteSelected() Model {
	o, ok := m.selectedObject()
	if !ok {
		return m
	}
	m = m.finishSession()
	if m.store.Remove(o.ID) {
		m.dirty = true
	}
	m.hasSel = false
	m.status = "deleted"
	return m
}

// selectedObject resolves the selection against the store, restricted to
// the current page.
func (m Model) selectedObject() (overlay.Object, bool) {
	if !m.hasSel {
		return overlay.Object{}, false
	}
	o, ok := m.store.Get(m.selected)
	if !ok || o.PageIndex != m.page {
		return overlay.Object{}, false
	}
	return o, true
}

// =============================================================================
// Mouse
// =============================================================================

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			return m.pointerDown(msg.X, msg.Y)
		case tea.MouseButtonWheelUp:
			return m.gotoPage(m.page - 1)
		case tea.MouseButtonWheelDown:
			return m.gotoPage(m.page + 1)
		}
	case tea.MouseActionMotion:
		return m.pointerMove(msg.X, msg.Y)
	case tea.MouseActionRelease:
		return m.pointerUp(msg.X, msg.Y)
	}
	return m
}

// pointerDown opens a transform session on whatever the press hit: a
// handle of the selection, an object body, or empty space.
func (m Model) pointerDown(x, y int) Model {
	if !m.canvas.contains(x, y) {
		return m.finishSession()
	}
	p := m.canvas.point(x, y)

	// Handles of the current selection take priority over bodies.
	if o, ok := m.selectedObject(); ok {
		if region, handle, hit := m.hitHandle(o.Geometry(), p); hit {
			if _, active := m.ctrl.Active(); active {
				m.dirty = true
			}
			m.ctrl.PointerDown(o.ID, region, handle, o.Geometry(), p)
			m.status = describeObject(o)
			return m.drainCommitErr()
		}
	}

	// Topmost object under the pointer wins.
	objects := m.store.ForPage(m.page)
	for i := len(objects) - 1; i >= 0; i-- {
		o := objects[i]
		if o.Geometry().Contains(p) {
			if _, active := m.ctrl.Active(); active {
				m.dirty = true
			}
			m.ctrl.PointerDown(o.ID, transform.RegionBody, "", o.Geometry(), p)
			m.selected, m.hasSel = o.ID, true
			m.status = describeObject(o)
			return m.drainCommitErr()
		}
	}

	m = m.finishSession()
	m.hasSel = false
	m.status = ""
	return m
}

func (m Model) pointerMove(x, y int) Model {
	if _, active := m.ctrl.Active(); !active {
		return m
	}
	if g, ok := m.ctrl.PointerMove(m.canvas.point(x, y)); ok {
		m.status = describeGeometry(m.ctrl.State().String(), g)
	}
	return m
}

func (m Model) pointerUp(x, y int) Model {
	if _, active := m.ctrl.Active(); !active {
		return m
	}
	if g, ok := m.ctrl.PointerUp(m.canvas.point(x, y)); ok {
		m.dirty = true
		m.status = describeGeometry("placed", g)
	}
	return m.drainCommitErr()
}

// hitHandle tests a page point against the selection's transform
// affordances. Corners are checked before edges so a press near a corner
// always grabs it.
func (m Model) hitHandle(g geom.Geometry, p geom.Point) (transform.Region, geom.Handle, bool) {
	tx, ty := m.canvas.cellW, m.canvas.cellH

	rp := rotatePoint(g)
	if math.Abs(p.X-rp.X) <= tx && math.Abs(p.Y-rp.Y) <= ty {
		return transform.RegionRotate, "", true
	}
	for _, h := range handleOrder {
		hp := handlePoint(g, h)
		if math.Abs(p.X-hp.X) <= tx && math.Abs(p.Y-hp.Y) <= ty {
			return transform.RegionResize, h, true
		}
	}
	return transform.RegionBody, "", false
}

func (m Model) drainCommitErr() Model {
	if err := *m.commitErr; err != nil {
		m.status = err.Error()
		*m.commitErr = nil
	}
	return m
}

// =============================================================================
// Affordance placement
// =============================================================================

// handleOrder lists resize handles in hit-test priority: corners first.
var handleOrder = []geom.Handle{
	geom.HandleTopLeft, geom.HandleTopRight, geom.HandleBottomLeft, geom.HandleBottomRight,
	geom.HandleTop, geom.HandleBottom, geom.HandleLeft, geom.HandleRight,
}

// handlePoint returns the page position of a resize handle on the
// unrotated bounding box.
func handlePoint(g geom.Geometry, h geom.Handle) geom.Point {
	cx := g.X + g.Width/2
	cy := g.Y + g.Height/2
	switch h {
	case geom.HandleTopLeft:
		return geom.Point{X: g.X, Y: g.Y}
	case geom.HandleTop:
		return geom.Point{X: cx, Y: g.Y}
	case geom.HandleTopRight:
		return geom.Point{X: g.X + g.Width, Y: g.Y}
	case geom.HandleRight:
		return geom.Point{X: g.X + g.Width, Y: cy}
	case geom.HandleBottomRight:
		return geom.Point{X: g.X + g.Width, Y: g.Y + g.Height}
	case geom.HandleBottom:
		return geom.Point{X: cx, Y: g.Y + g.Height}
	case geom.HandleBottomLeft:
		return geom.Point{X: g.X, Y: g.Y + g.Height}
	default:
		return geom.Point{X: g.X, Y: cy}
	}
}

// rotatePoint returns the page position of the rotate affordance.
func rotatePoint(g geom.Geometry) geom.Point {
	return geom.Point{X: g.X + g.Width/2, Y: g.Y - rotateHandleOffset}
}

// =============================================================================
// Cell mapping
// =============================================================================

// canvas maps between terminal cells and page points. A terminal cell is
// roughly twice as tall as it is wide, so the vertical scale is double the
// horizontal one.
type canvas struct {
	cols, rows       int
	cellW, cellH     float64 // points per cell
	originX, originY int     // terminal cell of the page's top-left corner
}

// fitCanvas sizes the page grid to the terminal, reserving rows for the
// header, border, status and help lines.
func fitCanvas(pageW, pageH float64, termW, termH int) canvas {
	availCols := termW - 2
	availRows := termH - 5
	if availCols < 20 {
		availCols = 20
	}
	if availRows < 10 {
		availRows = 10
	}

	cellH := pageH / float64(availRows)
	if need := 2 * pageW / cellH; need > float64(availCols) {
		cellH = 2 * pageW / float64(availCols)
	}
	cellW := cellH / 2

	cols := int(math.Ceil(pageW / cellW))
	rows := int(math.Ceil(pageH / cellH))
	if cols > availCols {
		cols = availCols
	}
	if rows > availRows {
		rows = availRows
	}
	return canvas{cols: cols, rows: rows, cellW: cellW, cellH: cellH, originX: 1, originY: 2}
}

// contains reports whether the terminal cell lies on the page.
func (c canvas) contains(x, y int) bool {
	return x >= c.originX && x < c.originX+c.cols && y >= c.originY && y < c.originY+c.rows
}

// point converts a terminal cell to the page point at its center.
func (c canvas) point(x, y int) geom.Point {
	return geom.Point{
		X: (float64(x-c.originX) + 0.5) * c.cellW,
		Y: (float64(y-c.originY) + 0.5) * c.cellH,
	}
}

// cell converts a page point to its terminal cell.
func (c canvas) cell(p geom.Point) (int, int) {
	return int(p.X/c.cellW) + c.originX, int(p.Y/c.cellH) + c.originY
}

// col and row convert page coordinates to grid-local cell indices.
func (c canvas) col(px float64) int { return int(px / c.cellW) }
func (c canvas) row(py float64) int { return int(py / c.cellH) }

// =============================================================================
// Status formatting
// =============================================================================

func describeObject(o overlay.Object) string {
	label := string(o.Kind)
	if o.Kind == overlay.KindImage && o.Source != "" {
		label = o.Source
	}
	return fmt.Sprintf("%s  %s", label, describeGeometry("at", o.Geometry()))
}

func describeGeometry(verb string, g geom.Geometry) string {
	return fmt.Sprintf("%s x %.0f  y %.0f  w %.0f  h %.0f  rot %.0f", verb, g.X, g.Y, g.Width, g.Height, g.Rotation)
}
