package editor

import (
	"math"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/paperlay/paperlay/internal/geom"
	"github.com/paperlay/paperlay/internal/overlay"
	"github.com/paperlay/paperlay/internal/transform"
)

func a4Doc(pages int) Document {
	d := Document{Title: "test", PageWidth: 595.28, PageHeight: 841.89}
	for i := 0; i < pages; i++ {
		d.Pages = append(d.Pages, Page{})
	}
	return d
}

func newTestModel(t *testing.T, pages int, objects ...*overlay.Object) (Model, *overlay.Store) {
	t.Helper()
	store := overlay.NewStore()
	for _, o := range objects {
		if err := store.Insert(o); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	m := New(a4Doc(pages), store, filepath.Join(t.TempDir(), "overlays.json"), true)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 45})
	return m, store
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	nm, _ := m.Update(msg)
	out, ok := nm.(Model)
	if !ok {
		t.Fatalf("Update returned %T", nm)
	}
	return out
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "shift+down":
		return tea.KeyMsg{Type: tea.KeyShiftDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(t *testing.T, m Model, x, y int) Model {
	return update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
}

func motion(t *testing.T, m Model, x, y int) Model {
	return update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
}

func release(t *testing.T, m Model, x, y int) Model {
	return update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
}

func clickPoint(t *testing.T, m Model, p geom.Point) Model {
	x, y := m.canvas.cell(p)
	m = press(t, m, x, y)
	return release(t, m, x, y)
}

func wantGeometry(t *testing.T, got, want geom.Geometry) {
	t.Helper()
	const eps = 1e-6
	if math.Abs(got.X-want.X) > eps || math.Abs(got.Y-want.Y) > eps ||
		math.Abs(got.Width-want.Width) > eps || math.Abs(got.Height-want.Height) > eps ||
		math.Abs(got.Rotation-want.Rotation) > eps {
		t.Errorf("geometry = %+v, want %+v", got, want)
	}
}

func TestFitCanvasKeepsPageProportions(t *testing.T) {
	tests := []struct {
		name         string
		termW, termH int
	}{
		{"height limited", 120, 45},
		{"width limited", 60, 50},
		{"tiny window", 10, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fitCanvas(595.28, 841.89, tt.termW, tt.termH)
			if c.cellH != 2*c.cellW {
				t.Errorf("cellH = %v, want 2x cellW %v", c.cellH, c.cellW)
			}
			if c.cols < 1 || c.rows < 1 {
				t.Fatalf("degenerate canvas %dx%d", c.cols, c.rows)
			}
			// The full page must be addressable through the grid.
			if float64(c.cols)*c.cellW < 595.28-c.cellW {
				t.Errorf("grid covers %.1fpt of a 595.28pt wide page", float64(c.cols)*c.cellW)
			}
			if float64(c.rows)*c.cellH < 841.89-c.cellH {
				t.Errorf("grid covers %.1fpt of a 841.89pt tall page", float64(c.rows)*c.cellH)
			}
		})
	}
}

func TestCanvasPointCellRoundTrip(t *testing.T) {
	c := fitCanvas(595.28, 841.89, 120, 45)
	p := geom.Point{X: 300, Y: 420}
	x, y := c.cell(p)
	back := c.point(x, y)
	if math.Abs(back.X-p.X) > c.cellW || math.Abs(back.Y-p.Y) > c.cellH {
		t.Errorf("round trip moved %v to %v, more than one cell", p, back)
	}
}

func TestClickSelectsTopmostObject(t *testing.T) {
	below := overlay.NewImage("a.png", 0, geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60})
	above := overlay.NewImage("b.png", 0, geom.Geometry{X: 150, Y: 130, Width: 100, Height: 60})
	m, _ := newTestModel(t, 1, below, above)

	m = clickPoint(t, m, geom.Point{X: 180, Y: 150})

	if !m.hasSel || m.selected != above.ID {
		t.Fatalf("selected = %v (%v), want the object drawn on top", m.selected, m.hasSel)
	}
	if m.ctrl.State() != transform.StateIdle {
		t.Errorf("state after release = %v, want idle", m.ctrl.State())
	}
}

func TestDragMovesObject(t *testing.T) {
	o := overlay.NewImage("a.png", 0, geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60})
	m, store := newTestModel(t, 1, o)

	x0, y0 := m.canvas.cell(geom.Point{X: 150, Y: 130})
	x1, y1 := x0+5, y0+3

	m = press(t, m, x0, y0)
	if m.ctrl.State() != transform.StateDragging {
		t.Fatalf("state after press = %v, want dragging", m.ctrl.State())
	}
	m = motion(t, m, x1, y1)

	start := m.canvas.point(x0, y0)
	end := m.canvas.point(x1, y1)
	want := geom.Translate(geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60}, end.X-start.X, end.Y-start.Y)

	cand, ok := m.ctrl.Candidate()
	if !ok {
		t.Fatal("no candidate during drag")
	}
	wantGeometry(t, cand, want)

	m = release(t, m, x1, y1)
	got, _ := store.Get(o.ID)
	wantGeometry(t, got.Geometry(), want)
	if !m.Dirty() {
		t.Error("drag did not mark the editor dirty")
	}
}

func TestResizeFromCornerHonorsAspectLock(t *testing.T) {
	startGeom := geom.Geometry{X: 100, Y: 100, Width: 100, Height: 50}
	o := overlay.NewImage("a.png", 0, startGeom)
	m, store := newTestModel(t, 1, o)

	m = clickPoint(t, m, geom.Point{X: 150, Y: 125})

	x0, y0 := m.canvas.cell(geom.Point{X: 200, Y: 150})
	x1, y1 := m.canvas.cell(geom.Point{X: 250, Y: 160})

	m = press(t, m, x0, y0)
	if m.ctrl.State() != transform.StateResizing {
		t.Fatalf("state after corner press = %v, want resizing", m.ctrl.State())
	}
	m = motion(t, m, x1, y1)
	m = release(t, m, x1, y1)

	p0 := m.canvas.point(x0, y0)
	p1 := m.canvas.point(x1, y1)
	want := geom.ResizeFromHandle(startGeom, geom.HandleBottomRight, p1.X-p0.X, p1.Y-p0.Y, true)

	got, _ := store.Get(o.ID)
	wantGeometry(t, got.Geometry(), want)
	if got.Width/got.Height != startGeom.Width/startGeom.Height {
		t.Errorf("aspect ratio drifted: %v/%v", got.Width, got.Height)
	}
}

func TestRotateHandleTurnsObject(t *testing.T) {
	startGeom := geom.Geometry{X: 100, Y: 100, Width: 60, Height: 40}
	o := overlay.NewImage("a.png", 0, startGeom)
	m, store := newTestModel(t, 1, o)

	m = clickPoint(t, m, geom.Point{X: 130, Y: 120})

	x0, y0 := m.canvas.cell(rotatePoint(startGeom))
	x1, y1 := m.canvas.cell(geom.Point{X: 200, Y: 120})

	m = press(t, m, x0, y0)
	if m.ctrl.State() != transform.StateRotating {
		t.Fatalf("state after rotate press = %v, want rotating", m.ctrl.State())
	}
	m = motion(t, m, x1, y1)
	m = release(t, m, x1, y1)

	center := startGeom.Center()
	p0 := m.canvas.point(x0, y0)
	p1 := m.canvas.point(x1, y1)
	wantRot := geom.RotateDelta(center, p0, p1)

	got, _ := store.Get(o.ID)
	if math.Abs(got.Rotation-wantRot) > 1e-6 {
		t.Errorf("rotation = %v, want %v", got.Rotation, wantRot)
	}
	if got.X != startGeom.X || got.Width != startGeom.Width {
		t.Errorf("rotation changed the box: %+v", got.Geometry())
	}
}

func TestPressOnSecondObjectCommitsFirst(t *testing.T) {
	first := overlay.NewImage("a.png", 0, geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60})
	second := overlay.NewImage("b.png", 0, geom.Geometry{X: 400, Y: 400, Width: 100, Height: 60})
	m, store := newTestModel(t, 1, first, second)

	x0, y0 := m.canvas.cell(geom.Point{X: 150, Y: 130})
	m = press(t, m, x0, y0)
	m = motion(t, m, x0+2, y0)
	cand, _ := m.ctrl.Candidate()

	// Press the other object without releasing the first.
	bx, by := m.canvas.cell(geom.Point{X: 450, Y: 430})
	m = press(t, m, bx, by)

	got, _ := store.Get(first.ID)
	wantGeometry(t, got.Geometry(), cand)
	if m.selected != second.ID {
		t.Errorf("selection did not move to the second object")
	}
	if m.ctrl.State() != transform.StateDragging {
		t.Errorf("state = %v, want dragging on the new object", m.ctrl.State())
	}
	if !m.Dirty() {
		t.Error("force-commit did not mark the editor dirty")
	}
}

func TestZeroMovementClickStillCommits(t *testing.T) {
	startGeom := geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60}
	o := overlay.NewImage("a.png", 0, startGeom)
	m, store := newTestModel(t, 1, o)

	m = clickPoint(t, m, geom.Point{X: 150, Y: 130})

	got, _ := store.Get(o.ID)
	wantGeometry(t, got.Geometry(), startGeom)
	if !m.Dirty() {
		t.Error("zero-movement click did not commit")
	}
}

func TestClickEmptySpaceDeselects(t *testing.T) {
	o := overlay.NewImage("a.png", 0, geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60})
	m, _ := newTestModel(t, 1, o)

	m = clickPoint(t, m, geom.Point{X: 150, Y: 130})
	if !m.hasSel {
		t.Fatal("click on the object did not select it")
	}
	m = clickPoint(t, m, geom.Point{X: 500, Y: 700})
	if m.hasSel {
		t.Error("click on empty space kept the selection")
	}
}

func TestTabCyclesSelection(t *testing.T) {
	a := overlay.NewImage("a.png", 0, geom.Geometry{X: 50, Y: 50, Width: 80, Height: 40})
	b := overlay.NewImage("b.png", 0, geom.Geometry{X: 300, Y: 300, Width: 80, Height: 40})
	m, _ := newTestModel(t, 1, a, b)

	m = update(t, m, keyMsg("tab"))
	if m.selected != a.ID {
		t.Fatalf("first tab selected %v, want %v", m.selected, a.ID)
	}
	m = update(t, m, keyMsg("tab"))
	if m.selected != b.ID {
		t.Fatalf("second tab selected %v, want %v", m.selected, b.ID)
	}
	m = update(t, m, keyMsg("tab"))
	if m.selected != a.ID {
		t.Errorf("third tab selected %v, want wrap to %v", m.selected, a.ID)
	}
}

func TestArrowKeysNudgeSelection(t *testing.T) {
	o := overlay.NewImage("a.png", 0, geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60})
	m, store := newTestModel(t, 1, o)

	m = update(t, m, keyMsg("tab"))
	m = update(t, m, keyMsg("right"))
	m = update(t, m, keyMsg("shift+down"))

	got, _ := store.Get(o.ID)
	wantGeometry(t, got.Geometry(), geom.Geometry{X: 101, Y: 110, Width: 100, Height: 60})
	if !m.Dirty() {
		t.Error("nudge did not mark the editor dirty")
	}
}

func TestRotationKeys(t *testing.T) {
	o := overlay.NewImage("a.png", 0, geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60})
	m, store := newTestModel(t, 1, o)

	m = update(t, m, keyMsg("tab"))
	m = update(t, m, keyMsg("r"))
	m = update(t, m, keyMsg("r"))
	m = update(t, m, keyMsg("R"))

	got, _ := store.Get(o.ID)
	if math.Abs(got.Rotation-15) > 1e-9 {
		t.Errorf("rotation = %v, want 15", got.Rotation)
	}
}

func TestOpacityKeysClamp(t *testing.T) {
	o := overlay.NewImage("a.png", 0, geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60})
	m, store := newTestModel(t, 1, o)

	m = update(t, m, keyMsg("tab"))
	for i := 0; i < 3; i++ {
		m = update(t, m, keyMsg("-"))
	}
	got, _ := store.Get(o.ID)
	if math.Abs(got.Opacity-0.7) > 1e-9 {
		t.Fatalf("opacity = %v, want 0.7", got.Opacity)
	}

	for i := 0; i < 6; i++ {
		m = update(t, m, keyMsg("+"))
	}
	got, _ = store.Get(o.ID)
	if got.Opacity != 1 {
		t.Errorf("opacity = %v, want clamp at 1", got.Opacity)
	}
}

func TestDeleteRemovesSelection(t *testing.T) {
	o := overlay.NewImage("a.png", 0, geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60})
	m, store := newTestModel(t, 1, o)

	m = update(t, m, keyMsg("tab"))
	m = update(t, m, keyMsg("x"))

	if store.Len() != 0 {
		t.Errorf("store has %d objects after delete", store.Len())
	}
	if m.hasSel {
		t.Error("selection survived the delete")
	}
}

func TestAddTextBoxCentersOnPage(t *testing.T) {
	m, store := newTestModel(t, 1)

	m = update(t, m, keyMsg("t"))

	if store.Len() != 1 {
		t.Fatalf("store has %d objects, want 1", store.Len())
	}
	o := store.All()[0]
	if o.Kind != overlay.KindTextBox {
		t.Errorf("kind = %v, want textbox", o.Kind)
	}
	if math.Abs(o.X-(595.28-160)/2) > 1e-9 || math.Abs(o.Y-(841.89-60)/2) > 1e-9 {
		t.Errorf("text box at (%v, %v), want page center", o.X, o.Y)
	}
	if !m.hasSel || m.selected != o.ID {
		t.Error("new text box is not selected")
	}
}

func TestPageNavigation(t *testing.T) {
	o := overlay.NewImage("a.png", 0, geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60})
	m, _ := newTestModel(t, 2, o)

	m = update(t, m, keyMsg("tab"))
	m = update(t, m, keyMsg("n"))
	if m.page != 1 {
		t.Fatalf("page = %d, want 1", m.page)
	}
	if m.hasSel {
		t.Error("selection crossed a page boundary")
	}
	m = update(t, m, keyMsg("n"))
	if m.page != 1 {
		t.Errorf("page = %d, want clamp at the last page", m.page)
	}
	m = update(t, m, keyMsg("p"))
	if m.page != 0 {
		t.Errorf("page = %d, want 0", m.page)
	}
}

func TestSaveWritesSidecar(t *testing.T) {
	o := overlay.NewImage("a.png", 0, geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60})
	m, _ := newTestModel(t, 1, o)

	m = update(t, m, keyMsg("tab"))
	m = update(t, m, keyMsg("right"))
	m = update(t, m, keyMsg("s"))

	if m.Dirty() {
		t.Error("save left the editor dirty")
	}
	loaded, err := overlay.LoadFile(m.savePath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	got, ok := loaded.Get(o.ID)
	if !ok {
		t.Fatal("saved sidecar is missing the object")
	}
	if got.X != 101 {
		t.Errorf("saved X = %v, want 101", got.X)
	}
}

func TestQuitSavesWhenDirty(t *testing.T) {
	o := overlay.NewImage("a.png", 0, geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60})
	m, _ := newTestModel(t, 1, o)

	m = update(t, m, keyMsg("tab"))
	m = update(t, m, keyMsg("right"))

	nm, cmd := m.Update(keyMsg("q"))
	m = nm.(Model)
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("quit did not return tea.Quit")
	}
	if m.Dirty() {
		t.Error("quit did not save pending changes")
	}
	if _, err := overlay.LoadFile(m.savePath); err != nil {
		t.Errorf("sidecar not written on quit: %v", err)
	}
}

func TestEscDeselects(t *testing.T) {
	o := overlay.NewImage("a.png", 0, geom.Geometry{X: 100, Y: 100, Width: 100, Height: 60})
	m, _ := newTestModel(t, 1, o)

	m = update(t, m, keyMsg("tab"))
	m = update(t, m, keyMsg("esc"))
	if m.hasSel {
		t.Error("esc kept the selection")
	}
}

func TestViewRendersWithoutPanic(t *testing.T) {
	o := overlay.NewTextBox("note", 0, geom.Geometry{X: 100, Y: 100, Width: 160, Height: 60})
	m, _ := newTestModel(t, 1, o)

	m = update(t, m, keyMsg("tab"))
	out := m.View()
	if out == "" {
		t.Fatal("empty view")
	}
	// Drag mid-session views draw the candidate, not the store geometry.
	x0, y0 := m.canvas.cell(geom.Point{X: 180, Y: 130})
	m = press(t, m, x0, y0)
	m = motion(t, m, x0+3, y0+2)
	if m.View() == "" {
		t.Fatal("empty view during drag")
	}
}
