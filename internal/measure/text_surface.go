package measure

import (
	"context"
	"sync"

	"github.com/paperlay/paperlay/internal/content"
	"github.com/paperlay/paperlay/internal/font"
	"github.com/paperlay/paperlay/internal/layout"
)

// TextSurface measures blocks with the real layout engine and font bank, so
// measured heights match what the renderer will draw at the same width.
type TextSurface struct {
	engine    *layout.Engine
	ready     chan struct{}
	readyOnce sync.Once

	mu       sync.Mutex
	prepared map[int]*layout.BlockLayout
}

// NewTextSurface creates a surface backed by the given font bank.
func NewTextSurface(fonts *font.Bank) *TextSurface {
	return &TextSurface{
		engine:   layout.NewEngine(fonts),
		ready:    make(chan struct{}),
		prepared: make(map[int]*layout.BlockLayout),
	}
}

// Prepare lays the block out at the target width and caches the result.
// The first successful layout also warms the font faces, after which the
// surface signals readiness.
func (s *TextSurface) Prepare(ctx context.Context, b content.Block, width float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bl, err := s.engine.LayoutBlock(b, width)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.prepared[b.Index] = bl
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
	return nil
}

// Measure returns the prepared height, laying the block out on demand if it
// was never prepared.
func (s *TextSurface) Measure(b content.Block, width float64) (float64, error) {
	s.mu.Lock()
	bl, ok := s.prepared[b.Index]
	s.mu.Unlock()
	if ok {
		return bl.Height, nil
	}

	bl, err := s.engine.LayoutBlock(b, width)
	if err != nil {
		return 0, err
	}
	return bl.Height, nil
}

// Ready reports layout readiness: the in-process engine is settled as soon
// as one block has been laid out and the faces are warm.
func (s *TextSurface) Ready() <-chan struct{} {
	return s.ready
}

// Dispose drops the prepared layouts. Rendering later re-runs the same
// deterministic layout pass, so nothing here needs to outlive measurement.
func (s *TextSurface) Dispose() {
	s.mu.Lock()
	s.prepared = make(map[int]*layout.BlockLayout)
	s.mu.Unlock()
}
