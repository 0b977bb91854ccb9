// Package measure computes the rendered height of each content block at a
// fixed target width.
//
// Measurement runs against an injected Surface so the real layout-backed
// implementation and test stubs are interchangeable. The pass is two-phase:
// every block is first prepared, then the measurer waits for the surface to
// settle (fonts and embedded resources may finish loading asynchronously)
// before reading final heights. A block that cannot be measured degrades to a
// fallback height with a logged warning; it never aborts the pass.
package measure

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/paperlay/paperlay/internal/content"
)

// Default measurement tuning. Values are points except the settle delay.
const (
	DefaultSettleDelay    = 150 * time.Millisecond
	DefaultFallbackHeight = 40.0
)

// Surface renders a block at a fixed width in an isolated context and
// reports its natural height.
type Surface interface {
	// Prepare stages the block for measurement at the given width.
	Prepare(ctx context.Context, b content.Block, width float64) error
	// Measure returns the block's settled height at the given width.
	Measure(b content.Block, width float64) (float64, error)
	// Dispose releases anything the surface staged during the pass.
	Dispose()
}

// ReadySignaler is optionally implemented by surfaces that can report layout
// readiness before the full settle delay has elapsed.
type ReadySignaler interface {
	Ready() <-chan struct{}
}

// Measurer runs measurement passes over block lists.
type Measurer struct {
	Surface  Surface
	Settle   time.Duration // wait between prepare and measure
	Fallback float64       // height assigned to unmeasurable blocks
	Logger   *log.Logger
}

// NewMeasurer creates a measurer with default settle delay and fallback.
func NewMeasurer(surface Surface) *Measurer {
	return &Measurer{
		Surface:  surface,
		Settle:   DefaultSettleDelay,
		Fallback: DefaultFallbackHeight,
		Logger:   log.Default(),
	}
}

// MeasureAll measures every block at the given width and returns the
// parallel height list. Blocks that fail to prepare or measure, or that
// report a non-positive height, receive the fallback height. The only error
// returns are context cancellation during the settle wait.
func (m *Measurer) MeasureAll(ctx context.Context, blocks []content.Block, width float64) ([]float64, error) {
	defer m.Surface.Dispose()

	prepared := make([]bool, len(blocks))
	for i, b := range blocks {
		if err := m.Surface.Prepare(ctx, b, width); err != nil {
			m.warn(i, "prepare", err)
			continue
		}
		prepared[i] = true
	}

	if err := m.settle(ctx); err != nil {
		return nil, err
	}

	heights := make([]float64, len(blocks))
	for i, b := range blocks {
		if !prepared[i] {
			heights[i] = m.Fallback
			continue
		}
		h, err := m.Surface.Measure(b, width)
		if err != nil {
			m.warn(i, "measure", err)
			heights[i] = m.Fallback
			continue
		}
		if h <= 0 {
			m.warn(i, "measure", nil)
			heights[i] = m.Fallback
			continue
		}
		heights[i] = h
	}
	return heights, nil
}

// settle waits for the settle delay, the surface's ready signal, or context
// cancellation, whichever comes first.
func (m *Measurer) settle(ctx context.Context) error {
	if m.Settle <= 0 {
		return ctx.Err()
	}

	var ready <-chan struct{}
	if rs, ok := m.Surface.(ReadySignaler); ok {
		ready = rs.Ready()
	}

	timer := time.NewTimer(m.Settle)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ready:
		return nil
	case <-timer.C:
		return nil
	}
}

// warn logs a measurement degradation for one block.
func (m *Measurer) warn(index int, phase string, err error) {
	logger := m.Logger
	if logger == nil {
		logger = log.Default()
	}
	if err != nil {
		logger.Warn("block measurement degraded, using fallback height",
			"block", index, "phase", phase, "err", err)
		return
	}
	logger.Warn("block reported no height, using fallback height",
		"block", index, "phase", phase)
}
