// Package panel defines output surfaces for the composed canvas.
package panel

import (
	"errors"
	"image"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// Panel is an output device for composed frames.
type Panel interface {
	Bounds() image.Rectangle
	Draw(img image.Image) error
	Close() error
}

// ErrClosed is returned by Draw after Close.
var ErrClosed = errors.New("panel: closed")

// fit copies src into dst, scaling when the sizes differ.
func fit(dst draw.Image, src image.Image) {
	if dst.Bounds().Size() == src.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
}

// Multi draws to several panels. A failing panel does not stop the others.
type Multi struct {
	mu     sync.Mutex
	panels []Panel
}

// NewMulti combines panels. The first panel's bounds are reported.
func NewMulti(panels ...Panel) *Multi {
	return &Multi{panels: panels}
}

// Add appends a panel.
func (m *Multi) Add(p Panel) {
	m.mu.Lock()
	m.panels = append(m.panels, p)
	m.mu.Unlock()
}

// Remove drops p without closing it.
func (m *Multi) Remove(p Panel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, q := range m.panels {
		if q == p {
			m.panels = append(m.panels[:i], m.panels[i+1:]...)
			return
		}
	}
}

// Len returns the number of panels.
func (m *Multi) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.panels)
}

// Bounds implements Panel.
func (m *Multi) Bounds() image.Rectangle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.panels) == 0 {
		return image.Rectangle{}
	}
	return m.panels[0].Bounds()
}

// Draw implements Panel. Errors are wrapped in a *DrawError naming the
// failed panels.
func (m *Multi) Draw(img image.Image) error {
	m.mu.Lock()
	panels := append([]Panel(nil), m.panels...)
	m.mu.Unlock()

	var failed *DrawError
	for _, p := range panels {
		if err := p.Draw(img); err != nil {
			if failed == nil {
				failed = &DrawError{}
			}
			failed.Panels = append(failed.Panels, p)
			failed.Errs = append(failed.Errs, err)
		}
	}
	if failed != nil {
		return failed
	}
	return nil
}

// Close implements Panel.
func (m *Multi) Close() error {
	m.mu.Lock()
	panels := m.panels
	m.panels = nil
	m.mu.Unlock()

	var errs []error
	for _, p := range panels {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DrawError reports which panels failed a Multi draw.
type DrawError struct {
	Panels []Panel
	Errs   []error
}

func (e *DrawError) Error() string {
	return "panel: draw failed: " + errors.Join(e.Errs...).Error()
}

// Unwrap returns the underlying errors.
func (e *DrawError) Unwrap() []error {
	return e.Errs
}
