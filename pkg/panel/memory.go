package panel

import (
	"bytes"
	"image"
	"image/jpeg"
	"sync"
	"sync/atomic"
)

// DefaultJPEGQuality is used for preview frames.
const DefaultJPEGQuality = 80

// Memory keeps the latest frame in memory. It backs the preview dashboard.
type Memory struct {
	mu      sync.RWMutex
	img     *image.RGBA
	onFrame func(frames uint64)
	closed  bool

	frames atomic.Uint64
}

// NewMemory creates a w x h memory panel.
func NewMemory(w, h int) *Memory {
	return &Memory{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// OnFrame registers fn to be called after every Draw.
func (m *Memory) OnFrame(fn func(frames uint64)) {
	m.mu.Lock()
	m.onFrame = fn
	m.mu.Unlock()
}

// Bounds implements Panel.
func (m *Memory) Bounds() image.Rectangle {
	return m.img.Bounds()
}

// Draw implements Panel.
func (m *Memory) Draw(img image.Image) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	fit(m.img, img)
	fn := m.onFrame
	m.mu.Unlock()

	n := m.frames.Add(1)
	if fn != nil {
		fn(n)
	}
	return nil
}

// Close implements Panel.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Frames returns how many frames were drawn.
func (m *Memory) Frames() uint64 {
	return m.frames.Load()
}

// Image returns a copy of the latest frame.
func (m *Memory) Image() *image.RGBA {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := image.NewRGBA(m.img.Bounds())
	copy(out.Pix, m.img.Pix)
	return out
}

// JPEG encodes the latest frame. quality <= 0 means DefaultJPEGQuality.
func (m *Memory) JPEG(quality int) ([]byte, error) {
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	img := m.Image()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
