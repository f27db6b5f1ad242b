// Package face fetches camera frames of the person HAL is talking to and
// keeps the newest one in a fixed-size buffer for the compositor.
package face

import (
	"fmt"
	"image"
	"image/draw"
	"sync"
	"sync/atomic"
	"time"

	xdraw "golang.org/x/image/draw"
)

// MaxDimension bounds either side of a FrameBuffer.
const MaxDimension = 2048

// FrameBuffer holds the latest face frame at a fixed size.
// The frame task writes it; the compose task reads it.
type FrameBuffer struct {
	mu        sync.RWMutex
	img       *image.RGBA
	frames    uint64
	updatedAt time.Time

	dirty atomic.Bool
}

// NewFrameBuffer allocates a black w x h buffer.
func NewFrameBuffer(w, h int) (*FrameBuffer, error) {
	if w <= 0 || h <= 0 || w > MaxDimension || h > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)
	return &FrameBuffer{img: img}, nil
}

// Bounds returns the buffer rectangle.
func (b *FrameBuffer) Bounds() image.Rectangle {
	return b.img.Bounds()
}

// Blit copies src into the buffer, scaling it when the sizes differ, and
// marks the buffer dirty.
func (b *FrameBuffer) Blit(src image.Image) {
	// Scale outside the lock; the swap below is a plain copy.
	scratch := image.NewRGBA(b.img.Bounds())
	if src.Bounds().Size() == scratch.Bounds().Size() {
		draw.Draw(scratch, scratch.Bounds(), src, src.Bounds().Min, draw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(scratch, scratch.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	}

	b.mu.Lock()
	copy(b.img.Pix, scratch.Pix)
	b.dirty.Store(true)
	b.frames++
	b.updatedAt = time.Now()
	b.mu.Unlock()
}

// DrawTo draws the buffer into r of dst and clears the dirty flag.
func (b *FrameBuffer) DrawTo(dst draw.Image, r image.Rectangle) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if r.Size() == b.img.Bounds().Size() {
		draw.Draw(dst, r, b.img, image.Point{}, draw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(dst, r, b.img, b.img.Bounds(), xdraw.Src, nil)
	}
	b.dirty.Store(false)
}

// Snapshot returns a copy of the current buffer.
func (b *FrameBuffer) Snapshot() *image.RGBA {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := image.NewRGBA(b.img.Bounds())
	copy(out.Pix, b.img.Pix)
	return out
}

// Dirty reports whether a frame arrived since the last DrawTo.
func (b *FrameBuffer) Dirty() bool {
	return b.dirty.Load()
}

// Frames returns how many frames have been blitted.
func (b *FrameBuffer) Frames() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frames
}

// UpdatedAt returns when the last frame was blitted.
func (b *FrameBuffer) UpdatedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updatedAt
}
