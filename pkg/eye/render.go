package eye

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	"golang.org/x/image/vector"

	"github.com/teslashibe/go-hal/pkg/display"
)

// kappa places cubic control points so four curves approximate a circle.
const kappa = 0.5522847498

// Renderer draws eye frames into an RGBA canvas.
// The phase comes only from the clock: elapsed time since the epoch.
type Renderer struct {
	epoch time.Time
	z     *vector.Rasterizer
}

// NewRenderer creates a renderer whose pulse phase starts at epoch.
func NewRenderer(epoch time.Time) *Renderer {
	return &Renderer{
		epoch: epoch,
		z:     vector.NewRasterizer(ReferenceSize, ReferenceSize),
	}
}

// Epoch returns the phase origin.
func (r *Renderer) Epoch() time.Time {
	return r.epoch
}

// Elapsed returns the animation time at now.
func (r *Renderer) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.epoch)
}

// Render clears dst and draws the eye for now and flags.
// It returns the frame that was drawn.
func (r *Renderer) Render(dst *image.RGBA, now time.Time, f display.Flags) Frame {
	frame := Compute(r.Elapsed(now), f)
	r.Draw(dst, frame)
	return frame
}

// Draw clears dst to black and rasterises the frame's shapes, centred and
// scaled to the canvas.
func (r *Renderer) Draw(dst *image.RGBA, frame Frame) {
	b := dst.Bounds()
	draw.Draw(dst, b, image.Black, image.Point{}, draw.Src)

	w, h := b.Dx(), b.Dy()
	scale := float64(min(w, h)) / ReferenceSize
	cx := float64(w) / 2
	cy := float64(h) / 2

	for _, s := range frame.Shapes {
		x := cx + s.OffsetX*scale
		y := cy + s.OffsetY*scale
		if s.BorderWidth > 0 {
			r.fillCircle(dst, x, y, s.Radius*scale, s.BorderColor)
			r.fillCircle(dst, x, y, (s.Radius-s.BorderWidth)*scale, s.Fill)
			continue
		}
		r.fillCircle(dst, x, y, s.Radius*scale, s.Fill)
	}
}

func (r *Renderer) fillCircle(dst *image.RGBA, cx, cy, radius float64, c color.NRGBA) {
	if radius <= 0 {
		return
	}
	b := dst.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
	r.z.DrawOp = draw.Over

	x, y, rad := float32(cx), float32(cy), float32(radius)
	k := float32(kappa) * rad

	r.z.MoveTo(x+rad, y)
	r.z.CubeTo(x+rad, y+k, x+k, y+rad, x, y+rad)
	r.z.CubeTo(x-k, y+rad, x-rad, y+k, x-rad, y)
	r.z.CubeTo(x-rad, y-k, x-k, y-rad, x, y-rad)
	r.z.CubeTo(x+k, y-rad, x+rad, y-k, x+rad, y)
	r.z.ClosePath()

	r.z.Draw(dst, b, image.NewUniform(c), image.Point{})
}
