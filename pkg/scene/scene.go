// Package scene composes the panel canvas: the eye or the face frame,
// with the status label underneath.
package scene

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/teslashibe/go-hal/internal/log"
	"github.com/teslashibe/go-hal/pkg/display"
	"github.com/teslashibe/go-hal/pkg/eye"
	"github.com/teslashibe/go-hal/pkg/face"
)

// LabelColor is the status text colour.
var LabelColor = color.RGBA{R: 200, A: 255}

// labelMargin is the distance from the label baseline to the bottom edge,
// in reference pixels.
const labelMargin = 30

// Scene tracks which layer is visible and draws frames.
type Scene struct {
	mu sync.Mutex

	eye  *eye.Renderer
	face *face.FrameBuffer // nil when the face path is disabled

	mode        display.Mode
	eyeVisible  bool
	faceVisible bool
	swaps       uint64
	lastFrame   eye.Frame

	logger *slog.Logger
}

// Option configures a Scene.
type Option func(*Scene)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scene) {
		s.logger = l
	}
}

// New creates a scene in eye mode. fb may be nil, in which case face mode
// shows a blank canvas with the label.
func New(r *eye.Renderer, fb *face.FrameBuffer, opts ...Option) *Scene {
	s := &Scene{
		eye:        r,
		face:       fb,
		mode:       display.ModeEye,
		eyeVisible: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Component("scene")
	}
	return s
}

// SetMode swaps the visible layer if m differs from the current mode.
// It reports whether a swap happened. Compose does the same for the mode
// of the state it draws.
func (s *Scene) SetMode(m display.Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setModeLocked(m)
}

func (s *Scene) setModeLocked(m display.Mode) bool {
	if m == s.mode {
		return false
	}
	s.mode = m
	s.eyeVisible = m == display.ModeEye
	s.faceVisible = m == display.ModeFace
	s.swaps++
	s.logger.Info("display mode changed", "mode", m.String(), "swaps", s.swaps)
	return true
}

// Mode returns the visible mode.
func (s *Scene) Mode() display.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Visible reports which layers are shown.
func (s *Scene) Visible() (eyeLayer, faceLayer bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eyeVisible, s.faceVisible
}

// Swaps returns the number of visibility swaps so far.
func (s *Scene) Swaps() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swaps
}

// FaceEnabled reports whether a frame buffer is attached.
func (s *Scene) FaceEnabled() bool {
	return s.face != nil
}

// LastEyeFrame returns the most recent eye frame drawn.
func (s *Scene) LastEyeFrame() eye.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame
}

// Compose switches to rs.Mode if needed, then draws the visible layer and
// the label for rs into dst. Layer and label always come from the same rs.
func (s *Scene) Compose(dst *image.RGBA, now time.Time, rs display.RenderState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setModeLocked(rs.Mode)

	switch {
	case s.eyeVisible:
		s.lastFrame = s.eye.Render(dst, now, rs.Flags)
	case s.faceVisible && s.face != nil:
		s.face.DrawTo(dst, dst.Bounds())
	default:
		draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	}

	DrawLabel(dst, rs.Label())
}

// DrawLabel writes text centred near the bottom edge of dst.
func DrawLabel(dst draw.Image, text string) {
	if text == "" {
		return
	}
	b := dst.Bounds()
	scale := float64(min(b.Dx(), b.Dy())) / eye.ReferenceSize

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(LabelColor),
		Face: basicfont.Face7x13,
	}
	width := d.MeasureString(text).Ceil()
	x := b.Min.X + (b.Dx()-width)/2
	y := b.Max.Y - int(labelMargin*scale)
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}
