// Package eye animates the HAL 9000 eye: concentric red rings that pulse
// with a sinusoid of the clock.
//
// The geometry is defined for a 480x480 panel and scaled to the canvas.
package eye

import (
	"image/color"
	"math"
	"time"

	"github.com/teslashibe/go-hal/pkg/display"
)

// Reference panel size the radii below are measured against.
const ReferenceSize = 480

// Eye geometry in reference pixels.
const (
	OuterRadius     = 140
	GlowPadding     = 15 // glow extends past the outer radius
	GlowPulse       = 10 // extra glow radius at full pulse
	Ring1Radius     = 130
	Ring2Radius     = 118
	Ring3Radius     = 105
	Ring4Radius     = 90
	CoreRadius      = 75
	CoreBorder      = 2
	CentreRadius    = 30
	HighlightRadius = 12
	HighlightOffset = -4
)

// Pulse speeds in radians per millisecond.
const (
	IdleSpeed      = 0.002
	ListeningSpeed = 0.006
	SpeakingSpeed  = 0.004
)

// Base colours per flag set.
var (
	IdleBase      = color.RGBA{R: 204, A: 255}        // #CC0000
	ListeningBase = color.RGBA{R: 255, A: 255}        // #FF0000
	SpeakingBase  = color.RGBA{R: 255, G: 51, A: 255} // #FF3300
)

// RingCoefficients scale the base colour for ring1..ring4, outer to inner.
// The core uses 1.0.
var RingCoefficients = [4]float64{0.35, 0.50, 0.70, 0.85}

// glowLevel is the red level of the glow at full brightness.
const glowLevel = 40

// highlightAlpha is 80% opacity.
const highlightAlpha = 204

// Speed returns the pulse speed for the flags. Listening wins over speaking.
func Speed(f display.Flags) float64 {
	switch {
	case f.Listening:
		return ListeningSpeed
	case f.Speaking:
		return SpeakingSpeed
	default:
		return IdleSpeed
	}
}

// Base returns the base colour for the flags.
func Base(f display.Flags) color.RGBA {
	switch {
	case f.Listening:
		return ListeningBase
	case f.Speaking:
		return SpeakingBase
	default:
		return IdleBase
	}
}

// Pulse returns the pulse value in [0, 1] after elapsed time.
func Pulse(elapsed time.Duration, f display.Flags) float64 {
	ms := float64(elapsed) / float64(time.Millisecond)
	p := math.Sin(ms*Speed(f))*0.5 + 0.5
	return clamp(p, 0, 1)
}

// Brightness maps a pulse value to the 0.7..1.0 brightness factor.
func Brightness(pulse float64) float64 {
	return 0.7 + clamp(pulse, 0, 1)*0.3
}

// Shape is one filled circle of the eye.
type Shape struct {
	Name string
	// Radius and offsets are in reference pixels.
	Radius           float64
	OffsetX, OffsetY float64
	Fill             color.NRGBA
	// Border is drawn as an outer band of BorderWidth in BorderColor.
	BorderWidth float64
	BorderColor color.NRGBA
}

// Frame is the list of shapes for one tick, outer to inner.
type Frame struct {
	Pulse  float64
	Shapes []Shape
}

// Compute builds the eye frame for elapsed time and flags.
func Compute(elapsed time.Duration, f display.Flags) Frame {
	p := Pulse(elapsed, f)
	b := Brightness(p)
	base := Base(f)

	scaled := func(coef float64) color.NRGBA {
		return color.NRGBA{
			R: channel(float64(base.R) * coef * b),
			G: channel(float64(base.G) * coef * b),
			A: 255,
		}
	}

	shapes := []Shape{
		{
			Name:   "glow",
			Radius: OuterRadius + GlowPadding + math.Floor(p*2*GlowPulse)/2,
			Fill:   color.NRGBA{R: channel(glowLevel * b), A: 255},
		},
		{Name: "ring1", Radius: Ring1Radius, Fill: scaled(RingCoefficients[0])},
		{Name: "ring2", Radius: Ring2Radius, Fill: scaled(RingCoefficients[1])},
		{Name: "ring3", Radius: Ring3Radius, Fill: scaled(RingCoefficients[2])},
		{Name: "ring4", Radius: Ring4Radius, Fill: scaled(RingCoefficients[3])},
		{
			Name:        "core",
			Radius:      CoreRadius,
			Fill:        scaled(1.0),
			BorderWidth: CoreBorder,
			BorderColor: color.NRGBA{R: 255, G: channel(50 + p*30), A: 255},
		},
		{
			Name:   "centre",
			Radius: CentreRadius,
			Fill:   color.NRGBA{R: 255, G: channel(180 + p*40), A: 255},
		},
		{
			Name:    "highlight",
			Radius:  HighlightRadius,
			OffsetX: HighlightOffset,
			OffsetY: HighlightOffset,
			Fill:    color.NRGBA{R: 255, G: 255, B: 255, A: highlightAlpha},
		},
	}

	return Frame{Pulse: p, Shapes: shapes}
}

func channel(v float64) uint8 {
	return uint8(clamp(v, 0, 255))
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
