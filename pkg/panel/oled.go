package panel

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/teslashibe/go-hal/internal/log"
)

// DefaultThreshold is the channel level at which an OLED pixel lights.
const DefaultThreshold = 96

// OLED drives a monochrome SSD1306 over I2C.
type OLED struct {
	mu        sync.Mutex
	dev       *ssd1306.Dev
	bus       i2c.BusCloser
	threshold uint8
	scratch   *image.RGBA
	logger    *slog.Logger
}

// OpenOLED initialises the host drivers and opens the display on the named
// I2C bus ("" picks the first bus).
func OpenOLED(busName string) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("panel: host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("panel: open i2c bus %q: %w", busName, err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("panel: ssd1306: %w", err)
	}

	o := &OLED{
		dev:       dev,
		bus:       bus,
		threshold: DefaultThreshold,
		scratch:   image.NewRGBA(dev.Bounds()),
		logger:    log.Component("oled"),
	}
	o.logger.Info("oled panel ready", "bus", busName, "bounds", dev.Bounds().String())
	return o, nil
}

// Bounds implements Panel.
func (o *OLED) Bounds() image.Rectangle {
	return o.dev.Bounds()
}

// Draw implements Panel.
func (o *OLED) Draw(img image.Image) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.dev == nil {
		return ErrClosed
	}
	fit(o.scratch, img)
	mono := Threshold(o.scratch, o.threshold)
	return o.dev.Draw(mono.Bounds(), mono, image.Point{})
}

// Close implements Panel. The display is switched off.
func (o *OLED) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.dev == nil {
		return nil
	}
	err := o.dev.Halt()
	if cerr := o.bus.Close(); err == nil {
		err = cerr
	}
	o.dev = nil
	return err
}

// Threshold converts img to 1-bit, lighting pixels whose brightest channel
// reaches level. The eye is red, so luminance alone would leave it dark.
func Threshold(img *image.RGBA, level uint8) *image1bit.VerticalLSB {
	b := img.Bounds()
	out := image1bit.NewVerticalLSB(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if max(c.R, c.G, c.B) >= level {
				out.SetBit(x, y, image1bit.On)
			}
		}
	}
	return out
}
