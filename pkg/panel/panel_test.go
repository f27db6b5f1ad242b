package panel

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

type failingPanel struct {
	closed bool
}

func (f *failingPanel) Bounds() image.Rectangle { return image.Rect(0, 0, 8, 8) }
func (f *failingPanel) Draw(image.Image) error  { return errors.New("bus gone") }
func (f *failingPanel) Close() error {
	f.closed = true
	return nil
}

func redCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 210, 255
	}
	return img
}

func TestMemory_DrawAndImage(t *testing.T) {
	m := NewMemory(480, 480)
	var seen uint64
	m.OnFrame(func(n uint64) { seen = n })

	src := redCanvas(480, 480)
	if err := m.Draw(src); err != nil {
		t.Fatal(err)
	}
	src.Pix[0] = 0 // later changes to the source must not leak in

	img := m.Image()
	if c := img.RGBAAt(0, 0); c.R != 210 {
		t.Errorf("pixel: got %+v", c)
	}
	if m.Frames() != 1 || seen != 1 {
		t.Errorf("frames %d, callback saw %d", m.Frames(), seen)
	}
}

func TestMemory_Scales(t *testing.T) {
	m := NewMemory(100, 100)
	if err := m.Draw(redCanvas(480, 480)); err != nil {
		t.Fatal(err)
	}
	if c := m.Image().RGBAAt(50, 50); c.R != 210 {
		t.Errorf("scaled pixel: got %+v", c)
	}
}

func TestMemory_JPEG(t *testing.T) {
	m := NewMemory(64, 64)
	m.Draw(redCanvas(64, 64))

	data, err := m.JPEG(0)
	if err != nil {
		t.Fatal(err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Errorf("bounds: %v", img.Bounds())
	}
}

func TestMemory_Closed(t *testing.T) {
	m := NewMemory(8, 8)
	m.Close()
	if err := m.Draw(redCanvas(8, 8)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestMulti_FailingPanelDoesNotStopOthers(t *testing.T) {
	mem := NewMemory(16, 16)
	bad := &failingPanel{}
	multi := NewMulti(mem, bad)

	err := multi.Draw(redCanvas(16, 16))
	var drawErr *DrawError
	if !errors.As(err, &drawErr) {
		t.Fatalf("expected DrawError, got %v", err)
	}
	if len(drawErr.Panels) != 1 || drawErr.Panels[0] != Panel(bad) {
		t.Errorf("failed panels: %v", drawErr.Panels)
	}
	if mem.Frames() != 1 {
		t.Error("memory panel should still receive the frame")
	}

	multi.Remove(bad)
	if multi.Len() != 1 {
		t.Fatalf("Len after Remove: %d", multi.Len())
	}
	if err := multi.Draw(redCanvas(16, 16)); err != nil {
		t.Errorf("draw after removing the bad panel: %v", err)
	}
	if multi.Bounds() != mem.Bounds() {
		t.Errorf("Bounds: got %v", multi.Bounds())
	}

	multi.Add(bad)
	if err := multi.Close(); err != nil {
		t.Fatal(err)
	}
	if !bad.closed {
		t.Error("Close should close every panel")
	}
}

func TestThreshold(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.SetRGBA(1, 1, color.RGBA{R: 200, A: 255})
	img.SetRGBA(2, 2, color.RGBA{R: 40, A: 255})

	mono := Threshold(img, DefaultThreshold)
	if mono.BitAt(1, 1) != image1bit.On {
		t.Error("bright red pixel should light")
	}
	if mono.BitAt(2, 2) != image1bit.Off || mono.BitAt(0, 0) != image1bit.Off {
		t.Error("dark pixels should stay off")
	}
}
