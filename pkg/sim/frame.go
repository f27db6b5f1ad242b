package sim

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
)

// Frame size limits accepted by the face_frame endpoint.
const (
	MinFrameSize     = 16
	MaxFrameSize     = 1024
	DefaultFrameSize = 480

	frameQuality = 80
)

// LoadSnapshot reads a JPEG or PNG to serve as the face frame.
func LoadSnapshot(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("sim: decode %s: %w", path, err)
	}
	return img, nil
}

// TestPattern draws a stylised face: a light oval with two eyes and a mouth
// on a dark background.
func TestPattern(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			fx, fy := (float64(x)-c)/c, (float64(y)-c)/c
			v := uint8(30 + 40*fy*fy) // background gradient

			if fx*fx/0.45+fy*fy/0.65 < 1 {
				v = 210
				eyeL := math.Hypot(fx+0.25, fy+0.2)
				eyeR := math.Hypot(fx-0.25, fy+0.2)
				mouth := math.Abs(fy-0.35) < 0.05 && math.Abs(fx) < 0.3
				if eyeL < 0.09 || eyeR < 0.09 || mouth {
					v = 40
				}
			}
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// RedFilter puts each pixel's luminance into the red channel and clears the
// others, the way the display wants its face frames tinted.
func RedFilter(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			lum := (299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B)) / 1000
			img.SetRGBA(x, y, color.RGBA{R: uint8(lum), A: 255})
		}
	}
}

// EncodeFrame scales src to size x size, optionally red-filters it, and
// encodes it as JPEG.
func EncodeFrame(src image.Image, size int, red bool) ([]byte, error) {
	if size < MinFrameSize || size > MaxFrameSize {
		return nil, fmt.Errorf("sim: size %d outside %d..%d", size, MinFrameSize, MaxFrameSize)
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	if red {
		RedFilter(dst)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: frameQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
