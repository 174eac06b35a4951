// Package occupancy classifies the pixels of an RGB raster into free and blocked space.
package occupancy

import (
	"image"
	"image/draw"
	"math"

	"github.com/pkg/errors"
)

// DefaultFreeThreshold is the brightness (0-255) at or above which a pixel is free.
const DefaultFreeThreshold = 200

// ErrBadDimensions is returned when a field is built with a non-positive size or a buffer that does
// not hold width*height RGB triplets.
var ErrBadDimensions = errors.New("occupancy: invalid raster dimensions")

// Field is a read-only view over a row-major RGB pixel buffer.
type Field struct {
	pix       []byte
	width     int
	height    int
	threshold uint8
}

// New wraps pix, which must hold width*height RGB triplets in row-major order. The buffer is not
// copied and must not be modified while the field is in use.
func New(pix []byte, width, height int, threshold uint8) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrBadDimensions, "%dx%d", width, height)
	}
	if len(pix) != 3*width*height {
		return nil, errors.Wrapf(ErrBadDimensions, "buffer of %d bytes for %dx%d RGB", len(pix), width, height)
	}
	return &Field{pix: pix, width: width, height: height, threshold: threshold}, nil
}

// FromImage converts img to an RGB buffer and wraps it.
func FromImage(img image.Image, threshold uint8) (*Field, error) {
	pix, w, h := RGBFromImage(img)
	return New(pix, w, h, threshold)
}

// RGBFromImage flattens any image into a row-major RGB buffer, dropping alpha.
func RGBFromImage(img image.Image) ([]byte, int, int) {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, 0, 3*w*h)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+4*w]
		for x := 0; x < w; x++ {
			pix = append(pix, row[4*x], row[4*x+1], row[4*x+2])
		}
	}
	return pix, w, h
}

// Pixel maps continuous coordinates to the pixel (col, row) they fall on, rounding half away from
// zero. Validity checking and rendering both go through this so they agree at the borders.
func Pixel(x, y float64) (int, int) {
	return int(math.Round(x)), int(math.Round(y))
}

// Width of the field in pixels.
func (f *Field) Width() int { return f.width }

// Height of the field in pixels.
func (f *Field) Height() int { return f.height }

// Threshold is the brightness at or above which a pixel is free.
func (f *Field) Threshold() uint8 { return f.threshold }

// Bounds returns the pixel rectangle covered by the field.
func (f *Field) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.width, f.height)
}

// In reports whether the pixel lies inside the field.
func (f *Field) In(col, row int) bool {
	return col >= 0 && col < f.width && row >= 0 && row < f.height
}

// Brightness is the max channel intensity of the pixel. The pixel must be in range.
func (f *Field) Brightness(col, row int) uint8 {
	i := 3 * (row*f.width + col)
	r, g, b := f.pix[i], f.pix[i+1], f.pix[i+2]
	return max(r, g, b)
}

// IsFreePixel reports whether the pixel is in range and bright enough.
func (f *Field) IsFreePixel(col, row int) bool {
	if !f.In(col, row) {
		return false
	}
	return f.Brightness(col, row) >= f.threshold
}

// IsFree reports whether the continuous point (x, y) lies on a free pixel.
func (f *Field) IsFree(x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	col, row := Pixel(x, y)
	return f.IsFreePixel(col, row)
}

// FreeCount returns the number of free pixels.
func (f *Field) FreeCount() int {
	n := 0
	for row := 0; row < f.height; row++ {
		for col := 0; col < f.width; col++ {
			if f.Brightness(col, row) >= f.threshold {
				n++
			}
		}
	}
	return n
}
