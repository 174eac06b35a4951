// Package overlay draws planned paths onto RGB rasters.
package overlay

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"

	"motion-planner/occupancy"
	"motion-planner/planner"
)

// Red is the default line color.
var Red = color.RGBA{R: 255, A: 255}

// DefaultMarkerRadius is the default half-size of the square painted around each line pixel.
const DefaultMarkerRadius = 1

// Options control how a path is drawn.
type Options struct {
	LineColor    color.RGBA `json:"line_color"`
	MarkerRadius int        `json:"marker_radius"`
}

// NewDefaultOptions draws pure red lines with a 3x3 marker per pixel.
func NewDefaultOptions() Options {
	return Options{LineColor: Red, MarkerRadius: DefaultMarkerRadius}
}

// canvas is something pixels can be painted on; writes outside the canvas are dropped.
type canvas interface {
	set(col, row int)
}

type rgbCanvas struct {
	pix           []byte
	width, height int
	c             color.RGBA
}

func (cv *rgbCanvas) set(col, row int) {
	if col < 0 || col >= cv.width || row < 0 || row >= cv.height {
		return
	}
	i := 3 * (row*cv.width + col)
	cv.pix[i], cv.pix[i+1], cv.pix[i+2] = cv.c.R, cv.c.G, cv.c.B
}

type imageCanvas struct {
	img *image.RGBA
	c   color.RGBA
}

func (cv *imageCanvas) set(col, row int) {
	p := image.Pt(col, row).Add(cv.img.Rect.Min)
	if !p.In(cv.img.Rect) {
		return
	}
	cv.img.SetRGBA(p.X, p.Y, cv.c)
}

// Render draws path onto the row-major RGB buffer pix of size width x height and returns it.
// Every pixel is overwritten with the line color, so rendering the same path twice gives the
// same buffer. Pixels outside the raster are skipped.
func Render(path planner.Path, pix []byte, width, height int, opts Options) ([]byte, error) {
	if width <= 0 || height <= 0 || len(pix) != 3*width*height {
		return nil, errors.Wrapf(occupancy.ErrBadDimensions, "buffer of %d bytes for %dx%d RGB", len(pix), width, height)
	}
	if opts.MarkerRadius < 0 {
		return nil, errors.Errorf("marker radius %d must not be negative", opts.MarkerRadius)
	}
	draw(&rgbCanvas{pix: pix, width: width, height: height, c: opts.LineColor}, path, width, height, opts.MarkerRadius)
	return pix, nil
}

// RenderImage draws path onto img in place.
func RenderImage(path planner.Path, img *image.RGBA, opts Options) error {
	if opts.MarkerRadius < 0 {
		return errors.Errorf("marker radius %d must not be negative", opts.MarkerRadius)
	}
	draw(&imageCanvas{img: img, c: opts.LineColor}, path, img.Rect.Dx(), img.Rect.Dy(), opts.MarkerRadius)
	return nil
}

func draw(cv canvas, path planner.Path, width, height, radius int) {
	// pixels farther out than this cannot reach the raster even with a marker
	margin := float64(radius + 1)
	minX, minY := -margin, -margin
	maxX, maxY := float64(width-1)+margin, float64(height-1)+margin

	switch len(path) {
	case 0:
		return
	case 1:
		s := path[0]
		if s.X < minX || s.X > maxX || s.Y < minY || s.Y > maxY || math.IsNaN(s.X) || math.IsNaN(s.Y) {
			return
		}
		col, row := occupancy.Pixel(s.X, s.Y)
		marker(cv, col, row, radius)
		return
	}
	for i := 1; i < len(path); i++ {
		x0, y0, x1, y1, ok := clipSegment(path[i-1].X, path[i-1].Y, path[i].X, path[i].Y, minX, minY, maxX, maxY)
		if !ok {
			continue
		}
		c0, r0 := occupancy.Pixel(x0, y0)
		c1, r1 := occupancy.Pixel(x1, y1)
		Line(c0, r0, c1, r1, func(col, row int) {
			marker(cv, col, row, radius)
		})
	}
}

// clipSegment clips the segment (x0, y0)-(x1, y1) to the rectangle [minX, maxX] x [minY, maxY]
// with the Liang-Barsky algorithm. ok is false when nothing of the segment is inside or when a
// coordinate is NaN or infinite. Endpoints already inside are returned unchanged.
func clipSegment(x0, y0, x1, y1, minX, minY, maxX, maxY float64) (float64, float64, float64, float64, bool) {
	for _, v := range [4]float64{x0, y0, x1, y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, 0, 0, false
		}
	}
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0
	for _, edge := range [4][2]float64{
		{-dx, x0 - minX},
		{dx, maxX - x0},
		{-dy, y0 - minY},
		{dy, maxY - y0},
	} {
		p, q := edge[0], edge[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			if r < t1 {
				t1 = r
			}
		}
	}
	cx0, cy0, cx1, cy1 := x0, y0, x1, y1
	if t0 > 0 {
		cx0, cy0 = x0+t0*dx, y0+t0*dy
	}
	if t1 < 1 {
		cx1, cy1 = x0+t1*dx, y0+t1*dy
	}
	return cx0, cy0, cx1, cy1, true
}

// marker paints the (2r+1)x(2r+1) square centered on (col, row).
func marker(cv canvas, col, row, radius int) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			cv.set(col+dx, row+dy)
		}
	}
}

// Line calls plot for every pixel of the Bresenham line from (x0, y0) to (x1, y1), both ends
// included, in order from the first end to the second.
func Line(x0, y0, x1, y1 int, plot func(col, row int)) {
	dx, sx := abs(x1-x0), 1
	if x0 > x1 {
		sx = -1
	}
	dy, sy := -abs(y1-y0), 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	x, y := x0, y0
	for {
		plot(x, y)
		if x == x1 && y == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
