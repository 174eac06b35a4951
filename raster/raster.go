// Package raster reads and writes map images as row-major RGB buffers.
//
// Decoding goes through the image format registry, so anything registered there can be used as a
// map: PNG, JPEG, GIF, BMP and the netpbm formats (PBM, PGM, PPM) are registered by this package.
// Encoding picks the format from the file extension.
package raster

import (
	"image"
	_ "image/gif" // register GIF maps
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jbuchbinder/gopnm" // register netpbm maps
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	_ "golang.org/x/image/bmp" // register BMP maps

	"motion-planner/occupancy"
)

// DecodeError is returned when a map file is missing or cannot be decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return "decode " + e.Path + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError is returned when an image cannot be written.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return "encode " + e.Path + ": " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Decode reads the image at path into a row-major RGB buffer.
func Decode(path string) ([]byte, int, int, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()
	return DecodeReader(path, f)
}

// DecodeReader reads an image from r into a row-major RGB buffer. name is only used in errors.
func DecodeReader(name string, r io.Reader) ([]byte, int, int, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, 0, 0, &DecodeError{Path: name, Err: err}
	}
	pix, w, h := occupancy.RGBFromImage(img)
	if w <= 0 || h <= 0 {
		return nil, 0, 0, &DecodeError{Path: name, Err: errors.Wrapf(occupancy.ErrBadDimensions, "%dx%d", w, h)}
	}
	return pix, w, h, nil
}

// ToImage copies a row-major RGB buffer into an opaque RGBA image.
func ToImage(pix []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(pix) != 3*width*height {
		return nil, errors.Wrapf(occupancy.ErrBadDimensions, "buffer of %d bytes for %dx%d RGB", len(pix), width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(pix); i, j = i+3, j+4 {
		img.Pix[j], img.Pix[j+1], img.Pix[j+2], img.Pix[j+3] = pix[i], pix[i+1], pix[i+2], 0xff
	}
	return img, nil
}

// Encode writes a row-major RGB buffer to path. The format follows the extension: .png, .ppm,
// .jpg or .jpeg. The image is written to a temporary file next to path and renamed on success, so
// a failed encode never leaves a partial file behind.
func Encode(path string, pix []byte, width, height int) error {
	img, err := ToImage(pix, width, height)
	if err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	return WriteImage(path, img)
}

// WriteImage writes img to path, choosing the format from the extension.
func WriteImage(path string, img image.Image) error {
	enc, err := encoderFor(path)
	if err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	if err := writeAtomic(path, func(w io.Writer) error { return enc(w, img) }); err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	return nil
}

// EncodeTo writes img as PNG.
func EncodeTo(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func encoderFor(path string) (func(io.Writer, image.Image) error, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return png.Encode, nil
	case ".ppm":
		return ppm.Encode, nil
	case ".jpg", ".jpeg":
		return func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
		}, nil
	default:
		return nil, errors.Errorf("unsupported output format %q", ext)
	}
}

func writeAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			//nolint:errcheck
			os.Remove(tmp.Name())
		}
	}()

	err = write(tmp)
	err = multierr.Combine(err, tmp.Close())
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
