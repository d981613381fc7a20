// Package imaging describes decoded pixel buffers exchanged between the frame
// decoder and the NIfTI writer.
package imaging

import (
	"fmt"

	"github.com/mrsinham/dicom2nifti/internal/neuro"
)

// PixelFormat identifies the memory layout of one pixel.
type PixelFormat int

const (
	// FormatUnknown is the zero value, reported for unsupported layouts.
	FormatUnknown PixelFormat = iota
	// FormatGrayscale8 is one unsigned byte per pixel.
	FormatGrayscale8
	// FormatGrayscale16 is one little-endian unsigned 16-bit word per pixel.
	FormatGrayscale16
	// FormatSignedGrayscale16 is one little-endian signed 16-bit word per pixel.
	FormatSignedGrayscale16
)

// BytesPerPixel returns the pixel stride of the format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatGrayscale8:
		return 1
	case FormatGrayscale16, FormatSignedGrayscale16:
		return 2
	default:
		return 0
	}
}

// String returns a readable name for diagnostics.
func (f PixelFormat) String() string {
	switch f {
	case FormatGrayscale8:
		return "Grayscale8"
	case FormatGrayscale16:
		return "Grayscale16"
	case FormatSignedGrayscale16:
		return "SignedGrayscale16"
	default:
		return "Unknown"
	}
}

// Region is a rectangular view over decoded pixel bytes. Pitch is the byte
// distance between successive rows and may exceed the packed row size.
type Region struct {
	Width  int
	Height int
	Pitch  int
	Format PixelFormat
	Data   []byte
}

// RowSize returns the packed byte size of one row.
func (r *Region) RowSize() int {
	return r.Width * r.Format.BytesPerPixel()
}

// Row returns the packed bytes of row y.
func (r *Region) Row(y int) []byte {
	start := y * r.Pitch
	return r.Data[start : start+r.RowSize()]
}

// SubRegion returns a view on the (x, y, width, height) window, sharing the
// backing bytes of the parent region.
func (r *Region) SubRegion(x, y, width, height int) (*Region, error) {
	if x < 0 || y < 0 || width < 0 || height < 0 ||
		x+width > r.Width || y+height > r.Height {
		return nil, fmt.Errorf("%w: sub-region (%d,%d %dx%d) outside %dx%d region",
			neuro.ErrParameterOutOfRange, x, y, width, height, r.Width, r.Height)
	}

	bpp := r.Format.BytesPerPixel()
	offset := y*r.Pitch + x*bpp

	return &Region{
		Width:  width,
		Height: height,
		Pitch:  r.Pitch,
		Format: r.Format,
		Data:   r.Data[offset:],
	}, nil
}
