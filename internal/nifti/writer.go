package nifti

import (
	"bytes"
	"compress/gzip"
	"fmt"

	"github.com/mrsinham/dicom2nifti/internal/imaging"
	"github.com/mrsinham/dicom2nifti/internal/neuro"
)

type writerState int

const (
	writerEmpty writerState = iota
	writerHeadered
	writerFinalized
)

// Writer assembles a NIfTI-1 single-file byte stream: header first, then one
// row-flipped pixel region per slice. Calls must follow the order
// WriteHeader, AddSlice..., Flatten.
type Writer struct {
	state writerState
	buf   bytes.Buffer
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteHeader serializes the header followed by the four padding bytes that
// separate it from the pixel payload. It may be called exactly once.
func (w *Writer) WriteHeader(img *Image) error {
	if w.state != writerEmpty {
		return fmt.Errorf("%w: header already written", neuro.ErrBadSequenceOfCalls)
	}

	header, err := img.ToHeader()
	if err != nil {
		return err
	}

	encoded, err := header.Encode()
	if err != nil {
		return err
	}

	w.buf.Write(encoded)
	w.buf.Write([]byte{0, 0, 0, 0}) // vox_offset is 352, not 348

	w.state = writerHeadered
	return nil
}

// AddSlice appends one pixel region, flipped so that source row height-1
// becomes output row 0, and tightly packed regardless of the source pitch.
func (w *Writer) AddSlice(region *imaging.Region) error {
	if w.state != writerHeadered {
		return fmt.Errorf("%w: AddSlice requires a written header", neuro.ErrBadSequenceOfCalls)
	}

	if region.Width == 0 || region.Height == 0 {
		return nil
	}

	for y := region.Height - 1; y >= 0; y-- {
		w.buf.Write(region.Row(y))
	}

	return nil
}

// Flatten returns the accumulated bytes, gzip-compressed when requested. The
// writer cannot be reused afterwards.
func (w *Writer) Flatten(compress bool) ([]byte, error) {
	if w.state != writerHeadered {
		return nil, fmt.Errorf("%w: Flatten requires a written header", neuro.ErrBadSequenceOfCalls)
	}
	w.state = writerFinalized

	if !compress {
		return w.buf.Bytes(), nil
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(w.buf.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: %v", neuro.ErrInternalError, err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", neuro.ErrInternalError, err)
	}
	return compressed.Bytes(), nil
}
