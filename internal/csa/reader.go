// Package csa decodes the Siemens CSA private header, the "SV10" binary
// container embedded in DICOM tag (0029,1010).
package csa

import (
	"fmt"

	"github.com/mrsinham/dicom2nifti/internal/neuro"
)

// Reader is a little-endian cursor over an immutable byte buffer. Any
// operation that would advance past the end fails with ErrBadFileFormat.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a cursor positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current cursor offset.
func (r *Reader) Position() int {
	return r.pos
}

// ReadUint32 consumes four bytes as a little-endian 32-bit unsigned integer.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("%w: truncated 32-bit integer", neuro.ErrBadFileFormat)
	}
	v := uint32(r.data[r.pos]) |
		uint32(r.data[r.pos+1])<<8 |
		uint32(r.data[r.pos+2])<<16 |
		uint32(r.data[r.pos+3])<<24
	r.pos += 4
	return v, nil
}

// ReadBlock consumes a fixed-length block of bytes, returning a copy.
func (r *Reader) ReadBlock(size int) ([]byte, error) {
	if size < 0 || r.pos+size > len(r.data) {
		return nil, fmt.Errorf("%w: truncated block of %d bytes", neuro.ErrBadFileFormat, size)
	}
	block := make([]byte, size)
	copy(block, r.data[r.pos:r.pos+size])
	r.pos += size
	return block, nil
}

// ReadNullTerminatedString scans to the first zero byte, advances past it, and
// returns the enclosed bytes. A missing terminator is a format error.
func (r *Reader) ReadNullTerminatedString() (string, error) {
	for i := r.pos; i < len(r.data); i++ {
		if r.data[i] == 0 {
			s := string(r.data[r.pos:i])
			r.pos = i + 1
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unterminated string", neuro.ErrBadFileFormat)
}

// Skip advances the cursor by the given number of bytes.
func (r *Reader) Skip(count int) error {
	if count < 0 || r.pos+count > len(r.data) {
		return fmt.Errorf("%w: cannot skip %d bytes", neuro.ErrBadFileFormat, count)
	}
	r.pos += count
	return nil
}
