package nifti

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mrsinham/dicom2nifti/internal/neuro"
)

// Header is the on-disk NIfTI-1 header, 348 bytes little-endian.
// https://nifti.nimh.nih.gov/pub/dist/src/niftilib/nifti1.h
type Header struct {
	SizeofHdr          int32
	UnusedDataType     [10]byte
	UnusedDBName       [18]byte
	UnusedExtents      int32
	UnusedSessionError int16
	UnusedRegular      byte
	DimInfo            byte

	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     int8
	XyztUnits     int8
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	UnusedGlmax   int32
	UnusedGlmin   int32

	Descrip [80]byte
	AuxFile [24]byte

	QformCode int16
	SformCode int16

	QuaternB float32
	QuaternC float32
	QuaternD float32
	QoffsetX float32
	QoffsetY float32
	QoffsetZ float32

	SrowX [4]float32
	SrowY [4]float32
	SrowZ [4]float32

	IntentName [16]byte

	Magic [4]byte
}

// Encode serializes the header to its little-endian on-disk form.
func (h *Header) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("%w: %v", neuro.ErrInternalError, err)
	}
	if buf.Len() != HeaderSize {
		return nil, fmt.Errorf("%w: serialized NIfTI header is %d bytes", neuro.ErrInternalError, buf.Len())
	}
	return buf.Bytes(), nil
}

// DecodeHeader reads a NIfTI-1 header back from the first 348 bytes of a
// serialized image.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: buffer too small for a NIfTI header", neuro.ErrBadFileFormat)
	}

	var header Header
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", neuro.ErrBadFileFormat, err)
	}
	if header.SizeofHdr != HeaderSize {
		return nil, fmt.Errorf("%w: bad sizeof_hdr %d", neuro.ErrBadFileFormat, header.SizeofHdr)
	}

	return &header, nil
}

// Description returns the descrip field cropped at the first NUL.
func (h *Header) Description() string {
	for i, b := range h.Descrip {
		if b == 0 {
			return string(h.Descrip[:i])
		}
	}
	return string(h.Descrip[:])
}
