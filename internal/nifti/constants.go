// Package nifti models the NIfTI-1 single-file format: the 348-byte header,
// the voxel-to-millimeter orientation math, and the sequential byte writer.
package nifti

// Data type codes of the NIfTI-1 header.
const (
	TypeInt16  = 4
	TypeUint16 = 512
)

// Spatial and temporal unit codes.
const (
	UnitsMillimeter = 2
	UnitsSecond     = 8
)

// Orientation codes for qform_code and sform_code.
const (
	XFormScannerAnat = 1
)

// Slice timing order codes.
const (
	SliceUnknown = 0
	SliceSeqInc  = 1
	SliceSeqDec  = 2
	SliceAltInc  = 3
	SliceAltDec  = 4
	SliceAltInc2 = 5
	SliceAltDec2 = 6
)

// FileTypeSingle marks the single-file ".nii" layout.
const FileTypeSingle = 1

// HeaderSize is the on-disk byte size of the NIfTI-1 header; VoxOffset is
// where the pixel payload of a single-file image starts.
const (
	HeaderSize = 348
	VoxOffset  = 352
)
