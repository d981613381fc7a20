package nifti

import (
	"fmt"

	"github.com/mrsinham/dicom2nifti/internal/neuro"
)

// Image is the in-memory NIfTI descriptor built by the volume assembler.
// Geometry is kept in double precision until serialization.
type Image struct {
	NDim           int
	Nx, Ny, Nz, Nt int
	NVox           int

	Datatype       int
	NBytesPerVoxel int

	Dx, Dy, Dz, Dt float64
	QFac           float64
	PixDim         [8]float64

	SclSlope float64
	SclInter float64

	StoXYZ [4][4]float64

	QuaternB, QuaternC, QuaternD float64
	QoffsetX, QoffsetY, QoffsetZ float64

	FreqDim  int
	PhaseDim int
	SliceDim int

	SliceCode int
	XYZUnits  int
	TimeUnits int
	NiftiType int

	QformCode int
	SformCode int

	Descrip string
}

// Dim returns the dim[0..7] array of the image: the number of dimensions
// followed by the extent of each axis.
func (img *Image) Dim() [8]int16 {
	var dim [8]int16
	dim[0] = int16(img.NDim)
	dim[1] = int16(img.Nx)
	dim[2] = int16(img.Ny)
	dim[3] = int16(img.Nz)
	dim[4] = int16(img.Nt)
	return dim
}

// ToHeader serializes the image descriptor to the on-disk structure. Only the
// single-file layout is supported.
func (img *Image) ToHeader() (*Header, error) {
	if img.NiftiType != FileTypeSingle {
		return nil, fmt.Errorf("%w: only single-file NIfTI-1 output is supported", neuro.ErrParameterOutOfRange)
	}

	header := &Header{
		SizeofHdr: HeaderSize,
		Dim:       img.Dim(),
		Datatype:  int16(img.Datatype),
		Bitpix:    int16(8 * img.NBytesPerVoxel),
		VoxOffset: VoxOffset,
		SclSlope:  float32(img.SclSlope),
		SclInter:  float32(img.SclInter),
		SliceCode: int8(img.SliceCode),
		XyztUnits: int8((img.XYZUnits & 0x07) | (img.TimeUnits & 0x38)),
		QformCode: int16(img.QformCode),
		SformCode: int16(img.SformCode),
		Magic:     [4]byte{'n', '+', '1', 0},
	}

	header.DimInfo = byte((img.FreqDim & 0x03) |
		((img.PhaseDim & 0x03) << 2) |
		((img.SliceDim & 0x03) << 4))

	for i := 0; i < 8; i++ {
		header.Pixdim[i] = float32(img.PixDim[i])
	}

	if img.QformCode > 0 {
		header.QuaternB = float32(img.QuaternB)
		header.QuaternC = float32(img.QuaternC)
		header.QuaternD = float32(img.QuaternD)
		header.QoffsetX = float32(img.QoffsetX)
		header.QoffsetY = float32(img.QoffsetY)
		header.QoffsetZ = float32(img.QoffsetZ)
		if img.QFac >= 0 {
			header.Pixdim[0] = 1
		} else {
			header.Pixdim[0] = -1
		}
	}

	if img.SformCode > 0 {
		for c := 0; c < 4; c++ {
			header.SrowX[c] = float32(img.StoXYZ[0][c])
			header.SrowY[c] = float32(img.StoXYZ[1][c])
			header.SrowZ[c] = float32(img.StoXYZ[2][c])
		}
	}

	// Truncate to the field size, keeping the trailing NUL
	descrip := img.Descrip
	if len(descrip) > len(header.Descrip)-1 {
		descrip = descrip[:len(header.Descrip)-1]
	}
	copy(header.Descrip[:], descrip)

	return header, nil
}
