// Package series parses per-instance DICOM metadata, extracts the 2-D slices
// of a medical-imaging series (including Siemens mosaic and UIH tiled frame
// explosion), assembles them into a consistent 3-D or 4-D grid, and drives the
// conversion to a NIfTI-1 byte stream.
package series

import "github.com/mrsinham/dicom2nifti/internal/neuro"

// Slice describes one 2-D tile within the assembled volume: which frame of
// which instance it comes from, its sub-window inside the decoded frame, and
// its 3-D placement.
type Slice struct {
	instanceIndex  int
	frameNumber    int
	instanceNumber int32

	x, y          int
	width, height int

	origin [3]float64
	normal [3]float64

	hasAcquisitionTime bool
	acquisitionTime    float64

	// origin . normal, cached at construction
	projectionAlongNormal float64
}

// NewSlice creates a slice. The normal must be the unit normal of the
// producing instance; the projection along it is computed here once.
func NewSlice(instanceIndex, frameNumber int, instanceNumber int32,
	x, y, width, height int, origin, normal [3]float64) Slice {
	return Slice{
		instanceIndex:         instanceIndex,
		frameNumber:           frameNumber,
		instanceNumber:        instanceNumber,
		x:                     x,
		y:                     y,
		width:                 width,
		height:                height,
		origin:                origin,
		normal:                normal,
		projectionAlongNormal: neuro.DotProduct(origin, normal),
	}
}

// InstanceIndex returns the position of the producing instance in its collection.
func (s *Slice) InstanceIndex() int {
	return s.instanceIndex
}

// FrameNumber returns the frame of the producing instance holding the pixels.
func (s *Slice) FrameNumber() int {
	return s.frameNumber
}

// InstanceNumber returns the DICOM instance number of the producing instance.
func (s *Slice) InstanceNumber() int32 {
	return s.instanceNumber
}

// X returns the left edge of the sub-window inside the decoded frame.
func (s *Slice) X() int {
	return s.x
}

// Y returns the top edge of the sub-window inside the decoded frame.
func (s *Slice) Y() int {
	return s.y
}

// Width returns the pixel width of the slice.
func (s *Slice) Width() int {
	return s.width
}

// Height returns the pixel height of the slice.
func (s *Slice) Height() int {
	return s.height
}

// Origin returns the 3-D position of the first pixel of the slice.
func (s *Slice) Origin() [3]float64 {
	return s.origin
}

// Normal returns the unit normal inherited from the producing instance.
func (s *Slice) Normal() [3]float64 {
	return s.normal
}

// ProjectionAlongNormal returns origin . normal, the slice sort key.
func (s *Slice) ProjectionAlongNormal() float64 {
	return s.projectionAlongNormal
}

// SetAcquisitionTime records the DICOM acquisition time of the slice.
func (s *Slice) SetAcquisitionTime(t float64) {
	s.hasAcquisitionTime = true
	s.acquisitionTime = t
}

// AcquisitionTime returns the DICOM acquisition time, if one was recorded.
func (s *Slice) AcquisitionTime() (float64, bool) {
	return s.acquisitionTime, s.hasAcquisitionTime
}
