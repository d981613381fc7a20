package series

import (
	"fmt"
	"math"

	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicom2nifti/internal/neuro"
)

// ExtractSlices explodes the instance into its 2-D slices, tagged with the
// position of the instance in its collection. The strategy depends on the
// vendor: Siemens mosaics and UIH tiled frames are split into their tiles,
// everything else maps frames to slices directly.
func (inst *Instance) ExtractSlices(instanceIndex int) ([]Slice, error) {
	switch {
	case inst.manufacturer == ManufacturerSiemens && inst.csa.Has(csaNumberOfImagesInMosaic):
		return inst.extractSiemensMosaicSlices(instanceIndex)
	case inst.manufacturer == ManufacturerUIH && len(inst.uihFrames) > 0:
		return inst.extractUIHSlices(instanceIndex)
	default:
		return inst.extractGenericSlices(instanceIndex)
	}
}

// extractSiemensMosaicSlices splits a Siemens mosaic into its tiles.
// https://nipy.org/nibabel/dicom/dicom_mosaic.html#dicom-orientation-for-mosaic
func (inst *Instance) extractSiemensMosaicSlices(instanceIndex int) ([]Slice, error) {
	numberOfImagesInMosaic, ok := inst.csa.ParseUnsignedInteger32(csaNumberOfImagesInMosaic)
	if inst.numberOfFrames != 1 || !ok || numberOfImagesInMosaic == 0 {
		return inst.extractGenericSlices(instanceIndex)
	}

	countPerAxis := int(math.Ceil(math.Sqrt(float64(numberOfImagesInMosaic))))

	if inst.width%countPerAxis != 0 ||
		inst.height%countPerAxis != 0 ||
		int(numberOfImagesInMosaic) > countPerAxis*countPerAxis {
		return nil, fmt.Errorf("%w: mosaic image size %dx%d is not divisible into %d tiles",
			neuro.ErrBadFileFormat, inst.width, inst.height, numberOfImagesInMosaic)
	}

	width := inst.width / countPerAxis
	height := inst.height / countPerAxis

	axisX := inst.AxisX()
	axisY := inst.AxisY()

	// Recenter the affine on tile 0
	var origin [3]float64
	dc := float64(inst.width-width) / 2.0
	dr := float64(inst.height-height) / 2.0
	for i := 0; i < 3; i++ {
		origin[i] = inst.position[i] +
			axisX[i]*inst.pixelSpacingX*dc +
			axisY[i]*inst.pixelSpacingY*dr
	}

	normalTag, err := inst.csa.Get(csaSliceNormalVector)
	if err != nil {
		return nil, err
	}
	sliceNormalVector, ok := normalTag.ParseVector()
	if !ok || len(sliceNormalVector) != 3 {
		return nil, fmt.Errorf("%w: bad mosaic slice normal vector", neuro.ErrBadFileFormat)
	}
	normal := [3]float64{sliceNormalVector[0], sliceNormalVector[1], sliceNormalVector[2]}

	var slices []Slice
	pos := 0
	for y := 0; y < countPerAxis; y++ {
		for x := 0; x < countPerAxis; x++ {
			if pos < int(numberOfImagesInMosaic) {
				z := inst.voxelSpacingZ * float64(pos)

				slice := NewSlice(instanceIndex, 0, inst.instanceNumber,
					x*width, y*height, width, height,
					[3]float64{
						origin[0] + z*normal[0],
						origin[1] + z*normal[1],
						origin[2] + z*normal[2],
					},
					normal)

				if t, ok := inst.AcquisitionTime(); ok {
					slice.SetAcquisitionTime(t)
				}

				slices = append(slices, slice)
			}
			pos++
		}
	}

	return slices, nil
}

// extractUIHSlices splits a UIH tiled instance into the frames described by
// its per-frame private sequence.
// https://github.com/rordenlab/dcm2niix/issues/225#issuecomment-422645183
func (inst *Instance) extractUIHSlices(instanceIndex int) ([]Slice, error) {
	total := len(inst.uihFrames)
	cols := int(math.Ceil(math.Sqrt(float64(total))))
	if cols <= 0 || inst.numberOfFrames != 1 {
		return nil, fmt.Errorf("%w: unexpected UIH tiled frame layout", neuro.ErrBadFileFormat)
	}

	if inst.width%cols != 0 || total%cols != 0 {
		return nil, fmt.Errorf("%w: UIH tiled image width %d is not divisible into %d columns",
			neuro.ErrBadFileFormat, inst.width, cols)
	}

	rows := total / cols
	if inst.height%rows != 0 {
		return nil, fmt.Errorf("%w: UIH tiled image height %d is not divisible into %d rows",
			neuro.ErrBadFileFormat, inst.height, rows)
	}

	width := inst.width / cols
	height := inst.height / rows

	var slices []Slice
	pos := 0
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			frame := inst.uihFrames[pos]

			origin, okOrigin := lookupFloats(frame, tag.ImagePositionPatient)
			acquisitionTime, okTime := lookupFloats(frame, tag.AcquisitionTime)
			if !okOrigin || !okTime || len(origin) != 3 || len(acquisitionTime) != 1 {
				return nil, fmt.Errorf("%w: UIH frame %d misses its position or time", neuro.ErrBadFileFormat, pos)
			}

			slice := NewSlice(instanceIndex, 0, inst.instanceNumber,
				x*width, y*height, width, height,
				[3]float64{origin[0], origin[1], origin[2]},
				inst.normal)
			slice.SetAcquisitionTime(acquisitionTime[0])

			slices = append(slices, slice)
			pos++
		}
	}

	return slices, nil
}

// extractGenericSlices maps each frame of the instance to one slice covering
// the whole image.
func (inst *Instance) extractGenericSlices(instanceIndex int) ([]Slice, error) {
	if inst.numberOfFrames != 1 {
		// This is the case of RT-DOSE
		frameOffset, ok := lookupFloats(inst.dataset, tag.GridFrameOffsetVector)
		if !ok || len(frameOffset) != inst.numberOfFrames {
			return nil, fmt.Errorf("%w: cannot detect the 3D coordinates in a multiframe instance",
				neuro.ErrNotImplemented)
		}

		slices := make([]Slice, 0, inst.numberOfFrames)
		for frame := 0; frame < inst.numberOfFrames; frame++ {
			z := frameOffset[frame]
			slice := NewSlice(instanceIndex, frame, inst.instanceNumber,
				0, 0, inst.width, inst.height,
				[3]float64{
					inst.position[0] + z*inst.normal[0],
					inst.position[1] + z*inst.normal[1],
					inst.position[2] + z*inst.normal[2],
				},
				inst.normal)

			if t, ok := inst.AcquisitionTime(); ok {
				slice.SetAcquisitionTime(t)
			}
			slices = append(slices, slice)
		}
		return slices, nil
	}

	slice := NewSlice(instanceIndex, 0, inst.instanceNumber,
		0, 0, inst.width, inst.height, inst.position, inst.normal)
	if t, ok := inst.AcquisitionTime(); ok {
		slice.SetAcquisitionTime(t)
	}
	return []Slice{slice}, nil
}
