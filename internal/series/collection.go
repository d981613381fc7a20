package series

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mrsinham/dicom2nifti/internal/imaging"
	"github.com/mrsinham/dicom2nifti/internal/neuro"
	"github.com/mrsinham/dicom2nifti/internal/nifti"
)

// projectionTolerance is the absolute tolerance used when comparing slice
// projections along the acquisition normal.
const projectionTolerance = 0.0001

// Collection owns the ordered instances of one series, paired with the
// external identifiers of the host.
type Collection struct {
	instances []*Instance
	ids       []string
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{}
}

// AddInstance appends an instance and its external identifier.
func (c *Collection) AddInstance(instance *Instance, id string) error {
	if instance == nil {
		return fmt.Errorf("%w: nil instance", neuro.ErrNullPointer)
	}
	c.instances = append(c.instances, instance)
	c.ids = append(c.ids, id)
	return nil
}

// Size returns the number of instances.
func (c *Collection) Size() int {
	return len(c.instances)
}

// Instance returns the instance at index.
func (c *Collection) Instance(index int) (*Instance, error) {
	if index < 0 || index >= len(c.instances) {
		return nil, fmt.Errorf("%w: no instance %d", neuro.ErrParameterOutOfRange, index)
	}
	return c.instances[index], nil
}

// ID returns the external identifier of the instance at index.
func (c *Collection) ID(index int) (string, error) {
	if index < 0 || index >= len(c.ids) {
		return "", fmt.Errorf("%w: no instance %d", neuro.ErrParameterOutOfRange, index)
	}
	return c.ids[index], nil
}

// MultiBandFactor returns the largest multi-band factor over the instances.
func (c *Collection) MultiBandFactor() int {
	factor := 0
	for _, instance := range c.instances {
		if f := instance.MultiBandFactor(); f > factor {
			factor = f
		}
	}
	return factor
}

// extractSlices gathers the slices of every instance, each tagged with the
// index of its instance.
func (c *Collection) extractSlices() ([]Slice, error) {
	var slices []Slice
	for i, instance := range c.instances {
		extracted, err := instance.ExtractSlices(i)
		if err != nil {
			return nil, err
		}
		slices = append(slices, extracted...)
	}
	return slices, nil
}

// CreateNiftiHeader sorts and validates the slices of the collection, builds
// the NIfTI descriptor, and returns the ordered slice plan: outer loop over
// acquisitions, inner loop over z-positions.
func (c *Collection) CreateNiftiHeader() (*nifti.Image, []Slice, error) {
	sortedSlices, err := c.extractSlices()
	if err != nil {
		return nil, nil, err
	}
	if len(sortedSlices) == 0 {
		return nil, nil, fmt.Errorf("%w: empty collection", neuro.ErrParameterOutOfRange)
	}

	sort.Slice(sortedSlices, func(i, j int) bool {
		a, b := &sortedSlices[i], &sortedSlices[j]
		if a.ProjectionAlongNormal() < b.ProjectionAlongNormal() {
			return true
		}
		if a.ProjectionAlongNormal() > b.ProjectionAlongNormal() {
			return false
		}
		return a.InstanceNumber() < b.InstanceNumber()
	})

	// Count the acquisitions sharing the first z-plane
	numberOfAcquisitions := 1
	for numberOfAcquisitions < len(sortedSlices) &&
		neuro.IsNearTolerance(sortedSlices[0].ProjectionAlongNormal(),
			sortedSlices[numberOfAcquisitions].ProjectionAlongNormal(), projectionTolerance) {
		numberOfAcquisitions++
	}

	if len(sortedSlices)%numberOfAcquisitions != 0 {
		return nil, nil, fmt.Errorf("%w: inconsistent number of acquisitions", neuro.ErrParameterOutOfRange)
	}

	acquisitionLength := len(sortedSlices) / numberOfAcquisitions

	// Consecutive z-planes must be distinct
	for i := 1; i < acquisitionLength; i++ {
		if neuro.IsNearTolerance(sortedSlices[(i-1)*numberOfAcquisitions].ProjectionAlongNormal(),
			sortedSlices[i*numberOfAcquisitions].ProjectionAlongNormal(), projectionTolerance) {
			return nil, nil, fmt.Errorf("%w: ambiguity in the 3D locations", neuro.ErrParameterOutOfRange)
		}
	}

	// All the slices of one z-plane must share its projection and carry
	// distinct instance numbers
	for i := 0; i < acquisitionLength; i++ {
		for j := 1; j < numberOfAcquisitions; j++ {
			for k := 0; k < j; k++ {
				if sortedSlices[i*numberOfAcquisitions+k].InstanceNumber() ==
					sortedSlices[i*numberOfAcquisitions+j].InstanceNumber() {
					return nil, nil, fmt.Errorf("%w: ambiguity in the instance numbers", neuro.ErrParameterOutOfRange)
				}
			}

			if !neuro.IsNearTolerance(sortedSlices[i*numberOfAcquisitions].ProjectionAlongNormal(),
				sortedSlices[i*numberOfAcquisitions+j].ProjectionAlongNormal(), projectionTolerance) {
				return nil, nil, fmt.Errorf("%w: ambiguity in the 3D locations", neuro.ErrParameterOutOfRange)
			}
		}
	}

	firstInstance := c.instances[sortedSlices[0].InstanceIndex()]

	img, err := initializeNiftiHeader(firstInstance)
	if err != nil {
		return nil, nil, err
	}

	img.Nx = sortedSlices[0].Width()
	img.Ny = sortedSlices[0].Height()
	img.Dx = firstInstance.PixelSpacingX()
	img.Dy = firstInstance.PixelSpacingY()

	if numberOfAcquisitions >= len(sortedSlices) {
		img.Dz = firstInstance.VoxelSpacingZ()
	} else {
		img.Dz = sortedSlices[numberOfAcquisitions].ProjectionAlongNormal() -
			sortedSlices[0].ProjectionAlongNormal()
	}
	if img.Dz <= 0 {
		return nil, nil, fmt.Errorf("%w: non-positive slice spacing", neuro.ErrInternalError)
	}

	if acquisitionLength == 1 || numberOfAcquisitions == 1 {
		img.NDim = 3
		img.Nz = max(numberOfAcquisitions, acquisitionLength)
	} else {
		img.NDim = 4
		img.Nz = acquisitionLength
		img.Nt = numberOfAcquisitions

		if err := computeTemporalSpacing(img, firstInstance, sortedSlices); err != nil {
			return nil, nil, err
		}
	}

	dim := img.Dim()
	img.NVox = 1
	for i := 0; i < img.NDim; i++ {
		img.NVox *= int(dim[i+1])
	}

	img.PixDim[1] = img.Dx
	img.PixDim[2] = img.Dy
	img.PixDim[3] = img.Dz

	img.SliceCode = firstInstance.DetectSiemensSliceCode()

	axisX := firstInstance.AxisX()
	axisY := firstInstance.AxisY()
	normal := sortedSlices[0].Normal()
	origin := sortedSlices[0].Origin()
	for i := 0; i < 3; i++ {
		img.StoXYZ[i][0] = axisX[i] * img.Dx
		img.StoXYZ[i][1] = axisY[i] * img.Dy
		img.StoXYZ[i][2] = normal[i] * img.Dz
		img.StoXYZ[i][3] = origin[i]
	}

	img.ConvertDicomToNifti()
	img.ComputeQuaternion()

	switch firstInstance.PhaseEncodingDirection() {
	case PhaseEncodingRow:
		img.PhaseDim, img.FreqDim, img.SliceDim = 1, 2, 3
	case PhaseEncodingColumn:
		img.PhaseDim, img.FreqDim, img.SliceDim = 2, 1, 3
	case PhaseEncodingNone:
		img.PhaseDim, img.FreqDim, img.SliceDim = 0, 0, 0
	default:
		return nil, nil, fmt.Errorf("%w: unexpected phase-encoding direction", neuro.ErrInternalError)
	}

	if err := c.writeDescription(img, sortedSlices); err != nil {
		return nil, nil, err
	}

	// Transpose the (z, acquisition) grid into the output order
	plan := make([]Slice, 0, len(sortedSlices))
	for j := 0; j < numberOfAcquisitions; j++ {
		for i := 0; i < acquisitionLength; i++ {
			plan = append(plan, sortedSlices[i*numberOfAcquisitions+j])
		}
	}

	return img, plan, nil
}

// initializeNiftiHeader seeds the descriptor from the first instance.
func initializeNiftiHeader(instance *Instance) (*nifti.Image, error) {
	img := &nifti.Image{
		SclSlope:  instance.RescaleSlope(),
		SclInter:  instance.RescaleIntercept(),
		XYZUnits:  nifti.UnitsMillimeter,
		TimeUnits: nifti.UnitsSecond,
		NiftiType: nifti.FileTypeSingle,
		QformCode: nifti.XFormScannerAnat,
		SformCode: nifti.XFormScannerAnat,
	}

	switch instance.PixelFormat() {
	case imaging.FormatGrayscale16:
		// dcm2niix uses a signed type in this situation, which is wrong
		img.Datatype = nifti.TypeUint16
		img.NBytesPerVoxel = 2
	case imaging.FormatSignedGrayscale16:
		img.Datatype = nifti.TypeInt16
		img.NBytesPerVoxel = 2
	default:
		return nil, fmt.Errorf("%w: unsupported pixel format %s", neuro.ErrNotImplemented, instance.PixelFormat())
	}

	return img, nil
}

// computeTemporalSpacing fills pixdim[4] of a 4-D image. Philips series
// derive it from the acquisition times; otherwise the repetition time is
// used, and 1 second is the last resort.
func computeTemporalSpacing(img *nifti.Image, firstInstance *Instance, sortedSlices []Slice) error {
	if t0, ok := sortedSlices[0].AcquisitionTime(); ok &&
		firstInstance.Manufacturer() == ManufacturerPhilips {
		// Check out "trDiff0" in "nii_dicom_batch.cpp" of dcm2niix
		a, err := neuro.FixDicomTime(t0)
		if err != nil {
			return err
		}

		maxTimeDifference := 0.0
		for i := 1; i < len(sortedSlices); i++ {
			if t, ok := sortedSlices[i].AcquisitionTime(); ok {
				b, err := neuro.FixDicomTime(t)
				if err != nil {
					return err
				}
				if b-a > maxTimeDifference {
					maxTimeDifference = b - a
				}
			}
		}

		if !neuro.IsNear(maxTimeDifference, 0) {
			img.Dt = maxTimeDifference / (float64(img.Nt) - 1.0)
			img.PixDim[4] = img.Dt
			return nil
		}
	}

	repetitionTime, ok, err := firstInstance.LookupRepetitionTime()
	if err != nil {
		return err
	}
	if ok {
		img.Dt = repetitionTime / 1000.0 // conversion to seconds
		img.PixDim[4] = img.Dt
		return nil
	}

	img.Dt = 1
	img.PixDim[4] = 1
	return nil
}

// descriptionWriter accumulates the unique key=value entries of the NIfTI
// description field.
type descriptionWriter struct {
	content []string
	index   map[string]struct{}
}

func newDescriptionWriter() *descriptionWriter {
	return &descriptionWriter{index: make(map[string]struct{})}
}

func (d *descriptionWriter) addString(key, value string) error {
	if _, exists := d.index[key]; exists {
		return fmt.Errorf("%w: the description already has this key: %s", neuro.ErrBadSequenceOfCalls, key)
	}
	d.content = append(d.content, key+"="+value)
	d.index[key] = struct{}{}
	return nil
}

func (d *descriptionWriter) addDouble(key string, value float64, format string) error {
	return d.addString(key, fmt.Sprintf(format, value))
}

func (d *descriptionWriter) write(img *nifti.Image) {
	img.Descrip = strings.Join(d.content, ";")
}

// writeDescription fills the description field with the echo time, the
// acquisition time, the phase-encoding polarity and the multi-band factor.
func (c *Collection) writeDescription(img *nifti.Image, sortedSlices []Slice) error {
	hasAcquisitionTime := false
	var lowestAcquisitionTime, highestAcquisitionTime float64

	for i := range sortedSlices {
		if t, ok := sortedSlices[i].AcquisitionTime(); ok {
			if hasAcquisitionTime {
				lowestAcquisitionTime = min(lowestAcquisitionTime, t)
				highestAcquisitionTime = max(highestAcquisitionTime, t)
			} else {
				hasAcquisitionTime = true
				lowestAcquisitionTime = t
				highestAcquisitionTime = t
			}
		}
	}

	description := newDescriptionWriter()

	firstInstance := c.instances[sortedSlices[0].InstanceIndex()]

	if echoTime, ok := firstInstance.EchoTime(); ok {
		if err := description.addDouble("TE", echoTime, "%.2g"); err != nil {
			return err
		}
	}

	if hasAcquisitionTime {
		t := lowestAcquisitionTime
		if firstInstance.Modality() == ModalityPET {
			t = highestAcquisitionTime
		}
		if err := description.addDouble("Time", t, "%.3f"); err != nil {
			return err
		}
	}

	if positive, ok := firstInstance.CSA().ParseUnsignedInteger32(csaPhaseEncodingDirectionPositive); ok {
		if err := description.addString("phase", fmt.Sprintf("%d", positive)); err != nil {
			return err
		}
	}

	if multiBandFactor := c.MultiBandFactor(); multiBandFactor > 1 {
		if err := description.addString("mb", fmt.Sprintf("%d", multiBandFactor)); err != nil {
			return err
		}
	}

	description.write(img)
	return nil
}
