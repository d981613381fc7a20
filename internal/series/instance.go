package series

import (
	"fmt"
	"log"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicom2nifti/internal/csa"
	"github.com/mrsinham/dicom2nifti/internal/imaging"
	"github.com/mrsinham/dicom2nifti/internal/neuro"
	"github.com/mrsinham/dicom2nifti/internal/nifti"
)

// Manufacturer identifies the scanner vendor of an instance.
type Manufacturer int

const (
	ManufacturerUnknown Manufacturer = iota
	ManufacturerSiemens
	ManufacturerGE
	ManufacturerHitachi
	ManufacturerMediso
	ManufacturerPhilips
	ManufacturerToshiba
	ManufacturerCanon
	ManufacturerUIH
	ManufacturerBruker
)

// String returns the vendor name.
func (m Manufacturer) String() string {
	switch m {
	case ManufacturerSiemens:
		return "Siemens"
	case ManufacturerGE:
		return "GE"
	case ManufacturerHitachi:
		return "Hitachi"
	case ManufacturerMediso:
		return "Mediso"
	case ManufacturerPhilips:
		return "Philips"
	case ManufacturerToshiba:
		return "Toshiba"
	case ManufacturerCanon:
		return "Canon"
	case ManufacturerUIH:
		return "UIH"
	case ManufacturerBruker:
		return "Bruker"
	default:
		return "Unknown"
	}
}

// Modality identifies the imaging modality of an instance.
type Modality int

const (
	ModalityUnknown Modality = iota
	ModalityMR
	ModalityPET
	ModalityCT
)

// String returns the modality name.
func (m Modality) String() string {
	switch m {
	case ModalityMR:
		return "MR"
	case ModalityPET:
		return "PET"
	case ModalityCT:
		return "CT"
	default:
		return "Unknown"
	}
}

// PhaseEncodingDirection is the in-plane phase-encoding axis of an MR
// acquisition.
type PhaseEncodingDirection int

const (
	PhaseEncodingNone PhaseEncodingDirection = iota
	PhaseEncodingRow
	PhaseEncodingColumn
)

// vendor prefixes of the uppercased Manufacturer tag
var manufacturerPrefixes = []struct {
	prefix string
	value  Manufacturer
}{
	{"SI", ManufacturerSiemens},
	{"GE", ManufacturerGE},
	{"HI", ManufacturerHitachi},
	{"ME", ManufacturerMediso},
	{"PH", ManufacturerPhilips},
	{"TO", ManufacturerToshiba},
	{"CA", ManufacturerCanon},
	{"UI", ManufacturerUIH},
	{"BR", ManufacturerBruker},
}

// Instance is the parsed metadata of one DICOM instance. It is immutable
// after construction.
type Instance struct {
	dataset   dicom.Dataset
	csa       *csa.Header
	uihFrames []dicom.Dataset

	manufacturer Manufacturer
	modality     Modality

	instanceNumber int32

	hasEchoTime bool
	echoTime    float64

	hasAcquisitionTime bool
	acquisitionTime    float64

	position    [3]float64
	orientation [6]float64
	normal      [3]float64

	pixelSpacingX float64
	pixelSpacingY float64
	voxelSpacingZ float64

	rescaleSlope     float64
	rescaleIntercept float64

	phaseEncoding PhaseEncodingDirection
	sliceTiming   []float64

	width          int
	height         int
	numberOfFrames int
	format         imaging.PixelFormat
}

// NewInstance parses the metadata of a DICOM tag table. The Siemens CSA
// private blob (0029,1010) and the UIH MR VFrame private sequence (0065,1051)
// are decoded when present.
func NewInstance(ds dicom.Dataset) (*Instance, error) {
	inst := &Instance{
		dataset:   ds,
		csa:       csa.NewHeader(),
		uihFrames: lookupSequence(ds, tagUIHMRVFrameSequence),
	}

	if raw, ok := lookupBytes(ds, tagSiemensCSAHeader); ok {
		header, err := csa.Parse(raw)
		if err != nil {
			return nil, err
		}
		inst.csa = header
	}

	if err := inst.setup(); err != nil {
		return nil, err
	}
	return inst, nil
}

func (inst *Instance) setup() error {
	if number, ok := lookupInt32(inst.dataset, tag.InstanceNumber); ok {
		inst.instanceNumber = number
	} else {
		log.Printf("DICOM instance without an instance number")
	}

	inst.manufacturer = detectManufacturer(inst.dataset)
	inst.modality = detectModality(inst.dataset)

	if v, ok := lookupFloats(inst.dataset, tag.EchoTime); ok && len(v) == 1 {
		inst.hasEchoTime = true
		inst.echoTime = v[0]
	}
	if v, ok := lookupFloats(inst.dataset, tag.AcquisitionTime); ok && len(v) == 1 {
		inst.hasAcquisitionTime = true
		inst.acquisitionTime = v[0]
	}

	if err := inst.parseImagePositionPatient(); err != nil {
		return err
	}
	if err := inst.parseImageOrientationPatient(); err != nil {
		return err
	}
	if err := inst.parsePixelSpacing(); err != nil {
		return err
	}
	if err := inst.parseVoxelSpacingZ(); err != nil {
		return err
	}
	if err := inst.parseRescale(); err != nil {
		return err
	}
	inst.parseSliceTimingSiemens()
	if err := inst.parsePhaseEncodingDirection(); err != nil {
		return err
	}
	return inst.parseImageInformation()
}

func detectManufacturer(ds dicom.Dataset) Manufacturer {
	name, _ := lookupString(ds, tag.Manufacturer)
	name = strings.ToUpper(name)
	for _, candidate := range manufacturerPrefixes {
		if strings.HasPrefix(name, candidate.prefix) {
			return candidate.value
		}
	}
	return ManufacturerUnknown
}

func detectModality(ds dicom.Dataset) Modality {
	name, _ := lookupString(ds, tag.Modality)
	name = strings.ToUpper(name)
	switch {
	case strings.HasPrefix(name, "MR"):
		return ModalityMR
	case strings.HasPrefix(name, "PT"):
		return ModalityPET
	case strings.HasPrefix(name, "CT"):
		return ModalityCT
	default:
		return ModalityUnknown
	}
}

func (inst *Instance) parseImagePositionPatient() error {
	if v, ok := lookupFloats(inst.dataset, tag.ImagePositionPatient); ok {
		if len(v) != 3 {
			return fmt.Errorf("%w: image position is not a 3-vector", neuro.ErrBadFileFormat)
		}
		copy(inst.position[:], v)
	}
	return nil
}

func (inst *Instance) parseImageOrientationPatient() error {
	if v, ok := lookupFloats(inst.dataset, tag.ImageOrientationPatient); ok {
		if len(v) != 6 {
			return fmt.Errorf("%w: image orientation is not a 6-vector", neuro.ErrBadFileFormat)
		}
		copy(inst.orientation[:], v)
	} else {
		// Canonical orientation
		inst.orientation = [6]float64{1, 0, 0, 0, 1, 0}
	}

	inst.normal = neuro.CrossProduct(inst.AxisX(), inst.AxisY())
	return nil
}

func (inst *Instance) parsePixelSpacing() error {
	if v, ok := lookupFloats(inst.dataset, tag.PixelSpacing); ok {
		if len(v) != 2 {
			return fmt.Errorf("%w: pixel spacing is not a 2-vector", neuro.ErrBadFileFormat)
		}
		inst.pixelSpacingX = v[0]
		inst.pixelSpacingY = v[1]
	} else {
		inst.pixelSpacingX = 1
		inst.pixelSpacingY = 1
	}

	if inst.pixelSpacingX <= 0 || inst.pixelSpacingY <= 0 {
		return fmt.Errorf("%w: pixel spacing must be positive", neuro.ErrBadFileFormat)
	}
	return nil
}

func (inst *Instance) parseVoxelSpacingZ() error {
	v, ok := lookupFloats(inst.dataset, tag.SpacingBetweenSlices)
	if !ok {
		v, ok = lookupFloats(inst.dataset, tag.SliceThickness)
	}
	if !ok {
		return fmt.Errorf("%w: unable to determine spacing between slices", neuro.ErrBadFileFormat)
	}
	if len(v) != 1 {
		return fmt.Errorf("%w: bad spacing between slices", neuro.ErrBadFileFormat)
	}
	if v[0] <= 0 {
		return fmt.Errorf("%w: spacing between slices must be positive", neuro.ErrBadFileFormat)
	}
	inst.voxelSpacingZ = v[0]
	return nil
}

func (inst *Instance) parseRescale() error {
	inst.rescaleSlope = 1
	if v, ok := lookupFloats(inst.dataset, tag.RescaleSlope); ok {
		if len(v) != 1 {
			return fmt.Errorf("%w: bad rescale slope", neuro.ErrBadFileFormat)
		}
		inst.rescaleSlope = v[0]
	}

	if inst.manufacturer == ManufacturerPhilips {
		if v, ok := lookupFloats(inst.dataset, tagSliceSlopePhilips); ok {
			if len(v) != 1 || neuro.IsNear(v[0], 0) {
				return fmt.Errorf("%w: bad Philips slice slope", neuro.ErrBadFileFormat)
			}
			inst.rescaleSlope /= v[0] // cf. PMC3998685
		}
	}

	inst.rescaleIntercept = 0
	if v, ok := lookupFloats(inst.dataset, tag.RescaleIntercept); ok {
		if len(v) != 1 {
			return fmt.Errorf("%w: bad rescale intercept", neuro.ErrBadFileFormat)
		}
		inst.rescaleIntercept = v[0]
	}
	return nil
}

func (inst *Instance) parsePhaseEncodingDirection() error {
	s, _ := lookupString(inst.dataset, tag.InPlanePhaseEncodingDirection)
	switch strings.Trim(s, " \x00") {
	case "ROW":
		inst.phaseEncoding = PhaseEncodingRow
	case "COL":
		inst.phaseEncoding = PhaseEncodingColumn
	case "":
		inst.phaseEncoding = PhaseEncodingNone
	default:
		return fmt.Errorf("%w: unsupported phase-encoding direction: %q", neuro.ErrBadFileFormat, s)
	}
	return nil
}

func (inst *Instance) parseSliceTimingSiemens() {
	if v, ok := lookupFloats(inst.dataset, tagSliceTimingSiemens); ok {
		inst.sliceTiming = v
	}
}

func (inst *Instance) parseImageInformation() error {
	width, ok := lookupInt32(inst.dataset, tag.Columns)
	if !ok || width <= 0 {
		return fmt.Errorf("%w: missing image width", neuro.ErrBadFileFormat)
	}
	height, ok := lookupInt32(inst.dataset, tag.Rows)
	if !ok || height <= 0 {
		return fmt.Errorf("%w: missing image height", neuro.ErrBadFileFormat)
	}
	inst.width = int(width)
	inst.height = int(height)

	inst.numberOfFrames = 1
	if frames, ok := lookupInt32(inst.dataset, tag.NumberOfFrames); ok {
		if frames <= 0 {
			return fmt.Errorf("%w: bad number of frames", neuro.ErrBadFileFormat)
		}
		inst.numberOfFrames = int(frames)
	}

	bitsAllocated := int32(16)
	if v, ok := lookupInt32(inst.dataset, tag.BitsAllocated); ok {
		bitsAllocated = v
	}
	pixelRepresentation := int32(0)
	if v, ok := lookupInt32(inst.dataset, tag.PixelRepresentation); ok {
		pixelRepresentation = v
	}
	samplesPerPixel := int32(1)
	if v, ok := lookupInt32(inst.dataset, tag.SamplesPerPixel); ok {
		samplesPerPixel = v
	}

	switch {
	case samplesPerPixel == 1 && bitsAllocated == 16 && pixelRepresentation == 0:
		inst.format = imaging.FormatGrayscale16
	case samplesPerPixel == 1 && bitsAllocated == 16 && pixelRepresentation == 1:
		inst.format = imaging.FormatSignedGrayscale16
	case samplesPerPixel == 1 && bitsAllocated == 8 && pixelRepresentation == 0:
		inst.format = imaging.FormatGrayscale8
	default:
		inst.format = imaging.FormatUnknown
	}
	return nil
}

// Dataset returns the underlying tag table.
func (inst *Instance) Dataset() dicom.Dataset {
	return inst.dataset
}

// CSA returns the parsed Siemens CSA header, empty when the instance has none.
func (inst *Instance) CSA() *csa.Header {
	return inst.csa
}

// UIHFrameCount returns the number of items of the UIH per-frame sequence.
func (inst *Instance) UIHFrameCount() int {
	return len(inst.uihFrames)
}

// UIHFrame returns item index of the UIH per-frame sequence.
func (inst *Instance) UIHFrame(index int) (dicom.Dataset, error) {
	if index < 0 || index >= len(inst.uihFrames) {
		return dicom.Dataset{}, fmt.Errorf("%w: no UIH frame %d", neuro.ErrParameterOutOfRange, index)
	}
	return inst.uihFrames[index], nil
}

// Manufacturer returns the detected scanner vendor.
func (inst *Instance) Manufacturer() Manufacturer {
	return inst.manufacturer
}

// Modality returns the detected imaging modality.
func (inst *Instance) Modality() Modality {
	return inst.modality
}

// InstanceNumber returns the DICOM instance number, 0 when absent.
func (inst *Instance) InstanceNumber() int32 {
	return inst.instanceNumber
}

// EchoTime returns the echo time in milliseconds, if present.
func (inst *Instance) EchoTime() (float64, bool) {
	return inst.echoTime, inst.hasEchoTime
}

// AcquisitionTime returns the DICOM HHMMSS.frac acquisition time, if present.
func (inst *Instance) AcquisitionTime() (float64, bool) {
	return inst.acquisitionTime, inst.hasAcquisitionTime
}

// Position returns the image position (patient).
func (inst *Instance) Position() [3]float64 {
	return inst.position
}

// AxisX returns the direction of image rows.
func (inst *Instance) AxisX() [3]float64 {
	return [3]float64{inst.orientation[0], inst.orientation[1], inst.orientation[2]}
}

// AxisY returns the direction of image columns.
func (inst *Instance) AxisY() [3]float64 {
	return [3]float64{inst.orientation[3], inst.orientation[4], inst.orientation[5]}
}

// Normal returns the slice normal, the cross product of the row and column axes.
func (inst *Instance) Normal() [3]float64 {
	return inst.normal
}

// PixelSpacingX returns the horizontal pixel spacing in millimeters.
func (inst *Instance) PixelSpacingX() float64 {
	return inst.pixelSpacingX
}

// PixelSpacingY returns the vertical pixel spacing in millimeters.
func (inst *Instance) PixelSpacingY() float64 {
	return inst.pixelSpacingY
}

// VoxelSpacingZ returns the inter-slice spacing in millimeters.
func (inst *Instance) VoxelSpacingZ() float64 {
	return inst.voxelSpacingZ
}

// RescaleSlope returns the pixel-value rescale slope.
func (inst *Instance) RescaleSlope() float64 {
	return inst.rescaleSlope
}

// RescaleIntercept returns the pixel-value rescale intercept.
func (inst *Instance) RescaleIntercept() float64 {
	return inst.rescaleIntercept
}

// PhaseEncodingDirection returns the in-plane phase-encoding axis.
func (inst *Instance) PhaseEncodingDirection() PhaseEncodingDirection {
	return inst.phaseEncoding
}

// SliceTiming returns the Siemens slice-timing vector, nil when absent.
func (inst *Instance) SliceTiming() []float64 {
	return inst.sliceTiming
}

// Width returns the stored image width in pixels.
func (inst *Instance) Width() int {
	return inst.width
}

// Height returns the stored image height in pixels.
func (inst *Instance) Height() int {
	return inst.height
}

// NumberOfFrames returns the stored frame count.
func (inst *Instance) NumberOfFrames() int {
	return inst.numberOfFrames
}

// PixelFormat returns the pixel layout of the stored frames.
func (inst *Instance) PixelFormat() imaging.PixelFormat {
	return inst.format
}

// LookupRepetitionTime returns the repetition time in milliseconds, if the
// tag is present. A multi-valued tag is a format error.
func (inst *Instance) LookupRepetitionTime() (float64, bool, error) {
	v, ok := lookupFloats(inst.dataset, tag.RepetitionTime)
	if !ok {
		return 0, false, nil
	}
	if len(v) != 1 {
		return 0, false, fmt.Errorf("%w: bad repetition time", neuro.ErrBadFileFormat)
	}
	return v[0], true, nil
}

// MultiBandFactor counts the slice-timing entries equal to the first entry,
// the number of simultaneously excited slices. It is 0 when the instance has
// no slice-timing vector.
func (inst *Instance) MultiBandFactor() int {
	if len(inst.sliceTiming) == 0 {
		return 0
	}
	count := 0
	for _, t := range inst.sliceTiming {
		if neuro.IsNear(t, inst.sliceTiming[0]) {
			count++
		}
	}
	return count
}

// DetectSiemensSliceCode infers the NIfTI slice timing order from the Siemens
// slice-timing vector.
func (inst *Instance) DetectSiemensSliceCode() int {
	timing := inst.sliceTiming

	countZeros := 0
	for _, t := range timing {
		if neuro.IsNear(t, 0) {
			countZeros++
		}
	}
	if countZeros >= 2 {
		return nifti.SliceUnknown
	}

	minTimeIndex := 0
	for i, t := range timing {
		if t < timing[minTimeIndex] {
			minTimeIndex = i
		}
	}

	size := len(timing)
	switch {
	case minTimeIndex == 1:
		return nifti.SliceAltInc2 // e.g. 3,1,4,2
	case minTimeIndex == size-2:
		return nifti.SliceAltDec2 // e.g. 2,4,1,3 or 5,2,4,1,3
	case size >= 3 && minTimeIndex == 0 && timing[1] < timing[2]:
		return nifti.SliceSeqInc // e.g. 1,2,3,4
	case size >= 3 && minTimeIndex == 0 && timing[1] > timing[2]:
		return nifti.SliceAltInc // e.g. 1,3,2,4
	case size >= 4 && minTimeIndex == size-1 && timing[size-3] > timing[size-2]:
		return nifti.SliceSeqDec // e.g. 4,3,2,1 or 5,4,3,2,1
	case size >= 4 && minTimeIndex == size-1 && timing[size-3] < timing[size-2]:
		return nifti.SliceAltDec
	default:
		return nifti.SliceUnknown
	}
}

// NiftiBodySize predicts the byte size of the pixel payload contributed by
// this instance.
func (inst *Instance) NiftiBodySize() (int, error) {
	if inst.format.BytesPerPixel() == 0 {
		return 0, fmt.Errorf("%w: unsupported pixel format", neuro.ErrInternalError)
	}

	slices, err := inst.ExtractSlices(0)
	if err != nil {
		return 0, err
	}

	size := 0
	for i := range slices {
		size += inst.format.BytesPerPixel() * slices[i].Width() * slices[i].Height()
	}
	return size, nil
}
