// Package phantom generates synthetic DICOM series for tests and the e2e
// harness: canonical single-frame stacks, Philips 4-D time series, Siemens
// mosaics carrying a real SV10 CSA header, and UIH tiled instances.
package phantom

import (
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// mustNewElement creates a new DICOM element, panicking on error.
func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

// mustNewPrivateElement creates a DICOM element with a private tag and
// explicit VR. This is required because dicom.NewElement fails on
// unregistered private tags.
func mustNewPrivateElement(t tag.Tag, rawVR string, data any) *dicom.Element {
	value, err := dicom.NewValue(data)
	if err != nil {
		panic(fmt.Sprintf("failed to create value for private element %v: %v", t, err))
	}
	return &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    tag.GetVRKind(t, rawVR),
		RawValueRepresentation: rawVR,
		Value:                  value,
	}
}

// floatToDS converts a float64 to a DICOM Decimal String.
func floatToDS(f float64) string {
	return fmt.Sprintf("%.6g", f)
}

// intToIS converts an int to a DICOM Integer String.
func intToIS(i int) string {
	return fmt.Sprintf("%d", i)
}

// vectorToDS converts a vector to a multi-valued DICOM Decimal String.
func vectorToDS(v []float64) []string {
	target := make([]string, len(v))
	for i, f := range v {
		target[i] = floatToDS(f)
	}
	return target
}

// SliceSpec places one synthetic slice.
type SliceSpec struct {
	InstanceNumber  int
	Position        [3]float64
	AcquisitionTime string // DICOM HHMMSS.frac, empty to omit
	Label           string // burned into the pixels, empty to omit
}

// SeriesOptions describe a synthetic single-frame series.
type SeriesOptions struct {
	Manufacturer string
	Modality     string
	Width        int
	Height       int
	PixelSpacing [2]float64
	Spacing      float64 // spacing between slices
	Orientation  [6]float64
	EchoTime     float64 // milliseconds, 0 to omit
	Signed       bool
	Slices       []SliceSpec

	// Extra elements appended verbatim to every dataset
	Extra []*dicom.Element
}

// sopClassMRImageStorage is the MR Image Storage SOP class.
const sopClassMRImageStorage = "1.2.840.10008.5.1.4.1.1.4"

// baseElements builds the tags shared by every synthetic instance.
func baseElements(opts SeriesOptions, spec SliceSpec, sopInstanceUID string) []*dicom.Element {
	pixelRepresentation := 0
	if opts.Signed {
		pixelRepresentation = 1
	}

	elements := []*dicom.Element{
		mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(tag.SOPClassUID, []string{sopClassMRImageStorage}),
		mustNewElement(tag.SOPInstanceUID, []string{sopInstanceUID}),
		mustNewElement(tag.Modality, []string{opts.Modality}),
		mustNewElement(tag.Manufacturer, []string{opts.Manufacturer}),
		mustNewElement(tag.InstanceNumber, []string{intToIS(spec.InstanceNumber)}),
		mustNewElement(tag.ImagePositionPatient, vectorToDS(spec.Position[:])),
		mustNewElement(tag.ImageOrientationPatient, vectorToDS(opts.Orientation[:])),
		mustNewElement(tag.PixelSpacing, vectorToDS(opts.PixelSpacing[:])),
		mustNewElement(tag.SpacingBetweenSlices, []string{floatToDS(opts.Spacing)}),
		mustNewElement(tag.SliceThickness, []string{floatToDS(opts.Spacing)}),
		mustNewElement(tag.Rows, []int{opts.Height}),
		mustNewElement(tag.Columns, []int{opts.Width}),
		mustNewElement(tag.BitsAllocated, []int{16}),
		mustNewElement(tag.BitsStored, []int{12}),
		mustNewElement(tag.HighBit, []int{11}),
		mustNewElement(tag.PixelRepresentation, []int{pixelRepresentation}),
		mustNewElement(tag.SamplesPerPixel, []int{1}),
		mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
	}

	if spec.AcquisitionTime != "" {
		elements = append(elements, mustNewElement(tag.AcquisitionTime, []string{spec.AcquisitionTime}))
	}
	if opts.EchoTime != 0 {
		elements = append(elements, mustNewElement(tag.EchoTime, []string{floatToDS(opts.EchoTime)}))
	}

	return append(elements, opts.Extra...)
}

// pixelDataElement wraps raw 16-bit samples into a native pixel data element.
func pixelDataElement(raw []uint16, width, height int) *dicom.Element {
	nativeFrame := frame.NewNativeFrame[uint16](16, height, width, width*height, 1)
	copy(nativeFrame.RawData, raw)

	return mustNewElement(tag.PixelData, dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   nativeFrame,
			},
		},
	})
}

// Series builds one dataset per slice specification.
func Series(opts SeriesOptions) []dicom.Dataset {
	datasets := make([]dicom.Dataset, 0, len(opts.Slices))
	for i, spec := range opts.Slices {
		uid := fmt.Sprintf("1.2.826.0.1.3680043.9.1234.1.%d", i+1)
		elements := baseElements(opts, spec, uid)

		raw := Frame16(opts.Width, opts.Height, uint16(100*(i+1)), spec.Label)
		elements = append(elements, pixelDataElement(raw, opts.Width, opts.Height))

		datasets = append(datasets, dicom.Dataset{Elements: elements})
	}
	return datasets
}

// CanonicalStack builds the simplest well-formed series: canonical axes,
// slices stacked along z, instance numbers starting at 1.
func CanonicalStack(count, width, height int, spacing float64) []dicom.Dataset {
	opts := SeriesOptions{
		Manufacturer: "SIEMENS",
		Modality:     "MR",
		Width:        width,
		Height:       height,
		PixelSpacing: [2]float64{1, 1},
		Spacing:      spacing,
		Orientation:  [6]float64{1, 0, 0, 0, 1, 0},
	}
	for i := 0; i < count; i++ {
		opts.Slices = append(opts.Slices, SliceSpec{
			InstanceNumber: i + 1,
			Position:       [3]float64{0, 0, float64(i) * spacing},
			Label:          fmt.Sprintf("S%02d", i+1),
		})
	}
	return Series(opts)
}

// PhilipsTimeSeries builds a 4-D series: acquisitions repeated acquisition
// times over zCount z-planes, with per-volume acquisition times.
func PhilipsTimeSeries(zCount, acquisitions, width, height int, spacing float64, times []string) []dicom.Dataset {
	opts := SeriesOptions{
		Manufacturer: "Philips Medical Systems",
		Modality:     "MR",
		Width:        width,
		Height:       height,
		PixelSpacing: [2]float64{1, 1},
		Spacing:      spacing,
		Orientation:  [6]float64{1, 0, 0, 0, 1, 0},
	}

	number := 1
	for z := 0; z < zCount; z++ {
		for a := 0; a < acquisitions; a++ {
			opts.Slices = append(opts.Slices, SliceSpec{
				InstanceNumber:  number,
				Position:        [3]float64{0, 0, float64(z) * spacing},
				AcquisitionTime: times[a],
			})
			number++
		}
	}
	return Series(opts)
}
