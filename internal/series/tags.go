package series

import (
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicom2nifti/internal/neuro"
)

// Vendor-specific tags missing from the standard dictionary.
var (
	tagSliceSlopePhilips   = tag.Tag{Group: 0x2005, Element: 0x100e}
	tagSliceTimingSiemens  = tag.Tag{Group: 0x0019, Element: 0x1029}
	tagSiemensCSAHeader    = tag.Tag{Group: 0x0029, Element: 0x1010}
	tagUIHMRVFrameSequence = tag.Tag{Group: 0x0065, Element: 0x1051}
)

// Names of the CSA tags consumed by the engine.
const (
	csaNumberOfImagesInMosaic         = "NumberOfImagesInMosaic"
	csaSliceNormalVector              = "SliceNormalVector"
	csaPhaseEncodingDirectionPositive = "PhaseEncodingDirectionPositive"
)

// findElement returns the element of a tag, or nil when absent.
func findElement(ds dicom.Dataset, t tag.Tag) *dicom.Element {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return nil
	}
	return elem
}

// lookupString returns the textual value of a tag, multiple values joined
// with the DICOM backslash separator.
func lookupString(ds dicom.Dataset, t tag.Tag) (string, bool) {
	elem := findElement(ds, t)
	if elem == nil {
		return "", false
	}

	switch v := elem.Value.GetValue().(type) {
	case []string:
		return strings.Join(v, "\\"), true
	case []int:
		tokens := make([]string, len(v))
		for i, n := range v {
			tokens[i] = fmt.Sprintf("%d", n)
		}
		return strings.Join(tokens, "\\"), true
	case []float64:
		tokens := make([]string, len(v))
		for i, f := range v {
			tokens[i] = fmt.Sprintf("%g", f)
		}
		return strings.Join(tokens, "\\"), true
	default:
		return "", false
	}
}

// lookupFloats parses the value of a tag as a vector of floating-point
// numbers, whatever the stored representation. It returns false when the tag
// is absent or any component resists coercion.
func lookupFloats(ds dicom.Dataset, t tag.Tag) ([]float64, bool) {
	elem := findElement(ds, t)
	if elem == nil {
		return nil, false
	}

	switch v := elem.Value.GetValue().(type) {
	case []float64:
		target := make([]float64, len(v))
		copy(target, v)
		return target, true
	case []int:
		target := make([]float64, len(v))
		for i, n := range v {
			target[i] = float64(n)
		}
		return target, true
	case []string:
		var target []float64
		for _, s := range v {
			// A single stored string may itself hold a backslash-separated list
			part, ok := neuro.SplitVector(s)
			if !ok {
				return nil, false
			}
			target = append(target, part...)
		}
		return target, true
	default:
		return nil, false
	}
}

// lookupInt32 parses the first value of a tag as a signed 32-bit integer.
func lookupInt32(ds dicom.Dataset, t tag.Tag) (int32, bool) {
	elem := findElement(ds, t)
	if elem == nil {
		return 0, false
	}

	switch v := elem.Value.GetValue().(type) {
	case []int:
		if len(v) == 0 {
			return 0, false
		}
		return int32(v[0]), true
	case []string:
		if len(v) == 0 {
			return 0, false
		}
		return neuro.ParseInteger32(v[0])
	default:
		return 0, false
	}
}

// lookupBytes returns the raw bytes of a tag, typically a private binary blob.
func lookupBytes(ds dicom.Dataset, t tag.Tag) ([]byte, bool) {
	elem := findElement(ds, t)
	if elem == nil {
		return nil, false
	}
	raw, ok := elem.Value.GetValue().([]byte)
	return raw, ok
}

// lookupSequence returns the items of a sequence tag as datasets.
func lookupSequence(ds dicom.Dataset, t tag.Tag) []dicom.Dataset {
	elem := findElement(ds, t)
	if elem == nil {
		return nil
	}

	items, ok := elem.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok {
		return nil
	}

	datasets := make([]dicom.Dataset, 0, len(items))
	for _, item := range items {
		elements, ok := item.GetValue().([]*dicom.Element)
		if !ok {
			continue
		}
		datasets = append(datasets, dicom.Dataset{Elements: elements})
	}
	return datasets
}
