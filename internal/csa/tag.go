package csa

import (
	"bytes"
	"fmt"

	"github.com/mrsinham/dicom2nifti/internal/neuro"
)

// Tag is one entry of a CSA header: a value representation code and an
// ordered list of binary values.
type Tag struct {
	vr     string
	values [][]byte
}

// NewTag creates an empty tag with the given value representation.
func NewTag(vr string) *Tag {
	return &Tag{vr: vr}
}

// VR returns the value representation code of the tag.
func (t *Tag) VR() string {
	return t.vr
}

// Size returns the number of values held by the tag.
func (t *Tag) Size() int {
	return len(t.values)
}

// AddValue appends a binary value and returns the tag for chaining.
func (t *Tag) AddValue(value []byte) *Tag {
	t.values = append(t.values, value)
	return t
}

// BinaryValue returns the raw bytes of value index.
func (t *Tag) BinaryValue(index int) ([]byte, error) {
	if index < 0 || index >= len(t.values) {
		return nil, fmt.Errorf("%w: no value %d in CSA tag", neuro.ErrParameterOutOfRange, index)
	}
	return t.values[index], nil
}

// StringValue returns the bytes of value index cropped at the first NUL.
func (t *Tag) StringValue(index int) (string, error) {
	value, err := t.BinaryValue(index)
	if err != nil {
		return "", err
	}
	if pos := bytes.IndexByte(value, 0); pos >= 0 {
		value = value[:pos]
	}
	return string(value), nil
}

// ParseUnsignedInteger32 attempts a textual coercion of value index.
func (t *Tag) ParseUnsignedInteger32(index int) (uint32, bool) {
	s, err := t.StringValue(index)
	if err != nil {
		return 0, false
	}
	return neuro.ParseUnsignedInteger32(s)
}

// ParseDouble attempts a textual coercion of value index.
func (t *Tag) ParseDouble(index int) (float64, bool) {
	s, err := t.StringValue(index)
	if err != nil {
		return 0, false
	}
	return neuro.ParseDouble(s)
}

// ParseVector coerces every value of the tag to a floating-point number.
func (t *Tag) ParseVector() ([]float64, bool) {
	target := make([]float64, len(t.values))
	for i := range t.values {
		v, ok := t.ParseDouble(i)
		if !ok {
			return nil, false
		}
		target[i] = v
	}
	return target, true
}
