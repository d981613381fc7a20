package neuro

import (
	"errors"
	"math"
	"testing"
)

func TestFixDicomTime(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{0, 0},
		{100000.0, 36000.0},
		{100000.5, 36000.5},
		{235959.75, 86399.75},
		{1230.0, 750.0},
	}

	for _, tt := range tests {
		got, err := FixDicomTime(tt.input)
		if err != nil {
			t.Fatalf("FixDicomTime(%v) failed: %v", tt.input, err)
		}
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("FixDicomTime(%v) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestFixDicomTimeRejectsBadTimes(t *testing.T) {
	for _, input := range []float64{240000.0, 126000.0, 120060.0, 995959.0} {
		if _, err := FixDicomTime(input); !errors.Is(err, ErrBadFileFormat) {
			t.Errorf("FixDicomTime(%v): expected a format error, got %v", input, err)
		}
	}
}

func TestFixDicomTimeMonotone(t *testing.T) {
	// Within a fixed fractional second, later clock readings map to later
	// seconds since midnight
	previous := -1.0
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m += 7 {
			for s := 0; s < 60; s += 11 {
				raw := float64(h*10000 + m*100 + s)
				fixed, err := FixDicomTime(raw)
				if err != nil {
					t.Fatalf("FixDicomTime(%v) failed: %v", raw, err)
				}
				if fixed <= previous {
					t.Fatalf("FixDicomTime(%v) = %v is not above %v", raw, fixed, previous)
				}
				previous = fixed
			}
		}
	}
}

func TestIsNear(t *testing.T) {
	if !IsNear(1.0, 1.0) {
		t.Error("equal values should be near")
	}
	if IsNear(1.0, 1.001) {
		t.Error("distant values should not be near")
	}
	if !IsNearTolerance(1.0, 1.00005, 0.0001) {
		t.Error("values within the tolerance should be near")
	}
	if IsNearTolerance(1.0, 1.0002, 0.0001) {
		t.Error("values beyond the tolerance should not be near")
	}
}

func TestCrossProduct(t *testing.T) {
	got := CrossProduct([3]float64{1, 0, 0}, [3]float64{0, 1, 0})
	if got != [3]float64{0, 0, 1} {
		t.Errorf("x cross y = %v, expected z", got)
	}

	got = CrossProduct([3]float64{0, 1, 0}, [3]float64{1, 0, 0})
	if got != [3]float64{0, 0, -1} {
		t.Errorf("y cross x = %v, expected -z", got)
	}
}

func TestParseDouble(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"1.5", 1.5, true},
		{" 2.25 ", 2.25, true},
		{"-3", -3, true},
		{"1.5\x00", 1.5, true},
		{"", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseDouble(tt.input)
		if ok != tt.ok || (ok && got != tt.expected) {
			t.Errorf("ParseDouble(%q) = (%v, %v), expected (%v, %v)",
				tt.input, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestParseUnsignedInteger32(t *testing.T) {
	if v, ok := ParseUnsignedInteger32("30"); !ok || v != 30 {
		t.Errorf("ParseUnsignedInteger32(30) = (%v, %v)", v, ok)
	}
	if _, ok := ParseUnsignedInteger32("-1"); ok {
		t.Error("negative values are not unsigned")
	}
	if _, ok := ParseUnsignedInteger32("1.5"); ok {
		t.Error("fractional values are not integers")
	}
}

func TestSplitVector(t *testing.T) {
	v, ok := SplitVector("1\\2.5\\-3")
	if !ok || len(v) != 3 || v[0] != 1 || v[1] != 2.5 || v[2] != -3 {
		t.Errorf("SplitVector = (%v, %v)", v, ok)
	}

	if _, ok := SplitVector("1\\x"); ok {
		t.Error("unparsable component should fail")
	}
}
