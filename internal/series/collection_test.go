package series

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicom2nifti/internal/neuro"
	"github.com/mrsinham/dicom2nifti/internal/nifti"
	"github.com/mrsinham/dicom2nifti/internal/phantom"
)

// buildCollection wraps datasets into a collection.
func buildCollection(t *testing.T, datasets []dicom.Dataset) *Collection {
	t.Helper()
	collection := NewCollection()
	for i, ds := range datasets {
		instance, err := NewInstance(ds)
		if err != nil {
			t.Fatalf("NewInstance %d failed: %v", i, err)
		}
		if err := collection.AddInstance(instance, ""); err != nil {
			t.Fatalf("AddInstance %d failed: %v", i, err)
		}
	}
	return collection
}

func TestAddInstanceNil(t *testing.T) {
	collection := NewCollection()
	if err := collection.AddInstance(nil, "x"); !errors.Is(err, neuro.ErrNullPointer) {
		t.Errorf("nil instance: expected a null-pointer error, got %v", err)
	}
	if collection.Size() != 0 {
		t.Errorf("size = %d after a rejected instance", collection.Size())
	}
}

func TestCollectionAccessors(t *testing.T) {
	collection := buildCollection(t, phantom.CanonicalStack(2, 16, 16, 2))

	if collection.Size() != 2 {
		t.Fatalf("size = %d", collection.Size())
	}
	if _, err := collection.Instance(2); !errors.Is(err, neuro.ErrParameterOutOfRange) {
		t.Errorf("out-of-range instance: got %v", err)
	}
	if _, err := collection.ID(-1); !errors.Is(err, neuro.ErrParameterOutOfRange) {
		t.Errorf("out-of-range id: got %v", err)
	}
}

func TestCreateNiftiHeaderCanonicalStack(t *testing.T) {
	// Three 16x16 slices at z = 0, 2, 4
	collection := buildCollection(t, phantom.CanonicalStack(3, 16, 16, 2))

	img, plan, err := collection.CreateNiftiHeader()
	if err != nil {
		t.Fatalf("CreateNiftiHeader failed: %v", err)
	}

	if img.NDim != 3 {
		t.Errorf("ndim = %d, expected 3", img.NDim)
	}
	if img.Nx != 16 || img.Ny != 16 || img.Nz != 3 {
		t.Errorf("dims = %dx%dx%d", img.Nx, img.Ny, img.Nz)
	}
	if img.Dx != 1 || img.Dy != 1 || img.Dz != 2 {
		t.Errorf("spacings = (%v, %v, %v)", img.Dx, img.Dy, img.Dz)
	}
	if img.NVox != 16*16*3 {
		t.Errorf("nvox = %d", img.NVox)
	}
	if img.Datatype != nifti.TypeUint16 || img.NBytesPerVoxel != 2 {
		t.Errorf("datatype = %d, nbyper = %d", img.Datatype, img.NBytesPerVoxel)
	}
	if img.SliceCode != nifti.SliceUnknown {
		t.Errorf("slice code = %d, expected unknown", img.SliceCode)
	}
	if img.QformCode != nifti.XFormScannerAnat || img.SformCode != nifti.XFormScannerAnat {
		t.Errorf("xform codes = (%d, %d)", img.QformCode, img.SformCode)
	}

	// DICOM LPS to NIfTI RAS with the Y flip
	if img.StoXYZ[0][0] != -1 {
		t.Errorf("sto[0][0] = %v, expected -1", img.StoXYZ[0][0])
	}
	if img.StoXYZ[1][1] != 1 || img.StoXYZ[1][3] != -15 {
		t.Errorf("sto row 1 = %v, expected the flipped Y axis", img.StoXYZ[1])
	}
	if img.StoXYZ[2][2] != 2 {
		t.Errorf("sto[2][2] = %v, expected 2", img.StoXYZ[2][2])
	}

	// diag(-1, 1, 2) is improper, so qfac turns negative
	if img.QFac != -1 || img.PixDim[0] != -1 {
		t.Errorf("qfac = %v, pixdim[0] = %v", img.QFac, img.PixDim[0])
	}
	if !(math.Abs(img.QuaternC-1) < 1e-6) {
		t.Errorf("quaternion = (%v, %v, %v), expected a flip about y",
			img.QuaternB, img.QuaternC, img.QuaternD)
	}

	// The plan keeps all the slices, sorted by projection
	if len(plan) != 3 {
		t.Fatalf("plan has %d slices, expected 3", len(plan))
	}
	for i, slice := range plan {
		if slice.Origin()[2] != 2*float64(i) {
			t.Errorf("plan slice %d at z = %v", i, slice.Origin()[2])
		}
	}
}

func TestCreateNiftiHeaderPhilips4D(t *testing.T) {
	// Two acquisitions sharing each of three z-planes
	datasets := phantom.PhilipsTimeSeries(3, 2, 16, 16, 2, []string{"100000.0", "100000.5"})
	collection := buildCollection(t, datasets)

	img, plan, err := collection.CreateNiftiHeader()
	if err != nil {
		t.Fatalf("CreateNiftiHeader failed: %v", err)
	}

	if img.NDim != 4 {
		t.Fatalf("ndim = %d, expected 4", img.NDim)
	}
	if img.Nz != 3 || img.Nt != 2 {
		t.Errorf("nz = %d, nt = %d", img.Nz, img.Nt)
	}
	if math.Abs(img.Dt-0.5) > 1e-9 {
		t.Errorf("dt = %v, expected 0.5", img.Dt)
	}
	if img.NVox != 16*16*3*2 {
		t.Errorf("nvox = %d", img.NVox)
	}

	// Transposition: all the slices of acquisition 0 first
	if len(plan) != 6 {
		t.Fatalf("plan has %d slices, expected 6", len(plan))
	}
	for i, slice := range plan {
		expectedZ := 2 * float64(i%3)
		if slice.Origin()[2] != expectedZ {
			t.Errorf("plan slice %d at z = %v, expected %v", i, slice.Origin()[2], expectedZ)
		}
	}
	// Within one z-plane, the smaller instance number comes first
	if plan[0].InstanceNumber() >= plan[3].InstanceNumber() {
		t.Errorf("acquisition order = (%d, %d)", plan[0].InstanceNumber(), plan[3].InstanceNumber())
	}
}

func TestCreateNiftiHeaderSingleSlice(t *testing.T) {
	collection := buildCollection(t, phantom.CanonicalStack(1, 16, 16, 2))

	img, _, err := collection.CreateNiftiHeader()
	if err != nil {
		t.Fatalf("CreateNiftiHeader failed: %v", err)
	}
	if img.NDim != 3 || img.Nz != 1 {
		t.Errorf("ndim = %d, nz = %d", img.NDim, img.Nz)
	}
	// With a single z-plane the instance spacing is used
	if img.Dz != 2 {
		t.Errorf("dz = %v, expected the voxel spacing", img.Dz)
	}
}

func TestCreateNiftiHeaderAmbiguousInstanceNumbers(t *testing.T) {
	opts := phantom.SeriesOptions{
		Manufacturer: "SIEMENS",
		Modality:     "MR",
		Width:        16,
		Height:       16,
		PixelSpacing: [2]float64{1, 1},
		Spacing:      2,
		Orientation:  [6]float64{1, 0, 0, 0, 1, 0},
		Slices: []phantom.SliceSpec{
			{InstanceNumber: 1, Position: [3]float64{0, 0, 0}},
			{InstanceNumber: 1, Position: [3]float64{0, 0, 0}},
		},
	}
	collection := buildCollection(t, phantom.Series(opts))

	_, _, err := collection.CreateNiftiHeader()
	if !errors.Is(err, neuro.ErrParameterOutOfRange) {
		t.Fatalf("expected a parameter error, got %v", err)
	}
	if !strings.Contains(err.Error(), "instance numbers") {
		t.Errorf("the error should mention the instance numbers: %v", err)
	}
}

func TestCreateNiftiHeaderInconsistentAcquisitions(t *testing.T) {
	// Two slices at z = 0, one at z = 2: 3 slices cannot split into 2
	// acquisitions
	opts := phantom.SeriesOptions{
		Manufacturer: "SIEMENS",
		Modality:     "MR",
		Width:        16,
		Height:       16,
		PixelSpacing: [2]float64{1, 1},
		Spacing:      2,
		Orientation:  [6]float64{1, 0, 0, 0, 1, 0},
		Slices: []phantom.SliceSpec{
			{InstanceNumber: 1, Position: [3]float64{0, 0, 0}},
			{InstanceNumber: 2, Position: [3]float64{0, 0, 0}},
			{InstanceNumber: 3, Position: [3]float64{0, 0, 2}},
		},
	}
	collection := buildCollection(t, phantom.Series(opts))

	_, _, err := collection.CreateNiftiHeader()
	if !errors.Is(err, neuro.ErrParameterOutOfRange) {
		t.Fatalf("expected a parameter error, got %v", err)
	}
	if !strings.Contains(err.Error(), "acquisitions") {
		t.Errorf("the error should mention the acquisitions: %v", err)
	}
}

func TestCreateNiftiHeaderEmptyCollection(t *testing.T) {
	_, _, err := NewCollection().CreateNiftiHeader()
	if !errors.Is(err, neuro.ErrParameterOutOfRange) {
		t.Errorf("empty collection: got %v", err)
	}
}

func TestDescription(t *testing.T) {
	opts := phantom.SeriesOptions{
		Manufacturer: "SIEMENS",
		Modality:     "MR",
		Width:        16,
		Height:       16,
		PixelSpacing: [2]float64{1, 1},
		Spacing:      2,
		Orientation:  [6]float64{1, 0, 0, 0, 1, 0},
		EchoTime:     3.5,
		Slices: []phantom.SliceSpec{
			{InstanceNumber: 1, Position: [3]float64{0, 0, 0}, AcquisitionTime: "100001.5"},
			{InstanceNumber: 2, Position: [3]float64{0, 0, 2}, AcquisitionTime: "100000.25"},
		},
	}
	collection := buildCollection(t, phantom.Series(opts))

	img, _, err := collection.CreateNiftiHeader()
	if err != nil {
		t.Fatalf("CreateNiftiHeader failed: %v", err)
	}

	// MR keeps the earliest acquisition time
	if img.Descrip != "TE=3.5;Time=100000.250" {
		t.Errorf("descrip = %q", img.Descrip)
	}
}

func TestDescriptionMosaicPhase(t *testing.T) {
	ds := phantom.SiemensMosaic(4, 32, 32, 2, [3]float64{0, 0, 1})
	collection := buildCollection(t, []dicom.Dataset{ds})

	img, plan, err := collection.CreateNiftiHeader()
	if err != nil {
		t.Fatalf("CreateNiftiHeader failed: %v", err)
	}
	if len(plan) != 4 {
		t.Fatalf("plan has %d slices, expected 4", len(plan))
	}
	if !strings.Contains(img.Descrip, "phase=1") {
		t.Errorf("descrip = %q, expected the phase polarity", img.Descrip)
	}
}

func TestPhaseFreqSliceDims(t *testing.T) {
	tests := []struct {
		direction               string
		phase, frequency, slice int
	}{
		{"ROW", 1, 2, 3},
		{"COL", 2, 1, 3},
		{"", 0, 0, 0},
	}

	for _, tt := range tests {
		datasets := phantom.CanonicalStack(2, 16, 16, 2)
		if tt.direction != "" {
			for i := range datasets {
				datasets[i].Elements = append(datasets[i].Elements,
					mustElement(tag.InPlanePhaseEncodingDirection, []string{tt.direction}))
			}
		}
		collection := buildCollection(t, datasets)

		img, _, err := collection.CreateNiftiHeader()
		if err != nil {
			t.Fatalf("CreateNiftiHeader failed: %v", err)
		}
		if img.PhaseDim != tt.phase || img.FreqDim != tt.frequency || img.SliceDim != tt.slice {
			t.Errorf("direction %q: dims = (%d, %d, %d), expected (%d, %d, %d)", tt.direction,
				img.PhaseDim, img.FreqDim, img.SliceDim, tt.phase, tt.frequency, tt.slice)
		}
	}
}
