package series

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/suyashkumar/dicom"

	"github.com/mrsinham/dicom2nifti/internal/imaging"
	"github.com/mrsinham/dicom2nifti/internal/neuro"
	"github.com/mrsinham/dicom2nifti/internal/nifti"
	"github.com/mrsinham/dicom2nifti/internal/phantom"
)

// countingDecoder wraps the production decoder and records the decode calls.
type countingDecoder struct {
	inner FrameDecoder
	calls int
}

func (d *countingDecoder) DecodeFrame(instanceIndex, frameNumber int) (*imaging.Region, error) {
	d.calls++
	return d.inner.DecodeFrame(instanceIndex, frameNumber)
}

// nilDecoder simulates a misbehaving collaborator.
type nilDecoder struct{}

func (nilDecoder) DecodeFrame(instanceIndex, frameNumber int) (*imaging.Region, error) {
	return nil, nil
}

func TestConvertCanonicalStack(t *testing.T) {
	collection := buildCollection(t, phantom.CanonicalStack(3, 16, 16, 2))

	data, err := Convert(collection, NewCollectionFrameDecoder(collection), false)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	expectedSize := nifti.VoxOffset + 3*16*16*2
	if len(data) != expectedSize {
		t.Fatalf("output is %d bytes, expected %d", len(data), expectedSize)
	}

	header, err := nifti.DecodeHeader(data)
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if header.Dim != [8]int16{3, 16, 16, 3, 0, 0, 0, 0} {
		t.Errorf("dim = %v", header.Dim)
	}
	if header.Datatype != nifti.TypeUint16 {
		t.Errorf("datatype = %d", header.Datatype)
	}

	// The phantom value at (x, y) of slice i is 100*(i+1) + (x+y) % 1024.
	// The writer flips rows, so the first output pixel holds input row 15.
	first := binary.LittleEndian.Uint16(data[nifti.VoxOffset:])
	if first != 100+15 {
		t.Errorf("first output pixel = %d, expected the flipped first row", first)
	}

	// The second slice starts one 16x16 plane later
	second := binary.LittleEndian.Uint16(data[nifti.VoxOffset+16*16*2:])
	if second != 200+15 {
		t.Errorf("first pixel of slice 2 = %d, expected 215", second)
	}
}

func TestConvertDecodesEachFrameOnce(t *testing.T) {
	collection := buildCollection(t, phantom.CanonicalStack(3, 16, 16, 2))

	decoder := &countingDecoder{inner: NewCollectionFrameDecoder(collection)}
	if _, err := Convert(collection, decoder, false); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if decoder.calls != 3 {
		t.Errorf("decoded %d frames, expected one call per instance", decoder.calls)
	}
}

func TestConvertMosaicSharesOneFrame(t *testing.T) {
	collection := buildCollection(t,
		[]dicom.Dataset{phantom.SiemensMosaic(4, 32, 32, 2, [3]float64{0, 0, 1})})

	decoder := &countingDecoder{inner: NewCollectionFrameDecoder(collection)}
	data, err := Convert(collection, decoder, false)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if decoder.calls != 1 {
		t.Errorf("decoded %d frames, the mosaic tiles should share one decode", decoder.calls)
	}

	expectedSize := nifti.VoxOffset + 4*16*16*2
	if len(data) != expectedSize {
		t.Errorf("output is %d bytes, expected %d", len(data), expectedSize)
	}
}

func TestConvertGzipRoundTrip(t *testing.T) {
	build := func() *Collection {
		return buildCollection(t, phantom.CanonicalStack(3, 16, 16, 2))
	}

	plainCollection := build()
	plain, err := Convert(plainCollection, NewCollectionFrameDecoder(plainCollection), false)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	compressedCollection := build()
	compressed, err := Convert(compressedCollection, NewCollectionFrameDecoder(compressedCollection), true)
	if err != nil {
		t.Fatalf("compressed Convert failed: %v", err)
	}

	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("the compressed output is not gzip: %v", err)
	}
	decompressed, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("decompression failed: %v", err)
	}

	if !bytes.Equal(plain, decompressed) {
		t.Error("decompressing the compressed output should match the plain output")
	}
}

func TestConvertNilFrameFails(t *testing.T) {
	collection := buildCollection(t, phantom.CanonicalStack(2, 16, 16, 2))

	_, err := Convert(collection, nilDecoder{}, false)
	if !errors.Is(err, neuro.ErrNullPointer) {
		t.Errorf("expected a null-pointer error, got %v", err)
	}
}

func TestConvertOutputSliceCountMatchesExtraction(t *testing.T) {
	collection := buildCollection(t, phantom.CanonicalStack(4, 16, 16, 2))

	extracted := 0
	for i := 0; i < collection.Size(); i++ {
		instance, err := collection.Instance(i)
		if err != nil {
			t.Fatal(err)
		}
		slices, err := instance.ExtractSlices(i)
		if err != nil {
			t.Fatal(err)
		}
		extracted += len(slices)
	}

	_, plan, err := collection.CreateNiftiHeader()
	if err != nil {
		t.Fatalf("CreateNiftiHeader failed: %v", err)
	}
	if len(plan) != extracted {
		t.Errorf("plan has %d slices, %d were extracted", len(plan), extracted)
	}
}
