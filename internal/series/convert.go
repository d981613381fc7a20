package series

import (
	"fmt"

	"github.com/mrsinham/dicom2nifti/internal/imaging"
	"github.com/mrsinham/dicom2nifti/internal/neuro"
	"github.com/mrsinham/dicom2nifti/internal/nifti"
)

// FrameDecoder is the single polymorphic boundary of the engine: given the
// index of an instance in its collection and a frame number, it returns the
// decoded pixels of that frame.
type FrameDecoder interface {
	DecodeFrame(instanceIndex, frameNumber int) (*imaging.Region, error)
}

// applySlices walks the ordered slice plan, decoding each referenced frame at
// most once in a row, and hands the sub-window of every slice to the writer.
func applySlices(writer *nifti.Writer, decoder FrameDecoder, slices []Slice) error {
	for i := 1; i < len(slices); i++ {
		if slices[0].Width() != slices[i].Width() ||
			slices[0].Height() != slices[i].Height() {
			return fmt.Errorf("%w: the slices have varying dimensions", neuro.ErrNotImplemented)
		}
	}

	var currentFrame *imaging.Region
	var currentInstanceIndex, currentFrameNumber int
	hasCurrentFrame := false

	established := false
	var format imaging.PixelFormat

	for i := range slices {
		if !hasCurrentFrame ||
			currentInstanceIndex != slices[i].InstanceIndex() ||
			currentFrameNumber != slices[i].FrameNumber() {
			frame, err := decoder.DecodeFrame(slices[i].InstanceIndex(), slices[i].FrameNumber())
			if err != nil {
				return err
			}
			if frame == nil {
				return fmt.Errorf("%w: the frame decoder returned no frame", neuro.ErrNullPointer)
			}

			currentFrame = frame
			currentInstanceIndex = slices[i].InstanceIndex()
			currentFrameNumber = slices[i].FrameNumber()
			hasCurrentFrame = true
		}

		region, err := currentFrame.SubRegion(slices[i].X(), slices[i].Y(),
			slices[i].Width(), slices[i].Height())
		if err != nil {
			return err
		}

		if !established {
			established = true
			format = region.Format
		}
		if region.Format != format {
			return fmt.Errorf("%w: the slices have varying pixel formats", neuro.ErrIncompatibleImageFormat)
		}

		if err := writer.AddSlice(region); err != nil {
			return err
		}
	}

	return nil
}

// Convert builds the NIfTI descriptor of the collection, decodes every slice
// through the injected decoder, and returns the single-file NIfTI byte
// stream, gzip-compressed when requested.
func Convert(collection *Collection, decoder FrameDecoder, compress bool) ([]byte, error) {
	img, slices, err := collection.CreateNiftiHeader()
	if err != nil {
		return nil, err
	}

	writer := nifti.NewWriter()
	if err := writer.WriteHeader(img); err != nil {
		return nil, err
	}

	if err := applySlices(writer, decoder, slices); err != nil {
		return nil, err
	}

	return writer.Flatten(compress)
}
