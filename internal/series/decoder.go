package series

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicom2nifti/internal/imaging"
	"github.com/mrsinham/dicom2nifti/internal/neuro"
)

// CollectionFrameDecoder decodes frames directly from the pixel data carried
// by the datasets of a collection. It is the production implementation of
// FrameDecoder for series loaded from DICOM files.
type CollectionFrameDecoder struct {
	collection *Collection
}

// NewCollectionFrameDecoder creates a decoder over the given collection.
func NewCollectionFrameDecoder(collection *Collection) *CollectionFrameDecoder {
	return &CollectionFrameDecoder{collection: collection}
}

// DecodeFrame implements FrameDecoder.
func (d *CollectionFrameDecoder) DecodeFrame(instanceIndex, frameNumber int) (*imaging.Region, error) {
	instance, err := d.collection.Instance(instanceIndex)
	if err != nil {
		return nil, err
	}
	return instance.DecodeFrame(frameNumber)
}

// DecodeFrame decodes one frame of the pixel data of the instance.
func (inst *Instance) DecodeFrame(frameNumber int) (*imaging.Region, error) {
	elem := findElement(inst.dataset, tag.PixelData)
	if elem == nil {
		return nil, fmt.Errorf("%w: instance carries no pixel data", neuro.ErrInexistentItem)
	}

	info, ok := elem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected pixel data element", neuro.ErrBadFileFormat)
	}
	if frameNumber < 0 || frameNumber >= len(info.Frames) {
		return nil, fmt.Errorf("%w: no frame %d", neuro.ErrParameterOutOfRange, frameNumber)
	}

	decoded, err := info.Frames[frameNumber].GetImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", neuro.ErrBadFileFormat, err)
	}

	return regionFromImage(decoded, inst.format)
}

// regionFromImage repacks a decoded frame into a tight little-endian region.
func regionFromImage(decoded image.Image, format imaging.PixelFormat) (*imaging.Region, error) {
	bounds := decoded.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	switch src := decoded.(type) {
	case *image.Gray16:
		if format != imaging.FormatGrayscale16 && format != imaging.FormatSignedGrayscale16 {
			return nil, fmt.Errorf("%w: frame depth disagrees with the instance metadata",
				neuro.ErrIncompatibleImageFormat)
		}

		region := &imaging.Region{
			Width:  width,
			Height: height,
			Pitch:  2 * width,
			Format: format,
			Data:   make([]byte, 2*width*height),
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				// Gray16 stores big-endian samples
				offset := src.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				value := uint16(src.Pix[offset])<<8 | uint16(src.Pix[offset+1])
				binary.LittleEndian.PutUint16(region.Data[y*region.Pitch+2*x:], value)
			}
		}
		return region, nil

	case *image.Gray:
		if format != imaging.FormatGrayscale8 {
			return nil, fmt.Errorf("%w: frame depth disagrees with the instance metadata",
				neuro.ErrIncompatibleImageFormat)
		}

		region := &imaging.Region{
			Width:  width,
			Height: height,
			Pitch:  width,
			Format: format,
			Data:   make([]byte, width*height),
		}
		for y := 0; y < height; y++ {
			copy(region.Data[y*width:(y+1)*width],
				src.Pix[(y)*src.Stride:(y)*src.Stride+width])
		}
		return region, nil

	default:
		return nil, fmt.Errorf("%w: unsupported decoded frame type %T", neuro.ErrNotImplemented, decoded)
	}
}
