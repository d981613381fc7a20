package phantom

import (
	"bytes"
	"encoding/binary"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// CSAElement is one entry of a synthetic SV10 CSA header.
type CSAElement struct {
	Name    string
	VM      int32
	VR      string
	SyngoDT int32
	Values  []string
}

// BuildCSAHeader encodes CSA elements into the "SV10" binary format used by
// Siemens scanners.
func BuildCSAHeader(elements []CSAElement) []byte {
	var buf bytes.Buffer

	// Magic bytes: "SV10" followed by 0x04, 0x03, 0x02, 0x01
	buf.WriteString("SV10")
	buf.Write([]byte{0x04, 0x03, 0x02, 0x01})

	// binary.Write to bytes.Buffer never fails; discard errors explicitly.
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(elements)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0x4D))

	for _, elem := range elements {
		// Element name: 64 bytes, null-padded
		name := make([]byte, 64)
		copy(name, elem.Name)
		buf.Write(name)

		_ = binary.Write(&buf, binary.LittleEndian, elem.VM)

		// VR: 4 bytes, null-padded
		vr := make([]byte, 4)
		copy(vr, elem.VR)
		buf.Write(vr)

		_ = binary.Write(&buf, binary.LittleEndian, elem.SyngoDT)
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(elem.Values)))
		_ = binary.Write(&buf, binary.LittleEndian, uint32(0x4D))

		for _, value := range elem.Values {
			// Item length, repeated over the four item headers
			itemLen := uint32(len(value))
			for j := 0; j < 4; j++ {
				_ = binary.Write(&buf, binary.LittleEndian, itemLen)
			}

			buf.WriteString(value)

			// Pad to a 4-byte boundary
			if padding := (4 - len(value)%4) % 4; padding > 0 {
				buf.Write(make([]byte, padding))
			}
		}
	}

	return buf.Bytes()
}

// MosaicCSAElements builds the CSA entries consumed by the mosaic explosion.
func MosaicCSAElements(numberOfImagesInMosaic int, sliceNormal [3]float64) []CSAElement {
	return []CSAElement{
		{
			Name: "NumberOfImagesInMosaic", VM: 1, VR: "IS", SyngoDT: 6,
			Values: []string{intToIS(numberOfImagesInMosaic)},
		},
		{
			Name: "SliceNormalVector", VM: 3, VR: "FD", SyngoDT: 3,
			Values: vectorToDS(sliceNormal[:]),
		},
		{
			Name: "PhaseEncodingDirectionPositive", VM: 1, VR: "IS", SyngoDT: 6,
			Values: []string{"1"},
		},
	}
}

// csaElements wraps a CSA blob into the Siemens private block.
func csaElements(blob []byte) []*dicom.Element {
	return []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x0010}, "LO", []string{"SIEMENS CSA HEADER"}),
		mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x1010}, "OB", blob),
	}
}

// SiemensMosaic builds one Siemens instance tiling count sub-images into a
// width x height mosaic, slices stacked along the given normal.
func SiemensMosaic(count, width, height int, spacing float64, normal [3]float64) dicom.Dataset {
	opts := SeriesOptions{
		Manufacturer: "SIEMENS",
		Modality:     "MR",
		Width:        width,
		Height:       height,
		PixelSpacing: [2]float64{1, 1},
		Spacing:      spacing,
		Orientation:  [6]float64{1, 0, 0, 0, 1, 0},
		Extra:        csaElements(BuildCSAHeader(MosaicCSAElements(count, normal))),
	}

	spec := SliceSpec{InstanceNumber: 1, Position: [3]float64{0, 0, 0}}
	elements := baseElements(opts, spec, "1.2.826.0.1.3680043.9.1234.2.1")

	raw := Frame16(width, height, 64, "MOSAIC")
	elements = append(elements, pixelDataElement(raw, width, height))

	return dicom.Dataset{Elements: elements}
}

// UIHTiled builds one UIH instance whose per-frame private sequence places
// count tiles stacked along z.
func UIHTiled(count, width, height int, spacing float64) dicom.Dataset {
	items := make([][]*dicom.Element, count)
	for i := 0; i < count; i++ {
		items[i] = []*dicom.Element{
			mustNewElement(tag.ImagePositionPatient, vectorToDS([]float64{0, 0, float64(i) * spacing})),
			mustNewElement(tag.AcquisitionTime, []string{"120000.0"}),
		}
	}

	opts := SeriesOptions{
		Manufacturer: "UIH",
		Modality:     "MR",
		Width:        width,
		Height:       height,
		PixelSpacing: [2]float64{1, 1},
		Spacing:      spacing,
		Orientation:  [6]float64{1, 0, 0, 0, 1, 0},
		Extra: []*dicom.Element{
			mustNewPrivateElement(tag.Tag{Group: 0x0065, Element: 0x0010}, "LO", []string{"Image Private Header"}),
			mustNewPrivateElement(tag.Tag{Group: 0x0065, Element: 0x1051}, "SQ", items),
		},
	}

	spec := SliceSpec{InstanceNumber: 1, Position: [3]float64{0, 0, 0}}
	elements := baseElements(opts, spec, "1.2.826.0.1.3680043.9.1234.3.1")

	raw := Frame16(width, height, 64, "UIH")
	elements = append(elements, pixelDataElement(raw, width, height))

	return dicom.Dataset{Elements: elements}
}
