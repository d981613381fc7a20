package csa

import (
	"fmt"
	"sort"

	"github.com/mrsinham/dicom2nifti/internal/neuro"
)

// magicSV10 is the ASCII "SV10" marker opening the CSA binary container.
const magicSV10 = 0x30315653

// Header is a mapping of unique tag names to CSA tags.
// https://nipy.org/nibabel/dicom/siemens_csa.html
type Header struct {
	content map[string]*Tag
}

// NewHeader creates an empty CSA header.
func NewHeader() *Header {
	return &Header{content: make(map[string]*Tag)}
}

// Parse decodes the raw bytes of the Siemens CSA private tag.
func Parse(data []byte) (*Header, error) {
	reader := NewReader(data)

	magic, err := reader.ReadUint32()
	if err != nil {
		return nil, err
	}
	if magic != magicSV10 {
		return nil, fmt.Errorf("%w: CSA header does not start with SV10", neuro.ErrBadFileFormat)
	}

	// Unused, often equals 0x01020304
	if _, err := reader.ReadUint32(); err != nil {
		return nil, err
	}

	numTags, err := reader.ReadUint32()
	if err != nil {
		return nil, err
	}
	if numTags == 0 || numTags > 128 {
		return nil, fmt.Errorf("%w: CSA tag count %d out of range 1..128", neuro.ErrBadFileFormat, numTags)
	}

	check, err := reader.ReadUint32()
	if err != nil {
		return nil, err
	}
	if check != 77 {
		return nil, fmt.Errorf("%w: bad CSA header delimiter", neuro.ErrBadFileFormat)
	}

	header := NewHeader()

	for i := uint32(0); i < numTags; i++ {
		name, err := reader.ReadNullTerminatedString()
		if err != nil {
			return nil, err
		}
		if len(name) >= 63 {
			return nil, fmt.Errorf("%w: CSA tag name too long", neuro.ErrBadFileFormat)
		}
		// The name area is 64 bytes, NUL terminator included
		if err := reader.Skip(64 - len(name) - 1); err != nil {
			return nil, err
		}

		vm, err := reader.ReadUint32()
		if err != nil {
			return nil, err
		}

		vr, err := reader.ReadNullTerminatedString()
		if err != nil {
			return nil, err
		}
		if len(vr) >= 4 {
			return nil, fmt.Errorf("%w: CSA VR too long", neuro.ErrBadFileFormat)
		}
		if err := reader.Skip(4 - len(vr) - 1); err != nil {
			return nil, err
		}

		// "syngodt" = syngo.via data type
		if _, err := reader.ReadUint32(); err != nil {
			return nil, err
		}

		numItems, err := reader.ReadUint32()
		if err != nil {
			return nil, err
		}

		sync, err := reader.ReadUint32()
		if err != nil {
			return nil, err
		}
		if sync != 77 && sync != 205 {
			return nil, fmt.Errorf("%w: bad CSA tag delimiter", neuro.ErrBadFileFormat)
		}

		tag := NewTag(vr)

		for j := uint32(0); j < numItems; j++ {
			if _, err := reader.ReadUint32(); err != nil {
				return nil, err
			}
			itemLength, err := reader.ReadUint32()
			if err != nil {
				return nil, err
			}
			if _, err := reader.ReadUint32(); err != nil {
				return nil, err
			}
			if _, err := reader.ReadUint32(); err != nil {
				return nil, err
			}

			if vm == 0 || j < vm {
				value, err := reader.ReadBlock(int(itemLength))
				if err != nil {
					return nil, err
				}
				tag.AddValue(value)
			} else {
				if err := reader.Skip(int(itemLength)); err != nil {
					return nil, err
				}
			}

			// Realign the cursor to the next 4-byte boundary
			if reader.Position()%4 != 0 {
				if err := reader.Skip(4 - reader.Position()%4); err != nil {
					return nil, err
				}
			}
		}

		if _, exists := header.content[name]; exists {
			return nil, fmt.Errorf("%w: tag is repeated in CSA header: %s", neuro.ErrBadFileFormat, name)
		}
		header.content[name] = tag
	}

	return header, nil
}

// Has tells whether the header contains a tag with the given name.
func (h *Header) Has(name string) bool {
	_, ok := h.content[name]
	return ok
}

// Size returns the number of tags in the header.
func (h *Header) Size() int {
	return len(h.content)
}

// Get returns the tag with the given name.
func (h *Header) Get(name string) (*Tag, error) {
	tag, ok := h.content[name]
	if !ok {
		return nil, fmt.Errorf("%w: no such CSA tag: %s", neuro.ErrInexistentItem, name)
	}
	return tag, nil
}

// Names returns the sorted tag names of the header.
func (h *Header) Names() []string {
	names := make([]string, 0, len(h.content))
	for name := range h.content {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseUnsignedInteger32 coerces the single value of the named tag. It
// returns false when the tag is absent, multi-valued, or not numeric.
func (h *Header) ParseUnsignedInteger32(name string) (uint32, bool) {
	tag, ok := h.content[name]
	if !ok || tag.Size() != 1 {
		return 0, false
	}
	return tag.ParseUnsignedInteger32(0)
}

// AddTag inserts an empty tag, failing on a duplicate name.
func (h *Header) AddTag(name, vr string) (*Tag, error) {
	if _, exists := h.content[name]; exists {
		return nil, fmt.Errorf("%w: tag already exists: %s", neuro.ErrParameterOutOfRange, name)
	}
	tag := NewTag(vr)
	h.content[name] = tag
	return tag, nil
}

// AddValue appends a value to an existing tag.
func (h *Header) AddValue(name string, value []byte) error {
	tag, ok := h.content[name]
	if !ok {
		return fmt.Errorf("%w: no such CSA tag: %s", neuro.ErrInexistentItem, name)
	}
	tag.AddValue(value)
	return nil
}
