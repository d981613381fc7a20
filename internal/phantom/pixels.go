package phantom

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/suyashkumar/dicom"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Frame16 builds a 16-bit phantom frame: a diagonal ramp offset by base, with
// an optional label burned into the top-left corner.
func Frame16(width, height int, base uint16, label string) []uint16 {
	raw := make([]uint16, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			raw[y*width+x] = base + uint16((x+y)%1024)
		}
	}

	if label != "" {
		burnLabel16(raw, width, height, label)
	}
	return raw
}

// burnLabel16 draws text into the frame at full intensity, so converted
// volumes stay recognizable in a viewer.
func burnLabel16(raw []uint16, width, height int, text string) {
	mask := image.NewGray(image.Rect(0, 0, width, height))

	drawer := &font.Drawer{
		Dst:  mask,
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(2, 13),
	}
	drawer.DrawString(text)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if mask.GrayAt(x, y).Y > 0 {
				raw[y*width+x] = 4095
			}
		}
	}
}

// WriteSeries writes one IM%06d file per dataset into dir.
func WriteSeries(dir string, datasets []dicom.Dataset) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for i, ds := range datasets {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("IM%06d", i+1)))
		if err != nil {
			return err
		}
		// The private vendor elements carry VRs the dictionary cannot verify
		if err := dicom.Write(f, ds, dicom.SkipVRVerification(), dicom.SkipValueTypeVerification()); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
