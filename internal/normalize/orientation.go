package normalize

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// EXIF orientation values (1-8) per the TIFF/EXIF specification.
const (
	orientationUpright     = 1
	orientationFlipH       = 2
	orientationRotate180   = 3
	orientationFlipV       = 4
	orientationTranspose   = 5
	orientationRotate90CW  = 6
	orientationTransverse  = 7
	orientationRotate270CW = 8
)

// readOrientation extracts the EXIF orientation tag from raw image bytes.
// Images without EXIF data (PNG, stripped JPEG) report upright.
func readOrientation(raw []byte) int {
	meta, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return orientationUpright
	}
	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return orientationUpright
	}
	value, err := tag.Int(0)
	if err != nil || value < orientationUpright || value > orientationRotate270CW {
		return orientationUpright
	}
	return value
}

// applyOrientation rotates/flips the image so it is upright regardless of
// how the camera stored it.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case orientationFlipH:
		return imaging.FlipH(img)
	case orientationRotate180:
		return imaging.Rotate180(img)
	case orientationFlipV:
		return imaging.FlipV(img)
	case orientationTranspose:
		return imaging.Transpose(img)
	case orientationRotate90CW:
		return imaging.Rotate270(img)
	case orientationTransverse:
		return imaging.Transverse(img)
	case orientationRotate270CW:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
