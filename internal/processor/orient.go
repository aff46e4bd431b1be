package processor

import (
	"image"

	"github.com/disintegration/imaging"
)

// readOrientation returns the EXIF orientation (1-8) of an encoded image,
// or 1 when there is none or it cannot be read.
func readOrientation(data []byte) int {
	md, _ := analyzeMetadata(data)
	return md.Orientation
}

// swapsAxes reports whether orientation o rotates the image by 90 degrees.
func swapsAxes(o int) bool {
	return o >= 5 && o <= 8
}

// applyOrientation transforms img so it displays upright.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
