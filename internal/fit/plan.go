package fit

import "math"

// Plan is the target size of a resized image.
type Plan struct {
	Width  int
	Height int
}

// LongestSide returns max(Width, Height).
func (p Plan) LongestSide() int {
	if p.Width >= p.Height {
		return p.Width
	}
	return p.Height
}

// PlanFor computes the size an image of width x height should be resized to
// so that its longest side does not exceed maxSide. Aspect ratio is kept and
// images are never enlarged. The scaled side is rounded half away from zero.
//
// width, height and maxSide must be positive.
func PlanFor(width, height, maxSide int) Plan {
	constrained, other := width, height
	if height > width {
		constrained, other = height, width
	}

	if constrained <= maxSide {
		return Plan{Width: width, Height: height}
	}

	scaled := int(math.Round(float64(other) * float64(maxSide) / float64(constrained)))
	if scaled < 1 {
		scaled = 1
	}

	if width >= height {
		return Plan{Width: maxSide, Height: scaled}
	}
	return Plan{Width: scaled, Height: maxSide}
}
