package fit

import "math"

// Defaults for Limits.
const (
	DefaultMaxBytes       = 512000
	DefaultMaxLongestSide = 1024
	DefaultInitialQuality = 95
	DefaultMinQuality     = 10
	DefaultMaxAttempts    = 10
	DefaultDecay          = 0.8
)

// Limits bounds the output of the adaptive encoder.
type Limits struct {
	MaxBytes       int64
	MaxLongestSide int
	InitialQuality int
	MinQuality     int
	MaxAttempts    int
	Decay          float64
}

// DefaultLimits returns the stock 1024px / 500KiB limits.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:       DefaultMaxBytes,
		MaxLongestSide: DefaultMaxLongestSide,
		InitialQuality: DefaultInitialQuality,
		MinQuality:     DefaultMinQuality,
		MaxAttempts:    DefaultMaxAttempts,
		Decay:          DefaultDecay,
	}
}

// ShouldRetry is the transition guard of the quality search: another attempt
// is made only while the output is over budget, quality can still drop and
// the attempt ceiling has not been reached.
func (l Limits) ShouldRetry(size int64, quality, attempt int) bool {
	return size > l.MaxBytes && quality > l.MinQuality && attempt < l.MaxAttempts
}

// NextQuality decays quality by Decay, floored at MinQuality.
// The result is never greater than quality.
func (l Limits) NextQuality(quality int) int {
	next := int(math.Floor(float64(quality) * l.Decay))
	if next >= quality {
		next = quality - 1
	}
	if next < l.MinQuality {
		next = l.MinQuality
	}
	return next
}
