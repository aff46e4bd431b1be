package fit

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Encoder writes an image at a format-specific level. For lossy formats the
// level is visual quality; for lossless formats it is reinterpreted as
// compression effort. The search loop only relies on a lower level producing
// output that is not expected to be larger.
type Encoder interface {
	Encode(w io.Writer, img image.Image, level int) error
	// Tunable reports whether level has any effect. Untunable encoders get a
	// single attempt.
	Tunable() bool
	Name() string
}

// EncoderFor returns the encoder for an output file extension. Extensions
// without quality control fall back to the library defaults for that format.
func EncoderFor(ext string) (Encoder, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return JPEGEncoder{}, nil
	case "png":
		return PNGEncoder{}, nil
	case "webp":
		return WEBPEncoder{}, nil
	}

	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return PassthroughEncoder{Format: format}, nil
}

type JPEGEncoder struct{}

func (JPEGEncoder) Encode(w io.Writer, img image.Image, level int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(level))
}

func (JPEGEncoder) Tunable() bool { return true }
func (JPEGEncoder) Name() string  { return "jpeg" }

// PNGEncoder maps quality to deflate effort:
// effort = min(9, round(9 * (100 - quality) / 100)).
type PNGEncoder struct{}

func (PNGEncoder) Encode(w io.Writer, img image.Image, level int) error {
	return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(pngCompression(PNGEffort(level))))
}

func (PNGEncoder) Tunable() bool { return true }
func (PNGEncoder) Name() string  { return "png" }

// PNGEffort converts a quality in [0,100] to a zlib style effort in [0,9].
func PNGEffort(quality int) int {
	effort := int(math.Round(9 * float64(100-quality) / 100))
	if effort > 9 {
		effort = 9
	}
	if effort < 0 {
		effort = 0
	}
	return effort
}

// image/png only exposes four levels.
func pngCompression(effort int) png.CompressionLevel {
	switch {
	case effort <= 0:
		return png.NoCompression
	case effort <= 3:
		return png.BestSpeed
	case effort <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

type WEBPEncoder struct{}

func (WEBPEncoder) Encode(w io.Writer, img image.Image, level int) error {
	return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: float32(level)})
}

func (WEBPEncoder) Tunable() bool { return true }
func (WEBPEncoder) Name() string  { return "webp" }

// PassthroughEncoder encodes with the format's default settings and ignores level.
type PassthroughEncoder struct {
	Format imaging.Format
}

func (e PassthroughEncoder) Encode(w io.Writer, img image.Image, _ int) error {
	return imaging.Encode(w, img, e.Format)
}

func (PassthroughEncoder) Tunable() bool { return false }
func (e PassthroughEncoder) Name() string {
	return strings.ToLower(e.Format.String())
}
