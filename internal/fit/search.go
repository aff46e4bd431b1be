package fit

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// State is the state of one quality search.
type State int

const (
	StateSearching State = iota
	// StateAccepted: the output is within budget, or the encoder is not tunable.
	StateAccepted
	// StateExhausted: the search stopped over budget at the quality floor or
	// the attempt ceiling.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateAccepted:
		return "accepted"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Attempt is one encode inside a search.
type Attempt struct {
	Number  int
	Quality int
	Size    int64
}

// Result is the accepted output of a search.
type Result struct {
	Bytes    []byte
	Quality  int
	Width    int
	Height   int
	Attempts int
	State    State
}

// BudgetMet reports whether the output fits in maxBytes.
func (r Result) BudgetMet(maxBytes int64) bool {
	return int64(len(r.Bytes)) <= maxBytes
}

// Observer is notified after every encode attempt.
type Observer func(Attempt)

// Options tune a search beyond its Limits.
type Options struct {
	Observer Observer
}

// Resize scales img to plan with a Lanczos filter. The source is returned
// as-is when it already has the planned size.
func Resize(img image.Image, plan Plan) (image.Image, error) {
	b := img.Bounds()
	if b.Dx() == plan.Width && b.Dy() == plan.Height {
		return img, nil
	}
	if plan.Width <= 0 || plan.Height <= 0 || plan.Width > b.Dx() || plan.Height > b.Dy() {
		return nil, fmt.Errorf("%w: invalid plan %dx%d for %dx%d source", ErrEncode, plan.Width, plan.Height, b.Dx(), b.Dy())
	}
	return imaging.Resize(img, plan.Width, plan.Height, imaging.Lanczos), nil
}

// Fit resizes img to plan and runs the quality search on the result.
func Fit(ctx context.Context, img image.Image, plan Plan, enc Encoder, limits Limits, opts Options) (Result, error) {
	resized, err := Resize(img, plan)
	if err != nil {
		return Result{}, err
	}
	return Search(ctx, resized, enc, limits, opts)
}

// Search encodes img at decreasing quality until the output is within
// limits.MaxBytes or limits.ShouldRetry says stop. Quality never increases
// between attempts. Encoder failures abort the search with ErrEncode; running
// out of attempts does not.
func Search(ctx context.Context, img image.Image, enc Encoder, limits Limits, opts Options) (Result, error) {
	b := img.Bounds()
	res := Result{
		Quality: limits.InitialQuality,
		Width:   b.Dx(),
		Height:  b.Dy(),
		State:   StateSearching,
	}

	var buf bytes.Buffer
	for res.State == StateSearching {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		res.Attempts++
		buf.Reset()
		if err := enc.Encode(&buf, img, res.Quality); err != nil {
			return Result{}, fmt.Errorf("%w: %s at quality %d: %v", ErrEncode, enc.Name(), res.Quality, err)
		}
		size := int64(buf.Len())

		if opts.Observer != nil {
			opts.Observer(Attempt{Number: res.Attempts, Quality: res.Quality, Size: size})
		}

		switch {
		case !enc.Tunable() || size <= limits.MaxBytes:
			res.State = StateAccepted
		case limits.ShouldRetry(size, res.Quality, res.Attempts):
			res.Quality = limits.NextQuality(res.Quality)
		default:
			res.State = StateExhausted
		}
	}

	res.Bytes = bytes.Clone(buf.Bytes())
	return res, nil
}
