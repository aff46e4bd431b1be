package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"imgfit/internal/fit"
	"imgfit/internal/storage"
)

// ProcessFile converts one image and persists it under job.RelPath. Errors
// are recorded in the Result and logged, never returned.
func ProcessFile(ctx context.Context, job Job, opts Options) Result {
	res := Result{Path: job.Path, RelPath: job.RelPath, Display: job.Display, Supported: true}
	log := opts.logger().WithField("file", job.Display)

	res.Err = convert(ctx, job, opts, &res, log)

	switch {
	case res.Err != nil && errors.Is(res.Err, context.Canceled):
		log.Debug("cancelled")
	case res.Err != nil:
		log.WithError(res.Err).Error("conversion failed")
	case res.Skipped:
		log.Info("skipped, already in destination")
	default:
		entry := log.WithFields(logrus.Fields{
			"width":     res.Width,
			"height":    res.Height,
			"quality":   res.Quality,
			"attempts":  res.Attempts,
			"bytes_in":  res.BytesIn,
			"bytes_out": res.BytesOut,
		})
		if res.BudgetMet {
			entry.Infof("%dx%d -> %dx%d, %s -> %s",
				res.SourceWidth, res.SourceHeight, res.Width, res.Height,
				humanize.IBytes(uint64(res.BytesIn)), humanize.IBytes(uint64(res.BytesOut)))
		} else {
			entry.Warnf("size budget of %s not met, kept %s",
				humanize.IBytes(uint64(opts.Limits.MaxBytes)), humanize.IBytes(uint64(res.BytesOut)))
		}
	}
	return res
}

func convert(ctx context.Context, job Job, opts Options, res *Result, log logrus.FieldLogger) error {
	if opts.SkipExisting {
		exists, err := opts.Dest.Exists(ctx, job.RelPath)
		if err != nil {
			return err
		}
		if exists {
			res.Skipped = true
			return nil
		}
	}

	data, err := os.ReadFile(job.Path)
	if err != nil {
		return fmt.Errorf("%w: read source: %v", storage.ErrStorage, err)
	}
	res.BytesIn = int64(len(data))

	img, _, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}

	res.Orientation = 1
	if !opts.IgnoreOrientation {
		res.Orientation = readOrientation(data)
		img = applyOrientation(img, res.Orientation)
	}

	b := img.Bounds()
	res.SourceWidth, res.SourceHeight = b.Dx(), b.Dy()
	plan := fit.PlanFor(res.SourceWidth, res.SourceHeight, opts.Limits.MaxLongestSide)

	enc, err := fit.EncoderFor(filepath.Ext(job.Path))
	if err != nil {
		return err
	}
	res.Encoder = enc.Name()

	out, err := fit.Fit(ctx, img, plan, enc, opts.Limits, fit.Options{
		Observer: func(a fit.Attempt) {
			log.WithFields(logrus.Fields{"attempt": a.Number, "quality": a.Quality, "size": a.Size}).Debug("encoded")
		},
	})
	if err != nil {
		return err
	}
	res.Width, res.Height = out.Width, out.Height
	res.Quality, res.Attempts = out.Quality, out.Attempts
	res.BudgetMet = out.BudgetMet(opts.Limits.MaxBytes)

	if err := opts.Dest.Write(ctx, job.RelPath, out.Bytes); err != nil {
		return err
	}

	size, err := opts.Dest.Size(ctx, job.RelPath)
	if err != nil {
		return err
	}
	res.BytesOut = size
	return nil
}
