package processor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"imgfit/internal/fit"
	"imgfit/internal/storage"
	"imgfit/pkg/imgutil"
)

// Report describes what converting one file would do. Nothing is written.
type Report struct {
	Path    string
	Display string

	Kind     imgutil.Kind
	Encoder  string
	Tunable  bool
	Width    int
	Height   int
	Planned  fit.Plan
	BytesIn  int64
	Metadata Metadata

	Err error
}

// Inspect reports on every supported image under root without decoding
// pixel data or touching a destination.
func Inspect(ctx context.Context, root string, opts Options) ([]Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var reports []Report
	err = walkImages(absRoot, info.IsDir(), resolveExclude(opts.ExcludeDir, absRoot), func(job Job) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		reports = append(reports, inspectFile(job, opts))
		return nil
	})
	return reports, err
}

func inspectFile(job Job, opts Options) Report {
	report := Report{Path: job.Path, Display: job.Display}

	data, err := os.ReadFile(job.Path)
	if err != nil {
		report.Err = fmt.Errorf("%w: read source: %v", storage.ErrStorage, err)
		return report
	}
	report.BytesIn = int64(len(data))
	if kind, err := imgutil.SniffReader(bytes.NewReader(data)); err == nil {
		report.Kind = kind
	}

	cfg, _, err := fit.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		report.Err = err
		return report
	}
	report.Width, report.Height = cfg.Width, cfg.Height

	if enc, err := fit.EncoderFor(filepath.Ext(job.Path)); err == nil {
		report.Encoder = enc.Name()
		report.Tunable = enc.Tunable()
	}

	md, err := analyzeMetadata(data)
	if err != nil {
		opts.logger().WithError(err).WithField("file", job.Display).Debug("unreadable exif")
	}
	report.Metadata = md

	w, h := report.Width, report.Height
	if !opts.IgnoreOrientation && swapsAxes(md.Orientation) {
		w, h = h, w
	}
	report.Planned = fit.PlanFor(w, h, opts.Limits.MaxLongestSide)
	return report
}
