package processor

import (
	"io"

	"github.com/sirupsen/logrus"

	"imgfit/internal/fit"
	"imgfit/internal/storage"
)

type Options struct {
	Dest   storage.Storage
	Limits fit.Limits

	// Workers <= 0 means one per CPU.
	Workers int

	IgnoreOrientation bool
	SkipExisting      bool

	// ExcludeDir is skipped while walking, typically a local output
	// directory nested in the source tree.
	ExcludeDir string

	Logger logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type Job struct {
	Path    string
	RelPath string // slash separated, relative to the source root
	Display string
}

type Result struct {
	Path    string
	RelPath string
	Display string

	Supported bool
	Skipped   bool
	Err       error

	SourceWidth  int
	SourceHeight int
	Orientation  int
	Width        int
	Height       int
	Quality      int
	Attempts     int
	Encoder      string
	BudgetMet    bool
	BytesIn      int64
	BytesOut     int64
}

type Summary struct {
	Total        int
	Processed    int
	Failed       int
	Skipped      int
	BudgetMisses int
	BytesIn      int64
	BytesOut     int64
}

// BytesSaved is the size reduction over processed files.
func (s Summary) BytesSaved() int64 {
	return s.BytesIn - s.BytesOut
}

type ProgressUpdate struct {
	TotalDelta      int
	ProcessedDelta  int
	FailedDelta     int
	SkippedDelta    int
	BudgetMissDelta int
	BytesSavedDelta int64
}
