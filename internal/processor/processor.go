package processor

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"imgfit/pkg/imgutil"
)

// Run converts every supported image under root (a directory or a single
// file) into opts.Dest. Per-file failures are counted and logged, never
// returned; the returned error is reserved for problems that stop the whole
// run, such as an unusable destination or cancellation.
func Run(ctx context.Context, root string, opts Options, updates chan<- ProgressUpdate) (Summary, []Result, error) {
	summary := Summary{}
	var results []Result

	info, err := os.Stat(root)
	if err != nil {
		return summary, nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return summary, nil, err
	}

	if err := CheckDestination(absRoot, opts.Dest); err != nil {
		return summary, nil, err
	}
	if err := opts.Dest.EnsureDestination(ctx); err != nil {
		return summary, nil, err
	}

	excludeAbs := resolveExclude(opts.ExcludeDir, absRoot)

	jobs := make(chan Job)
	resultsCh := make(chan Result)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			worker(ctx, jobs, resultsCh, opts, updates)
		}()
	}

	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for res := range resultsCh {
			delta := summary.add(res)
			if updates != nil {
				updates <- delta
			}
			results = append(results, res)
		}
	}()

	producerErr := make(chan error, 1)
	go func() {
		defer close(jobs)

		sendJob := func(job Job) error {
			select {
			case jobs <- job:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		producerErr <- walkImages(absRoot, info.IsDir(), excludeAbs, sendJob)
	}()

	wg.Wait()
	close(resultsCh)
	<-collectorDone

	if err := <-producerErr; err != nil {
		return summary, results, err
	}
	if err := ctx.Err(); err != nil {
		return summary, results, err
	}

	return summary, results, nil
}

func worker(ctx context.Context, jobs <-chan Job, results chan<- Result, opts Options, updates chan<- ProgressUpdate) {
	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		if updates != nil {
			updates <- ProgressUpdate{TotalDelta: 1}
		}
		results <- ProcessFile(ctx, job, opts)
	}
}

// walkImages calls fn for every supported regular file under absRoot,
// or for absRoot itself when it is a file.
func walkImages(absRoot string, isDir bool, excludeAbs string, fn func(Job) error) error {
	if !isDir {
		if !imgutil.IsSupported(absRoot) {
			return nil
		}
		name := filepath.Base(absRoot)
		return fn(Job{Path: absRoot, RelPath: name, Display: name})
	}

	return fs.WalkDir(os.DirFS(absRoot), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		fullPath := filepath.Join(absRoot, filepath.FromSlash(path))
		if d.IsDir() {
			if excludeAbs != "" && isWithin(fullPath, excludeAbs) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !imgutil.IsSupported(path) {
			return nil
		}
		return fn(Job{Path: fullPath, RelPath: path, Display: path})
	})
}

// resolveExclude returns the absolute form of dir when it lies strictly
// inside absRoot, otherwise "".
func resolveExclude(dir, absRoot string) string {
	if dir == "" {
		return ""
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	abs = filepath.Clean(abs)
	if abs == filepath.Clean(absRoot) || !isWithin(abs, absRoot) {
		return ""
	}
	return abs
}

// add folds res into s and returns the matching progress delta.
func (s *Summary) add(res Result) ProgressUpdate {
	delta := ProgressUpdate{}
	if !res.Supported {
		return delta
	}
	s.Total++

	switch {
	case res.Err != nil:
		if errors.Is(res.Err, context.Canceled) {
			return delta
		}
		s.Failed++
		delta.FailedDelta = 1
	case res.Skipped:
		s.Skipped++
		delta.SkippedDelta = 1
	default:
		s.Processed++
		s.BytesIn += res.BytesIn
		s.BytesOut += res.BytesOut
		delta.ProcessedDelta = 1
		delta.BytesSavedDelta = res.BytesIn - res.BytesOut
		if !res.BudgetMet {
			s.BudgetMisses++
			delta.BudgetMissDelta = 1
		}
	}
	return delta
}

func isWithin(path string, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
