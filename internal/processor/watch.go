package processor

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"imgfit/pkg/imgutil"
)

// WatchDebounce is how long a path must stay quiet before it is converted.
var WatchDebounce = 500 * time.Millisecond

// Watch converts images created or modified under root until ctx is done.
// onResult, when set, is called from worker goroutines after each file.
func Watch(ctx context.Context, root string, opts Options, onResult func(Result)) (Summary, error) {
	var summary Summary

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return summary, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return summary, err
	}
	if !info.IsDir() {
		return summary, fmt.Errorf("watch: %s is not a directory", root)
	}

	if err := CheckDestination(absRoot, opts.Dest); err != nil {
		return summary, err
	}
	if err := opts.Dest.EnsureDestination(ctx); err != nil {
		return summary, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return summary, fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	excludeAbs := resolveExclude(opts.ExcludeDir, absRoot)
	log := opts.logger()

	if err := addTree(fw, absRoot, excludeAbs); err != nil {
		return summary, err
	}
	log.WithField("dir", absRoot).Info("watching")

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	sem := make(chan struct{}, workers)

	var (
		mu        sync.Mutex
		summaryMu sync.Mutex
		wg        sync.WaitGroup
		pending   = make(map[string]*time.Timer)
	)

	process := func(path string) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-sem }()

		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			return
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return
		}
		rel = filepath.ToSlash(rel)

		res := ProcessFile(ctx, Job{Path: path, RelPath: rel, Display: rel}, opts)
		summaryMu.Lock()
		summary.add(res)
		summaryMu.Unlock()
		if onResult != nil {
			onResult(res)
		}
	}

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[path]; ok && t.Stop() {
			wg.Done()
		}
		wg.Add(1)
		var t *time.Timer
		t = time.AfterFunc(WatchDebounce, func() {
			defer wg.Done()
			mu.Lock()
			if pending[path] == t {
				delete(pending, path)
			}
			mu.Unlock()
			process(path)
		})
		pending[path] = t
	}

	shutdown := func() {
		mu.Lock()
		for path, t := range pending {
			if t.Stop() {
				wg.Done()
			}
			delete(pending, path)
		}
		mu.Unlock()
		wg.Wait()
	}

	for {
		select {
		case <-ctx.Done():
			shutdown()
			summaryMu.Lock()
			defer summaryMu.Unlock()
			return summary, nil

		case event, ok := <-fw.Events:
			if !ok {
				shutdown()
				return summary, nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if excludeAbs != "" && isWithin(event.Name, excludeAbs) {
				continue
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}

			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := addTree(fw, event.Name, excludeAbs); err != nil {
						log.WithError(err).WithField("dir", event.Name).Warn("failed to watch directory")
					}
					continue
				}
			}
			if !imgutil.IsSupported(event.Name) {
				continue
			}
			schedule(event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				shutdown()
				return summary, nil
			}
			log.WithError(err).Warn("watcher error")
		}
	}
}

// addTree watches dir and every directory below it except excludeAbs.
func addTree(fw *fsnotify.Watcher, dir, excludeAbs string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if excludeAbs != "" && isWithin(path, excludeAbs) {
			return fs.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
