package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgfit/internal/fit"
	"imgfit/internal/storage"
)

func TestWatchConvertsNewFiles(t *testing.T) {
	old := WatchDebounce
	WatchDebounce = 50 * time.Millisecond
	t.Cleanup(func() { WatchDebounce = old })

	src := t.TempDir()
	dst := t.TempDir()
	staging := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(src, "sub"), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan Result, 4)
	type outcome struct {
		summary Summary
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		s, err := Watch(ctx, src, Options{Dest: storage.NewLocal(dst), Limits: fit.DefaultLimits()}, func(r Result) {
			results <- r
		})
		done <- outcome{s, err}
	}()

	time.Sleep(200 * time.Millisecond)

	staged := filepath.Join(staging, "new.png")
	saveImage(t, staged, gradient(1500, 300))
	require.NoError(t, os.Rename(staged, filepath.Join(src, "sub", "new.png")))

	select {
	case res := <-results:
		require.NoError(t, res.Err)
		assert.Equal(t, "sub/new.png", res.RelPath)
		assert.Equal(t, 1024, res.Width)
		assert.Equal(t, 205, res.Height)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for watch result")
	}

	cancel()
	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, 1, out.summary.Processed)
	assert.FileExists(t, filepath.Join(dst, "sub", "new.png"))
}

func TestWatchRejectsSourceAsDestination(t *testing.T) {
	src := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Watch(ctx, src, Options{Dest: storage.NewLocal(src), Limits: fit.DefaultLimits(), ExcludeDir: src}, nil)
	assert.ErrorIs(t, err, ErrDestinationIsSource)
}

func TestWatchRejectsFile(t *testing.T) {
	src := t.TempDir()
	path := filepath.Join(src, "a.png")
	saveImage(t, path, gradient(8, 8))

	_, err := Watch(context.Background(), path, Options{Dest: storage.NewLocal(t.TempDir()), Limits: fit.DefaultLimits()}, nil)
	assert.Error(t, err)
}
