package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local stores objects as files under Root.
type Local struct {
	Root string
}

func NewLocal(root string) *Local {
	return &Local{Root: root}
}

func (l *Local) Location() string {
	if abs, err := filepath.Abs(l.Root); err == nil {
		return abs
	}
	return l.Root
}

func (l *Local) EnsureDestination(_ context.Context) error {
	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrStorage, l.Root, err)
	}
	return nil
}

// Write stores data through a temp file in the target directory and a rename.
func (l *Local) Write(_ context.Context, name string, data []byte) error {
	destPath, err := l.path(name)
	if err != nil {
		return err
	}
	destDir := filepath.Dir(destPath)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	tmpFile, err := os.CreateTemp(destDir, ".imgfit-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("%w: write %s: %v", ErrStorage, name, err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := replaceFile(tmpFile.Name(), destPath); err != nil {
		return fmt.Errorf("%w: rename %s: %v", ErrStorage, name, err)
	}
	return nil
}

func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	p, err := l.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
}

func (l *Local) Size(_ context.Context, name string) (int64, error) {
	p, err := l.path(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %w: %s", ErrStorage, ErrNotFound, name)
		}
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return info.Size(), nil
}

func (l *Local) path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: %w: empty name", ErrStorage, ErrInvalidName)
	}
	root := filepath.Clean(l.Root)
	full := filepath.Join(root, filepath.FromSlash(name))
	if !isWithin(full, root) || full == root {
		return "", fmt.Errorf("%w: %w: %s", ErrStorage, ErrInvalidName, name)
	}
	return full, nil
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
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
