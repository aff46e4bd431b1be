package processor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"imgfit/internal/storage"
)

// ErrDestinationIsSource rejects runs that would write over their inputs.
var ErrDestinationIsSource = errors.New("output path resolves to input path")

// CheckDestination fails when dest is a local directory that maps output
// names onto the source files under root.
func CheckDestination(root string, dest storage.Storage) error {
	local, ok := dest.(*storage.Local)
	if !ok {
		return nil
	}

	srcDir, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if info, err := os.Stat(srcDir); err == nil && !info.IsDir() {
		srcDir = filepath.Dir(srcDir)
	}

	if samePath(local.Location(), srcDir) {
		return fmt.Errorf("%w: %s", ErrDestinationIsSource, local.Location())
	}
	return nil
}

func samePath(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if a == b {
		return true
	}
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	return errA == nil && errB == nil && ra == rb
}
