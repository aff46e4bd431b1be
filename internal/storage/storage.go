// Package storage persists converted images. Backends share one contract:
// Write is atomic per object, so readers never observe a partial file.
package storage

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrStorage wraps every backend failure.
	ErrStorage = errors.New("storage error")
	// ErrNotFound is returned by Size for a missing object.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidName rejects names escaping the destination root.
	ErrInvalidName = errors.New("invalid object name")
)

// Storage is the destination of a conversion run. Names are slash separated
// and relative to the destination root.
type Storage interface {
	Write(ctx context.Context, name string, data []byte) error
	Exists(ctx context.Context, name string) (bool, error)
	Size(ctx context.Context, name string) (int64, error)
	EnsureDestination(ctx context.Context) error
	// Location describes where output goes, for logs.
	Location() string
}

// Open picks a backend for dest: "s3://bucket/prefix" selects S3, anything
// else is a local directory.
func Open(ctx context.Context, dest string, cfg S3Config) (Storage, error) {
	if strings.HasPrefix(dest, "s3://") {
		bucket, prefix, err := ParseS3URL(dest)
		if err != nil {
			return nil, err
		}
		cfg.Bucket = bucket
		cfg.Prefix = prefix
		return NewS3(ctx, cfg)
	}
	return NewLocal(dest), nil
}
