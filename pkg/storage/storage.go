package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("file not found")

// Storage persists uploaded files and resolves their public URLs.
type Storage interface {
	// Put stores content under key and returns its public URL.
	Put(ctx context.Context, key string, content io.Reader) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
	URL(key string) string
	Exists(ctx context.Context, key string) (bool, error)
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}
