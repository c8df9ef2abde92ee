package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when a key does not resolve to stored content.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidKey is returned for keys that cannot address an object.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// FileInfo describes one stored object.
type FileInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage is the object store recordings are committed to.
type Storage interface {
	// Write replaces key with r. size is -1 when unknown.
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read opens key. Missing keys return an error wrapping ErrNotFound.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns every object whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]FileInfo, error)

	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns an address clients can fetch key from. Backends
	// that sign URLs honour expires.
	GetURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
