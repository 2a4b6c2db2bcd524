package storage

import (
	"context"
	"errors"
	"io"
)

var ErrFileNotFound = errors.New("file not found")

// ImageStore persists vehicle images under opaque keys.
type ImageStore interface {
	// Save stores the content read from r and returns its new key.
	Save(ctx context.Context, ext string, r io.Reader) (string, error)
	// Open returns the stored content; ErrFileNotFound when key is unknown.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
