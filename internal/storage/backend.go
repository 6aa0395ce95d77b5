package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when no object exists at the key.
var ErrNotFound = errors.New("key not found")

// Backend holds staged uploads for the lifetime of one request.
type Backend interface {
	// Put stores data at the given key and returns the number of bytes written
	Put(ctx context.Context, key string, data io.Reader) (int64, error)

	// Get retrieves data from the given key
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object at the given key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists at the given key
	Exists(ctx context.Context, key string) (bool, error)

	// Kind names the backend for logs and the config endpoint
	Kind() string
}

// countingReader tracks how many bytes passed through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
