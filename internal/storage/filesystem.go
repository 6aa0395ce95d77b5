package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rmitchellscott/pdfgateway/internal/logging"
	"github.com/rmitchellscott/pdfgateway/internal/security"
)

type FilesystemBackend struct {
	basePath string
}

func NewFilesystemBackend(basePath string) *FilesystemBackend {
	return &FilesystemBackend{
		basePath: basePath,
	}
}

func (fs *FilesystemBackend) Kind() string { return "filesystem" }

func (fs *FilesystemBackend) Put(ctx context.Context, key string, data io.Reader) (int64, error) {
	filePath, err := fs.keyToPath(key)
	if err != nil {
		return 0, fmt.Errorf("invalid storage key %s: %w", key, err)
	}
	dirPath := filepath.Dir(filePath)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		logging.Logf("[STORAGE] ERROR: Failed to create directory %s: %v", dirPath, err)
		return 0, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		logging.Logf("[STORAGE] ERROR: Failed to create file %s: %v", filePath, err)
		return 0, fmt.Errorf("failed to create file %s: %w", key, err)
	}

	n, err := io.Copy(file, readerWithContext(ctx, data))
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(filePath)
		return 0, fmt.Errorf("failed to write data to %s: %w", key, err)
	}

	return n, nil
}

func (fs *FilesystemBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath, err := fs.keyToPath(key)
	if err != nil {
		return nil, fmt.Errorf("invalid storage key %s: %w", key, err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open file %s: %w", key, err)
	}

	return file, nil
}

func (fs *FilesystemBackend) Delete(ctx context.Context, key string) error {
	filePath, err := fs.keyToPath(key)
	if err != nil {
		return fmt.Errorf("invalid storage key %s: %w", key, err)
	}

	err = os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	return nil
}

func (fs *FilesystemBackend) Exists(ctx context.Context, key string) (bool, error) {
	filePath, err := fs.keyToPath(key)
	if err != nil {
		return false, fmt.Errorf("invalid storage key %s: %w", key, err)
	}

	_, err = os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existence of %s: %w", key, err)
	}

	return true, nil
}

func (fs *FilesystemBackend) keyToPath(key string) (string, error) {
	if err := security.ValidateStorageKey(key); err != nil {
		return "", err
	}
	return filepath.Join(fs.basePath, filepath.FromSlash(key)), nil
}

// readerWithContext stops a copy once ctx is done.
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return readerFunc(func(p []byte) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return r.Read(p)
	})
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
