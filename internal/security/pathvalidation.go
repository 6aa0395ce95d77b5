package security

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	ErrPathTraversal = errors.New("path contains directory traversal sequences")
	ErrAbsolutePath  = errors.New("absolute paths are not allowed")
	ErrEmptyPath     = errors.New("path cannot be empty")
	ErrInvalidPath   = errors.New("invalid path")
)

// maxNameBytes mirrors the common filesystem limit for a single component.
const maxNameBytes = 255

// ValidateStorageKey rejects staging keys that could escape the staging root.
func ValidateStorageKey(key string) error {
	if key == "" {
		return ErrEmptyPath
	}

	if strings.Contains(key, "\x00") {
		return ErrInvalidPath
	}

	if strings.Contains(key, "..") {
		return ErrPathTraversal
	}

	if filepath.IsAbs(key) || strings.HasPrefix(key, "/") || strings.HasPrefix(key, "\\") {
		return ErrAbsolutePath
	}

	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." {
			return ErrPathTraversal
		}
	}

	return nil
}

// CleanUploadName reduces a client supplied file name to a bare base name.
// Browsers on some platforms send full paths; those are cut at the last
// separator of either kind. The result is never empty.
func CleanUploadName(name string) string {
	name = strings.ReplaceAll(name, "\x00", "")
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}

	if len(name) > maxNameBytes {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		stem := name[:maxNameBytes-len(ext)]
		for !utf8.ValidString(stem) && len(stem) > 0 {
			stem = stem[:len(stem)-1]
		}
		name = stem + ext
	}
	return name
}
