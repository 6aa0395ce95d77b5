// Package staging moves inbound uploads into the staging backend and checks
// them against per-operation limits before anything is sent upstream.
package staging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rmitchellscott/pdfgateway/internal/logging"
	"github.com/rmitchellscott/pdfgateway/internal/security"
	"github.com/rmitchellscott/pdfgateway/internal/storage"
)

// KeyPrefix is the directory staged uploads are written under.
const KeyPrefix = "uploads"

// sniffLen matches the read limit mimetype uses for detection.
const sniffLen = 3072

// StagedFile describes one upload held in the staging backend.
type StagedFile struct {
	Path         string // staging backend key
	OriginalName string
	SizeBytes    int64
	MimeType     string
}

// Stager writes uploads into a storage.Backend under fresh keys.
type Stager struct {
	backend storage.Backend
	newKey  func(ext string) string
}

func NewStager(backend storage.Backend) *Stager {
	return &Stager{
		backend: backend,
		newKey: func(ext string) string {
			return KeyPrefix + "/" + uuid.NewString() + ext
		},
	}
}

// Backend returns the backend staged files live in.
func (s *Stager) Backend() storage.Backend { return s.backend }

// Stage copies every header into the backend. Files above maxFileBytes are
// rejected with ErrFileTooLarge before anything is written; maxFileBytes <= 0
// disables the check. On any error the files already staged are removed.
func (s *Stager) Stage(ctx context.Context, headers []*multipart.FileHeader, maxFileBytes int64) ([]StagedFile, error) {
	if maxFileBytes > 0 {
		for _, fh := range headers {
			if fh.Size > maxFileBytes {
				return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, security.CleanUploadName(fh.Filename))
			}
		}
	}

	staged := make([]StagedFile, 0, len(headers))
	for _, fh := range headers {
		sf, err := s.stageOne(ctx, fh)
		if err != nil {
			s.Remove(context.WithoutCancel(ctx), staged)
			return nil, err
		}
		staged = append(staged, sf)
	}
	return staged, nil
}

func (s *Stager) stageOne(ctx context.Context, fh *multipart.FileHeader) (StagedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return StagedFile{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	name := security.CleanUploadName(fh.Filename)
	mimeType := declaredType(fh.Header.Get("Content-Type"))

	var body io.Reader = src
	if mimeType == "" {
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(src, head)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return StagedFile{}, fmt.Errorf("read upload %s: %w", name, err)
		}
		head = head[:n]
		mimeType = mimetype.Detect(head).String()
		body = io.MultiReader(bytes.NewReader(head), src)
	}

	key := s.newKey(keyExt(name))
	size, err := s.backend.Put(ctx, key, body)
	if err != nil {
		return StagedFile{}, fmt.Errorf("stage upload %s: %w", name, err)
	}

	return StagedFile{
		Path:         key,
		OriginalName: name,
		SizeBytes:    size,
		MimeType:     mimeType,
	}, nil
}

// Remove deletes files from the backend, logging and skipping failures.
func (s *Stager) Remove(ctx context.Context, files []StagedFile) {
	for _, f := range files {
		if err := s.backend.Delete(ctx, f.Path); err != nil {
			logging.Warnf("[STAGING] failed to remove %s: %v", f.Path, err)
		}
	}
}

// declaredType drops parameters and ignores the generic binary type, which
// browsers send when they do not know better.
func declaredType(ct string) string {
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil || mt == "application/octet-stream" {
		return ""
	}
	return mt
}

func keyExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
