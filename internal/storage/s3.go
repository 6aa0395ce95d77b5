package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/rmitchellscott/pdfgateway/internal/logging"
	"github.com/rmitchellscott/pdfgateway/internal/security"
)

type S3Backend struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

func NewS3Backend(client *s3.Client, bucket, prefix string) *S3Backend {
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.Concurrency = 5
	})

	return &S3Backend{
		client:   client,
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(normalizeKey(prefix), "/"),
	}
}

func (s3b *S3Backend) Kind() string { return "s3" }

func (s3b *S3Backend) Put(ctx context.Context, key string, data io.Reader) (int64, error) {
	objectKey, err := s3b.objectKey(key)
	if err != nil {
		return 0, err
	}

	counter := &countingReader{r: data}
	result, err := s3b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s3b.bucket),
		Key:    aws.String(objectKey),
		Body:   counter,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to put object %s: %w", key, err)
	}

	log := logging.Default()
	log.Debug().
		Str("bucket", s3b.bucket).
		Str("key", objectKey).
		Str("etag", aws.ToString(result.ETag)).
		Int64("bytes", counter.n).
		Msg("staged object")
	return counter.n, nil
}

func (s3b *S3Backend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := s3b.objectKey(key)
	if err != nil {
		return nil, err
	}

	result, err := s3b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s3b.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}

	return result.Body, nil
}

func (s3b *S3Backend) Delete(ctx context.Context, key string) error {
	objectKey, err := s3b.objectKey(key)
	if err != nil {
		return err
	}

	_, err = s3b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s3b.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}

	return nil
}

func (s3b *S3Backend) Exists(ctx context.Context, key string) (bool, error) {
	objectKey, err := s3b.objectKey(key)
	if err != nil {
		return false, err
	}

	_, err = s3b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s3b.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existence of %s: %w", key, err)
	}

	return true, nil
}

func (s3b *S3Backend) objectKey(key string) (string, error) {
	key = normalizeKey(key)
	if err := security.ValidateStorageKey(key); err != nil {
		return "", fmt.Errorf("invalid storage key %s: %w", key, err)
	}
	if s3b.prefix == "" {
		return key, nil
	}
	return path.Join(s3b.prefix, key), nil
}

// HeadObject reports a missing key as NotFound, GetObject as NoSuchKey.
// Operations without a modeled error still carry the code.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func normalizeKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	return strings.ReplaceAll(key, "\\", "/")
}
