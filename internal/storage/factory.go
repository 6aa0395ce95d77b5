package storage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rmitchellscott/pdfgateway/internal/config"
	"github.com/rmitchellscott/pdfgateway/internal/logging"
)

// New builds the staging backend selected by cfg.
func New(ctx context.Context, cfg config.Staging) (Backend, error) {
	switch cfg.Backend {
	case "s3":
		backend, err := createS3Backend(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 backend: %w", err)
		}
		logging.Logf("[STORAGE] Initialized S3 staging backend: s3://%s/%s (endpoint: %s)", cfg.S3Bucket, cfg.S3Prefix, cfg.S3Endpoint)
		return backend, nil

	case "filesystem", "":
		logging.Logf("[STORAGE] Initialized filesystem staging backend: %s", cfg.Dir)
		return NewFilesystemBackend(cfg.Dir), nil

	default:
		return nil, fmt.Errorf("unknown staging backend: %s", cfg.Backend)
	}
}

func createS3Backend(ctx context.Context, cfg config.Staging) (*S3Backend, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required for S3 backend")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	// Without static keys the default chain applies (env, shared config, IAM role).
	if cfg.S3AccessKeyID != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.S3Endpoint != "" {
		if _, err := url.Parse(cfg.S3Endpoint); err != nil {
			return nil, fmt.Errorf("invalid S3_ENDPOINT: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3ForcePathStyle
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.S3Bucket),
	}); err != nil {
		return nil, fmt.Errorf("failed to access S3 bucket %s: %w", cfg.S3Bucket, err)
	}

	return NewS3Backend(client, cfg.S3Bucket, cfg.S3Prefix), nil
}
