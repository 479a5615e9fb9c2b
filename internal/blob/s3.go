package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// S3Config holds configuration for an S3-compatible blob store.
// Supports AWS S3, MinIO, Wasabi, and other S3-compatible services.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Validate checks if the configuration is valid.
func (c S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("s3 blob store: bucket is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("s3 blob store: access_key_id is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("s3 blob store: secret_access_key is required")
	}
	return nil
}

// S3Store stores blobs in an S3 bucket.
type S3Store struct {
	bucket   string
	client   *s3.Client
	uploader *manager.Uploader
	logger   zerolog.Logger
}

// NewS3Store creates an S3Store and verifies bucket access.
func NewS3Store(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("s3 blob store: load config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("s3 blob store: access bucket %s: %w", cfg.Bucket, err)
	}

	return &S3Store{
		bucket:   cfg.Bucket,
		client:   client,
		uploader: manager.NewUploader(client),
		logger:   logger.With().Str("component", "blob_s3").Logger(),
	}, nil
}

// Put stores the bytes under key using a managed multipart upload.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return wrapErr(ctx, "put", key, err)
	}
	s.logger.Debug().Str("key", key).Int64("size", size).Msg("blob stored")
	return nil
}

// Get returns a reader over the bytes at key.
func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, notFoundErr(key)
		}
		return nil, wrapErr(ctx, "get", key, err)
	}
	return out.Body, nil
}

// Delete removes the bytes at key. A missing object is reported as not
// found so callers can distinguish it from transport failures.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isS3NotFound(err) {
			return notFoundErr(key)
		}
		return wrapErr(ctx, "delete", key, err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return wrapErr(ctx, "delete", key, err)
	}
	s.logger.Debug().Str("key", key).Msg("blob deleted")
	return nil
}

// isS3NotFound reports whether the error is a missing-object response.
func isS3NotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
