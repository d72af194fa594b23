package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/prn-tf/storefront/internal/config"
	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/pkg/crypto"
)

// ImageStore persists product images and returns their public reference.
type ImageStore interface {
	Put(ctx context.Context, data []byte) (url string, err error)
}

// ObjectPutter is the subset of the S3 client used by S3ImageStore.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ImageStore stores images in an S3 bucket under content-addressed keys.
// Uploading the same bytes twice writes the same key.
type S3ImageStore struct {
	client  ObjectPutter
	bucket  string
	baseURL string
	maxSize int64
	keys    KeyConfig
	logger  zerolog.Logger
}

// NewS3ImageStore creates an image store.
func NewS3ImageStore(client ObjectPutter, cfg config.ImagesConfig, logger zerolog.Logger) *S3ImageStore {
	return &S3ImageStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxSize: cfg.MaxSize,
		keys:    DefaultKeyConfig(),
		logger:  logger.With().Str("component", "image-store").Logger(),
	}
}

// NewS3Client builds an S3 client from the image configuration.
// Static credentials are used when configured; otherwise the default AWS chain applies.
func NewS3Client(ctx context.Context, cfg config.ImagesConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Put validates data as an image, uploads it, and returns its public URL.
func (s *S3ImageStore) Put(ctx context.Context, data []byte) (string, error) {
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return "", domain.ErrImageTooLarge
	}

	info, err := DetectImage(data)
	if err != nil {
		return "", err
	}

	key := ComputeKey(s.keys, crypto.ComputeSHA256(data), info.Extension)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(info.ContentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("bucket", s.bucket).Str("key", key).Msg("failed to upload image")
		return "", fmt.Errorf("%w: failed to upload image: %v", domain.ErrUnavailable, err)
	}

	s.logger.Info().
		Str("key", key).
		Str("format", info.Format).
		Int("width", info.Width).
		Int("height", info.Height).
		Int("size", len(data)).
		Msg("image uploaded")

	return s.baseURL + "/" + key, nil
}

// Ensure S3ImageStore implements ImageStore.
var _ ImageStore = (*S3ImageStore)(nil)
