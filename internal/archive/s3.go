package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3API is the subset of the S3 client used for archives.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Store keeps archives in an S3 bucket under a key prefix.
type s3Store struct {
	client S3API
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewS3Store creates a store backed by the default AWS credential chain.
func NewS3Store(ctx context.Context, bucket, region, prefix string, logger zerolog.Logger) (Store, error) {
	logger = logger.With().Str("component", "s3-archive").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Str("prefix", prefix).
		Msg("S3 archive store initialised")

	return NewS3StoreWithClient(s3.NewFromConfig(cfg), bucket, prefix, logger), nil
}

// NewS3StoreWithClient creates a store over an existing client.
func NewS3StoreWithClient(client S3API, bucket, prefix string, logger zerolog.Logger) Store {
	return &s3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

func (s *s3Store) Save(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	key := s.prefix + name

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(data),
		ContentLength:   aws.Int64(int64(len(data))),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("bucket", s.bucket).Str("key", key).Msg("failed to put archive")
		return fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}

	s.logger.Info().Str("bucket", s.bucket).Str("key", key).Int("bytes", len(data)).Msg("archive uploaded")
	return nil
}

func (s *s3Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	key := s.prefix + name

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("bucket", s.bucket).Str("key", key).Msg("failed to get archive")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}
	return out.Body, nil
}

// fallbackStore prefers the primary store and uses the secondary when the
// primary is disabled, missing or failing.
type fallbackStore struct {
	primary   Store
	secondary Store
	enabled   bool
	logger    zerolog.Logger
}

// NewFallbackStore creates a store that tries primary first. If primary is
// nil or enabled is false only secondary is used.
func NewFallbackStore(primary, secondary Store, enabled bool, logger zerolog.Logger) Store {
	return &fallbackStore{
		primary:   primary,
		secondary: secondary,
		enabled:   enabled,
		logger:    logger.With().Str("component", "fallback-archive").Logger(),
	}
}

func (s *fallbackStore) usePrimary() bool {
	return s.enabled && s.primary != nil
}

func (s *fallbackStore) Save(ctx context.Context, name string, data []byte) error {
	if s.usePrimary() {
		err := s.primary.Save(ctx, name, data)
		if err == nil {
			return nil
		}
		s.logger.Warn().Err(err).Str("archive", name).Msg("primary archive store failed, saving locally")
	}
	return s.secondary.Save(ctx, name, data)
}

func (s *fallbackStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if s.usePrimary() {
		rc, err := s.primary.Open(ctx, name)
		if err == nil {
			return rc, nil
		}
		s.logger.Warn().Err(err).Str("archive", name).Msg("primary archive store failed, reading locally")
	}
	return s.secondary.Open(ctx, name)
}
