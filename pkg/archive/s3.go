package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrBucketRequired is returned when no bucket is configured.
var ErrBucketRequired = errors.New("archive bucket must be provided")

// Config describes the object store that receives archived audit rows.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// S3Archiver writes archive payloads to an S3 compatible bucket.
type S3Archiver struct {
	client *s3.Client
	bucket string
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewS3Archiver builds an archiver. Static credentials are used when both keys are set,
// otherwise the default AWS credential chain applies.
func NewS3Archiver(ctx context.Context, cfg Config, logger zerolog.Logger) (*S3Archiver, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, ErrBucketRequired
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &S3Archiver{
		client: client,
		bucket: cfg.Bucket,
		tracer: otel.Tracer("github.com/noah-isme/ebulletin-go-api/pkg/archive"),
		logger: logger.With().Str("component", "audit_archive").Logger(),
	}, nil
}

// Archive uploads payload under key as a JSON object.
func (a *S3Archiver) Archive(ctx context.Context, key string, payload []byte) error {
	ctx, span := a.tracer.Start(ctx, "archive.put", trace.WithAttributes(
		attribute.String("s3.bucket", a.bucket),
		attribute.String("s3.key", key),
		attribute.Int("content.size", len(payload)),
	))
	defer span.End()

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "put object failed")
		return fmt.Errorf("failed to archive %s: %w", key, err)
	}

	span.SetStatus(codes.Ok, "archived")
	a.logger.Info().Str("key", key).Int("bytes", len(payload)).Msg("audit archive uploaded")
	return nil
}
