// Package storage publishes synthesized audio to Amazon S3 so clients can
// fetch it by URL instead of receiving it inline. Ad-hoc responses land under
// the configured prefix; lesson narration segments are written to explicit
// keys through PutObject.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/cognia-intellilearn/voicegate/internal/config"
)

// S3API is the subset of the S3 client used by the publisher.
type S3API interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads audio objects under a key prefix.
type S3Publisher struct {
	api     S3API
	bucket  string
	prefix  string
	baseURL string
	now     func() time.Time
}

// NewS3Publisher creates a publisher from an AWS session.
func NewS3Publisher(sess client.ConfigProvider, cfg config.StorageConfig, region string) *S3Publisher {
	return NewS3PublisherWithAPI(s3.New(sess), cfg, region)
}

// NewS3PublisherWithAPI wraps an existing S3 client. Object URLs are built
// from cfg.PublicBaseURL, or the bucket's regional endpoint when it is empty.
func NewS3PublisherWithAPI(api S3API, cfg config.StorageConfig, region string) *S3Publisher {
	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}
	return &S3Publisher{
		api:     api,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		baseURL: baseURL,
		now:     time.Now,
	}
}

// Publish uploads audio under a generated response key and returns its
// public URL. metadata is stored as S3 user metadata.
func (p *S3Publisher) Publish(ctx context.Context, audio []byte, contentType string, metadata map[string]string) (string, error) {
	return p.PutObject(ctx, p.objectKey(), audio, contentType, metadata)
}

// PutObject uploads audio to key and returns its public URL.
func (p *S3Publisher) PutObject(ctx context.Context, key string, audio []byte, contentType string, metadata map[string]string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(audio),
		ContentLength: aws.Int64(int64(len(audio))),
		ContentType:   aws.String(contentType),
	}
	if len(metadata) > 0 {
		input.Metadata = aws.StringMap(metadata)
	}

	if _, err := p.api.PutObjectWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("uploading audio to s3://%s/%s: %w", p.bucket, key, err)
	}

	slog.Debug("audio uploaded", "bucket", p.bucket, "key", key, "bytes", len(audio))
	return p.baseURL + "/" + key, nil
}

// objectKey returns <prefix>/response_<unix-ms>_<9 alnum>.mp3.
func (p *S3Publisher) objectKey() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	name := fmt.Sprintf("response_%d_%s.mp3", p.now().UnixMilli(), suffix)
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}
