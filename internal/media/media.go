// Package media stores uploaded event images in S3-compatible storage.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// PublicURL is the base URL objects are served from, e.g. a CDN origin.
	PublicURL string
}

func (c Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

var ErrNotConfigured = errors.New("image storage not configured")

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var ErrUnsupportedType = errors.New("unsupported image type")

type Store struct {
	client    s3Client
	bucket    string
	publicURL string
}

// New returns a Store, or nil when cfg is incomplete.
func New(cfg Config) *Store {
	if !cfg.Enabled() {
		return nil
	}
	return &Store{
		client:    newS3Client(cfg),
		bucket:    cfg.Bucket,
		publicURL: publicBase(cfg),
	}
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func publicBase(cfg Config) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// UploadEventImage stores an image under events/{eventID}/ and returns its public URL.
func (s *Store) UploadEventImage(ctx context.Context, eventID, contentType string, body io.Reader, size int64) (string, error) {
	if s == nil {
		return "", ErrNotConfigured
	}
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}

	key := path.Join("events", eventID, uuid.NewString()+ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return s.publicURL + "/" + key, nil
}

// DeleteByURL removes an object previously returned by UploadEventImage.
// URLs that do not belong to this store are ignored.
func (s *Store) DeleteByURL(ctx context.Context, url string) error {
	if s == nil || !strings.HasPrefix(url, s.publicURL+"/") {
		return nil
	}
	key := strings.TrimPrefix(url, s.publicURL+"/")
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete from s3: %w", err)
	}
	return nil
}
