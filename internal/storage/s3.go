// Package storage is the S3-compatible object-storage gateway behind the
// image and logo upload endpoints.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Bucket names provisioned at bootstrap.
const (
	BucketProductImages = "product-images"
	BucketBrandLogos    = "brand-logos"
)

// Gateway uploads objects and reports the public URL they are served from.
type Gateway interface {
	Upload(ctx context.Context, bucket, key, contentType string, r io.Reader, size int64) (string, error)
}

// S3Gateway talks to any S3-compatible endpoint (AWS, MinIO, localstack).
type S3Gateway struct {
	client *minio.Client
	logger *zap.Logger

	// publicBaseURL overrides the endpoint in returned URLs when storage
	// runs behind a local emulator with a different public address.
	publicBaseURL string
	useSSL        bool
	endpoint      string
}

// Options configures the gateway connection.
type Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Region        string
	UseSSL        bool
	PublicBaseURL string
}

// New connects to the object-storage endpoint.
func New(opts Options, logger *zap.Logger) (*S3Gateway, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object storage: %w", err)
	}
	logger.Info("object storage connected", zap.String("endpoint", opts.Endpoint))
	return &S3Gateway{
		client:        client,
		logger:        logger,
		publicBaseURL: strings.TrimSuffix(opts.PublicBaseURL, "/"),
		useSSL:        opts.UseSSL,
		endpoint:      opts.Endpoint,
	}, nil
}

// Upload stores the object and returns its public URL. Buckets carry a
// public-read policy, so the URL is directly servable.
func (g *S3Gateway) Upload(ctx context.Context, bucket, key, contentType string, r io.Reader, size int64) (string, error) {
	_, err := g.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return g.publicURL(bucket, key), nil
}

// EnsureBucket idempotently creates the bucket with a public-read policy.
func (g *S3Gateway) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := g.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := g.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket %s: %w", bucket, err)
		}
		g.logger.Info("created bucket", zap.String("bucket", bucket))
	}

	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:GetObject"],
			"Resource": ["arn:aws:s3:::%s/*"]
		}]
	}`, bucket)
	if err := g.client.SetBucketPolicy(ctx, bucket, policy); err != nil {
		return fmt.Errorf("set bucket policy %s: %w", bucket, err)
	}
	return nil
}

func (g *S3Gateway) publicURL(bucket, key string) string {
	if g.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", g.publicBaseURL, bucket, key)
	}
	scheme := "http"
	if g.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, g.endpoint, bucket, key)
}
