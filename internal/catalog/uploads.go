package catalog

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/mzsawicki/shopery-backend/internal/storage"
)

// contentTypes maps the accepted image extensions to their MIME types.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// UploadProductImage validates and stores a product image, returning the
// public URL to embed in a subsequent product write.
func (s *catalogService) UploadProductImage(ctx context.Context, filename string, size int64, r io.Reader) (string, error) {
	return s.upload(ctx, storage.BucketProductImages, filename, size, r)
}

// UploadBrandLogo validates and stores a brand logo.
func (s *catalogService) UploadBrandLogo(ctx context.Context, filename string, size int64, r io.Reader) (string, error) {
	return s.upload(ctx, storage.BucketBrandLogos, filename, size, r)
}

func (s *catalogService) upload(ctx context.Context, bucket, filename string, size int64, r io.Reader) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := contentTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s (accepted: jpg, jpeg, png)", ErrFileFormat, ext)
	}
	if size > s.maxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, size, s.maxUploadBytes)
	}

	guid, err := newGUID()
	if err != nil {
		return "", err
	}
	key := guid + ext

	url, err := s.storage.Upload(ctx, bucket, key, contentType, r, size)
	if err != nil {
		s.logger.Error("upload failed",
			zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.logger.Info("file uploaded", zap.String("bucket", bucket), zap.String("key", key))
	return url, nil
}
