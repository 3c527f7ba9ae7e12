package catalog

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mzsawicki/shopery-backend/internal/clock"
	"github.com/mzsawicki/shopery-backend/internal/storage"
)

type fakeGateway struct {
	uploadErr  error
	lastBucket string
	lastKey    string
}

func (f *fakeGateway) Upload(_ context.Context, bucket, key, _ string, _ io.Reader, _ int64) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.lastBucket = bucket
	f.lastKey = key
	return "https://cdn.example.com/" + bucket + "/" + key, nil
}

func uploadService(t *testing.T, gw storage.Gateway) *catalogService {
	t.Helper()
	return &catalogService{
		storage:        gw,
		clock:          clock.System{},
		logger:         zaptest.NewLogger(t),
		maxUploadBytes: 1024,
	}
}

func TestUploadProductImage_Success(t *testing.T) {
	gw := &fakeGateway{}
	svc := uploadService(t, gw)

	url, err := svc.UploadProductImage(context.Background(), "cabbage.JPG", 512, strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, storage.BucketProductImages, gw.lastBucket)
	assert.True(t, strings.HasSuffix(gw.lastKey, ".jpg"), "key keeps the lowercased extension")
	assert.Contains(t, url, gw.lastKey)
}

func TestUploadBrandLogo_UsesLogoBucket(t *testing.T) {
	gw := &fakeGateway{}
	svc := uploadService(t, gw)

	_, err := svc.UploadBrandLogo(context.Background(), "farmary.png", 100, strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, storage.BucketBrandLogos, gw.lastBucket)
}

func TestUpload_RejectsUnsupportedFormat(t *testing.T) {
	svc := uploadService(t, &fakeGateway{})

	_, err := svc.UploadProductImage(context.Background(), "cabbage.gif", 100, strings.NewReader("data"))
	assert.ErrorIs(t, err, ErrFileFormat)

	_, err = svc.UploadProductImage(context.Background(), "noextension", 100, strings.NewReader("data"))
	assert.ErrorIs(t, err, ErrFileFormat)
}

func TestUpload_RejectsOversizedFile(t *testing.T) {
	svc := uploadService(t, &fakeGateway{})

	_, err := svc.UploadProductImage(context.Background(), "cabbage.jpg", 2048, strings.NewReader("data"))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestUpload_StorageFailure(t *testing.T) {
	gw := &fakeGateway{uploadErr: errors.New("connection refused")}
	svc := uploadService(t, gw)

	_, err := svc.UploadProductImage(context.Background(), "cabbage.jpg", 100, strings.NewReader("data"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
