package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mzsawicki/shopery-backend/internal/config"
	"github.com/mzsawicki/shopery-backend/internal/dispatch"
	"github.com/mzsawicki/shopery-backend/internal/postgres"
	"github.com/mzsawicki/shopery-backend/internal/search"
	"github.com/mzsawicki/shopery-backend/internal/storage"
)

// Bootstrap idempotently provisions everything the api and worker depend
// on: SQL schema, search index, object-storage buckets, JetStream stream.
// It exits non-zero on the first failure so orchestration can gate the
// other binaries on its success.
func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// ── SQL schema ─────────────────────────────────────────────────────────
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN(), logger)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("schema provisioning failed", zap.Error(err))
	}
	logger.Info("SQL schema ensured")

	// ── Search index ───────────────────────────────────────────────────────
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
	if err := search.NewStore(redisClient, logger).EnsureIndex(ctx); err != nil {
		logger.Fatal("search index provisioning failed", zap.Error(err))
	}
	logger.Info("search index ensured", zap.String("index", search.IndexName))

	// ── Object-storage buckets ─────────────────────────────────────────────
	store, err := storage.New(storage.Options{
		Endpoint:      cfg.S3Endpoint,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Region:        cfg.S3Region,
		UseSSL:        cfg.S3UseSSL,
		PublicBaseURL: cfg.EmulatedS3URL,
	}, logger)
	if err != nil {
		logger.Fatal("object storage initialization failed", zap.Error(err))
	}
	for _, bucket := range []string{storage.BucketProductImages, storage.BucketBrandLogos} {
		if err := store.EnsureBucket(ctx, bucket); err != nil {
			logger.Fatal("bucket provisioning failed",
				zap.String("bucket", bucket), zap.Error(err))
		}
	}
	logger.Info("object-storage buckets ensured")

	// ── JetStream stream ───────────────────────────────────────────────────
	if !cfg.InMemoryDispatcher {
		natsClient, err := dispatch.NewClient(cfg.NATSURL, logger)
		if err != nil {
			logger.Fatal("NATS initialization failed", zap.Error(err))
		}
		defer natsClient.Close()
		if err := natsClient.ProvisionStream(); err != nil {
			logger.Fatal("NATS stream provisioning failed", zap.Error(err))
		}
		logger.Info("JetStream stream ensured", zap.String("stream", dispatch.StreamTasks))
	}

	logger.Info("bootstrap complete")
}
