package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mzsawicki/shopery-backend/internal/clock"
	"github.com/mzsawicki/shopery-backend/internal/config"
	"github.com/mzsawicki/shopery-backend/internal/dispatch"
	"github.com/mzsawicki/shopery-backend/internal/inbox"
	"github.com/mzsawicki/shopery-backend/internal/postgres"
	"github.com/mzsawicki/shopery-backend/internal/projector"
	"github.com/mzsawicki/shopery-backend/internal/search"
	"github.com/mzsawicki/shopery-backend/internal/sweeper"
	"github.com/mzsawicki/shopery-backend/internal/telemetry"
)

// The worker process runs the projection consumers and the pending-event
// sweeper. Any number of replicas may run; JetStream durable names make
// them competing consumers.
func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration failed", zap.Error(err))
	}

	tp, err := telemetry.InitTracerProvider(context.Background(), "shopery-worker", cfg.OTELEndpoint)
	if err != nil {
		logger.Error("failed to init OTel tracer", zap.Error(err))
	} else if tp != nil {
		defer tp.Shutdown(context.Background())
		logger.Info("OTel tracer initialized", zap.String("endpoint", cfg.OTELEndpoint))
	}

	pool, err := postgres.Connect(context.Background(), cfg.PostgresDSN(), logger)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})

	natsClient, err := dispatch.NewClient(cfg.NATSURL, logger)
	if err != nil {
		logger.Fatal("NATS initialization failed", zap.Error(err))
	}
	defer natsClient.Close()

	// The stream must exist before the consumers bind to it.
	if err := natsClient.ProvisionStream(); err != nil {
		logger.Fatal("NATS stream provisioning failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inboxRepo := inbox.New(pool)
	docStore := search.NewStore(redisClient, logger)

	worker := projector.NewWorker(natsClient, inboxRepo, docStore, clock.System{}, logger)
	if err := worker.Start(ctx); err != nil {
		logger.Fatal("failed to start projection consumers", zap.Error(err))
	}

	dispatcher := dispatch.NewJetStreamDispatcher(natsClient)
	sw := sweeper.New(inboxRepo, dispatcher, clock.System{}, cfg.SweeperGrace, logger)
	if err := sw.Start(ctx); err != nil {
		logger.Fatal("failed to start sweeper", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("initiating graceful shutdown")

	cancel()
	sw.Stop()
	logger.Info("shopery-worker shut down cleanly")
}
