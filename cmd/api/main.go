package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"github.com/mzsawicki/shopery-backend/internal/catalog"
	"github.com/mzsawicki/shopery-backend/internal/clock"
	"github.com/mzsawicki/shopery-backend/internal/config"
	"github.com/mzsawicki/shopery-backend/internal/dispatch"
	"github.com/mzsawicki/shopery-backend/internal/httpapi"
	"github.com/mzsawicki/shopery-backend/internal/inbox"
	"github.com/mzsawicki/shopery-backend/internal/postgres"
	"github.com/mzsawicki/shopery-backend/internal/projector"
	"github.com/mzsawicki/shopery-backend/internal/search"
	"github.com/mzsawicki/shopery-backend/internal/storage"
	"github.com/mzsawicki/shopery-backend/internal/telemetry"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration failed", zap.Error(err))
	}

	// ── OpenTelemetry ──────────────────────────────────────────────────────
	tp, err := telemetry.InitTracerProvider(context.Background(), "shopery-api", cfg.OTELEndpoint)
	if err != nil {
		logger.Error("failed to init OTel tracer", zap.Error(err))
	} else if tp != nil {
		defer tp.Shutdown(context.Background())
		logger.Info("OTel tracer initialized", zap.String("endpoint", cfg.OTELEndpoint))
	}

	// ── Database ───────────────────────────────────────────────────────────
	pool, err := postgres.Connect(context.Background(), cfg.PostgresDSN(), logger)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()

	// ── Object storage ─────────────────────────────────────────────────────
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

	// ── Redis ──────────────────────────────────────────────────────────────
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})

	// ── Dispatcher ─────────────────────────────────────────────────────────
	// The dev toggle swaps JetStream for an in-process dispatcher that runs
	// the projector inline, so a single binary serves the whole flow.
	var dispatcher dispatch.Dispatcher
	if cfg.InMemoryDispatcher {
		memory := dispatch.NewMemoryDispatcher(logger)
		worker := projector.NewWorker(nil,
			inbox.New(pool), search.NewStore(redisClient, logger), clock.System{}, logger)
		memory.Register(worker.Handle)
		dispatcher = memory
		logger.Info("using in-memory dispatcher")
	} else {
		natsClient, err := dispatch.NewClient(cfg.NATSURL, logger)
		if err != nil {
			logger.Fatal("NATS initialization failed", zap.Error(err))
		}
		defer natsClient.Close()
		if err := natsClient.ProvisionStream(); err != nil {
			logger.Fatal("NATS stream provisioning failed", zap.Error(err))
		}
		dispatcher = dispatch.NewJetStreamDispatcher(natsClient)
	}

	// ── Services ───────────────────────────────────────────────────────────
	catalogSvc := catalog.NewService(pool, dispatcher, store, clock.System{}, logger, cfg.MaxUploadFileSizeBytes)
	searchSvc := search.NewService(redisClient, logger)

	// ── HTTP server ────────────────────────────────────────────────────────
	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware("shopery-api"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("HTTP request",
				zap.String("URI", v.URI),
				zap.Int("status", v.Status),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
	}))

	httpapi.New(catalogSvc, searchSvc, logger).Register(e)

	go func() {
		logger.Info("shopery-api HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failure", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Echo shutdown error", zap.Error(err))
	}
	logger.Info("shopery-api shut down cleanly")
}
