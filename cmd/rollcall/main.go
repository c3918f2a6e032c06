package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rollcall-hq/rollcall/internal/app"
	"github.com/rollcall-hq/rollcall/internal/identity"
	"github.com/rollcall-hq/rollcall/internal/location"
	"github.com/rollcall-hq/rollcall/internal/observability"
	"github.com/rollcall-hq/rollcall/internal/perimeter"
	"github.com/rollcall-hq/rollcall/internal/platform/cache"
	"github.com/rollcall-hq/rollcall/internal/platform/db"
	"github.com/rollcall-hq/rollcall/internal/shift"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	verifier := identity.NewJWTVerifier(cfg.AuthJWTSecret)

	perimeterRepo := perimeter.NewRepository(pool, cfg.StoreTimeout)
	perimeterCache := perimeter.NewCache(redisClient, cfg.PerimeterCacheTTL)
	perimeterService := perimeter.NewService(perimeterRepo, perimeterCache, metrics)
	perimeterHandler := perimeter.NewHandler(logger, perimeterService)

	shiftRepo := shift.NewRepository(pool, cfg.StoreTimeout)
	shiftService := shift.NewService(shiftRepo, perimeterService, metrics, logger)
	shiftHandler := shift.NewHandler(logger, shiftService)

	locationStore := location.NewStore(redisClient, cfg.LocationTTL)
	locationHandler := location.NewHandler(logger, locationStore)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Verifier:         verifier,
		PerimeterHandler: perimeterHandler,
		ShiftHandler:     shiftHandler,
		LocationHandler:  locationHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
