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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/rollcall-hq/rollcall/internal/app"
	"github.com/rollcall-hq/rollcall/internal/observability"
	"github.com/rollcall-hq/rollcall/internal/platform/db"
	"github.com/rollcall-hq/rollcall/internal/shift"
	"github.com/rollcall-hq/rollcall/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	metrics := observability.NewMetrics()
	shiftRepo := shift.NewRepository(pool, cfg.StoreTimeout)
	scanner := jobs.NewOpenShiftScanner(shiftRepo, metrics, logger, cfg.OpenShiftMaxAge)

	scanTask, err := jobs.NewOpenShiftScanTask(jobs.OpenShiftScanPayload{})
	if err != nil {
		logger.Error("build scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeOpenShiftScan, Handler: scanner.HandleTask},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 * * *", Task: scanTask},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	health := http.NewServeMux()
	health.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	health.Handle("/metrics", metrics.Handler())
	healthServer := &http.Server{Addr: cfg.WorkerAddr, Handler: health}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("worker processing jobs")
		return worker.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("worker http listening", slog.String("addr", cfg.WorkerAddr))
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
