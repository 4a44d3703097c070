package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/alquiler-vehiculos/sucursales/internal/app"
	"github.com/alquiler-vehiculos/sucursales/internal/catalog"
	"github.com/alquiler-vehiculos/sucursales/internal/georef"
	"github.com/alquiler-vehiculos/sucursales/internal/platform/cache"
	"github.com/alquiler-vehiculos/sucursales/internal/platform/db"
	"github.com/alquiler-vehiculos/sucursales/jobs"
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

	if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
		logger.Error("migrate catalog", slog.Any("error", err))
		os.Exit(1)
	}
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	source := georef.NewClient(cfg.GeorefBaseURL, cfg.GeorefTimeout, georef.WithMaxDepartments(catalog.LoaderMaxDepartments))
	loader := catalog.NewLoader(source, catalog.NewRepository(pool), logger, cfg.GeorefLoadConcurrency)
	loadJob := jobs.NewGeorefLoadJob(loader, logger, nil)

	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	if cfg.UsesCatalog() && cfg.GeorefCacheTTL > 0 {
		redisClient, err := cache.New(ctx, redisOpts)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisClient.Close()
		loadJob.Cache = georef.NewCachedSource(source, redisClient, cfg.GeorefCacheTTL, logger)
	}

	var cron []jobs.CronRegistration
	if cfg.GeorefLoadCron != "" {
		task, err := jobs.NewGeorefLoadTask(jobs.GeorefLoadPayload{})
		if err != nil {
			logger.Error("build georef load task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.GeorefLoadCron, Task: task, Options: []asynq.Option{asynq.MaxRetry(3)}})
		logger.Info("georef load scheduled", slog.String("cron", cfg.GeorefLoadCron))
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts.QueueOpt(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGeorefLoad, Handler: loadJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
