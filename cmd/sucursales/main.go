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

	"github.com/alquiler-vehiculos/sucursales/internal/app"
	"github.com/alquiler-vehiculos/sucursales/internal/catalog"
	"github.com/alquiler-vehiculos/sucursales/internal/georef"
	georefhttp "github.com/alquiler-vehiculos/sucursales/internal/georef/http"
	"github.com/alquiler-vehiculos/sucursales/internal/observability"
	"github.com/alquiler-vehiculos/sucursales/internal/platform/cache"
	"github.com/alquiler-vehiculos/sucursales/internal/platform/db"
	"github.com/alquiler-vehiculos/sucursales/internal/shared"
	"github.com/alquiler-vehiculos/sucursales/internal/sucursales"
	sucursaleshttp "github.com/alquiler-vehiculos/sucursales/internal/sucursales/http"
	"github.com/alquiler-vehiculos/sucursales/internal/view"
	"github.com/alquiler-vehiculos/sucursales/jobs"
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
	metrics := observability.NewMetrics()

	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var source georef.Source = georef.NewClient(cfg.GeorefBaseURL, cfg.GeorefTimeout, georef.WithObserver(metrics.ObserveGeoref))
	if cfg.UsesCatalog() {
		if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
			logger.Error("migrate catalog", slog.Any("error", err))
			os.Exit(1)
		}
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		source = catalog.NewService(catalog.NewRepository(pool))
	}
	if cfg.GeorefCacheTTL > 0 {
		source = georef.NewCachedSource(source, redisClient, cfg.GeorefCacheTTL, logger)
	}
	logger.Info("georef source ready", slog.String("source", cfg.GeorefSource), slog.Duration("cache_ttl", cfg.GeorefCacheTTL))

	sessionManager := shared.NewSessionManager(redisClient, shared.SessionOptions{
		CookieName: "sucursales_session",
		Secret:     cfg.SessionSecret,
		TTL:        cfg.SessionTTL,
		Secure:     cfg.IsProduction(),
	})
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	sucursalClient := sucursales.NewClient(cfg.SucursalesAPIURL, cfg.SucursalesTimeout)
	sucursalHandler := sucursaleshttp.NewHandler(logger, source, sucursalClient, templates, csrfManager)
	georefHandler := georefhttp.NewHandler(logger, source)

	inspector := asynq.NewInspector(redisOpts.QueueOpt())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		SucursalHandler: sucursalHandler,
		GeorefHandler:   georefHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
