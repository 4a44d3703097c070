package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/alquiler-vehiculos/sucursales/internal/catalog"
	jobmetrics "github.com/alquiler-vehiculos/sucursales/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CatalogLoader copies the georef hierarchy into the catalog.
type CatalogLoader interface {
	Load(ctx context.Context, only string) (catalog.LoadStats, error)
}

// CachePurger drops cached georef listings after the catalog changes.
type CachePurger interface {
	Purge(ctx context.Context) error
}

// GeorefLoadJob runs catalog loads from the queue.
type GeorefLoadJob struct {
	Loader  CatalogLoader
	Cache   CachePurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewGeorefLoadJob wires dependencies for the load handler.
func NewGeorefLoadJob(loader CatalogLoader, logger *slog.Logger, metrics *jobmetrics.Metrics) *GeorefLoadJob {
	return &GeorefLoadJob{Loader: loader, Logger: logger, Metrics: metrics}
}

// Handle processes TaskGeorefLoad tasks. An unknown province is not retried.
func (j *GeorefLoadJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Loader == nil {
		return errors.New("georef load: handler not configured")
	}
	var payload GeorefLoadPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskGeorefLoad)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	if payload.Provincia != "" {
		logger = logger.With(slog.String("provincia", payload.Provincia))
	}
	logger.Info("starting georef load")
	start := time.Now()

	stats, err := j.Loader.Load(ctx, payload.Provincia)
	j.metrics().AddCatalogRows("provincias", stats.Provinces)
	j.metrics().AddCatalogRows("departamentos", stats.Departments)
	j.metrics().AddCatalogRows("localidades", stats.Localities)
	if err != nil {
		logger.Error("georef load failed", slog.Any("error", err))
		if errors.Is(err, catalog.ErrNotFound) {
			return errors.Join(err, asynq.SkipRetry)
		}
		return err
	}

	if j.Cache != nil && stats.Localities+stats.Departments+stats.Provinces > 0 {
		if err := j.Cache.Purge(ctx); err != nil {
			logger.Warn("purge georef cache", slog.Any("error", err))
		}
	}

	logger.Info("completed georef load",
		slog.Int64("provinces", stats.Provinces),
		slog.Int64("departments", stats.Departments),
		slog.Int64("localities", stats.Localities),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *GeorefLoadJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskGeorefLoad))
	}
	return slog.Default().With(slog.String("job", TaskGeorefLoad))
}

func (j *GeorefLoadJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
