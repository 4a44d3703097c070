package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/alquiler-vehiculos/sucursales/internal/georef"
)

// LoaderMaxDepartments is the department page size used while loading.
const LoaderMaxDepartments = 500

// LoadStats counts rows inserted by a load. Rows that already existed are
// not counted.
type LoadStats struct {
	Provinces   int64 `json:"provinces"`
	Departments int64 `json:"departments"`
	Localities  int64 `json:"localities"`
}

// Loader copies the georef hierarchy into the catalog.
type Loader struct {
	source      georef.Source
	repo        Repository
	logger      *slog.Logger
	concurrency int
}

// NewLoader constructs a Loader. concurrency bounds the simultaneous locality
// fetches per province.
func NewLoader(source georef.Source, repo Repository, logger *slog.Logger, concurrency int) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Loader{source: source, repo: repo, logger: logger, concurrency: concurrency}
}

// Load walks provinces, their departments and their localities. When only is
// non-empty just the province whose folded name matches is loaded; an
// unknown name yields ErrNotFound. Re-running a load is idempotent.
func (l *Loader) Load(ctx context.Context, only string) (LoadStats, error) {
	var stats LoadStats

	provinces, err := l.source.Provinces(ctx)
	if err != nil {
		return stats, fmt.Errorf("catalog: list provinces: %w", err)
	}
	if only != "" {
		provinces = filterProvince(provinces, only)
		if len(provinces) == 0 {
			return stats, fmt.Errorf("catalog: province %q: %w", only, ErrNotFound)
		}
	}

	l.logger.Info("loading georef catalog", slog.Int("provinces", len(provinces)))
	for _, p := range provinces {
		if err := l.loadProvince(ctx, p.Nombre, &stats); err != nil {
			return stats, err
		}
	}
	l.logger.Info("georef catalog loaded",
		slog.Int64("provinces", stats.Provinces),
		slog.Int64("departments", stats.Departments),
		slog.Int64("localities", stats.Localities))
	return stats, nil
}

func (l *Loader) loadProvince(ctx context.Context, nombre string, stats *LoadStats) error {
	province, inserted, err := l.repo.UpsertProvince(ctx, nombre)
	if err != nil {
		return fmt.Errorf("catalog: store province %q: %w", nombre, err)
	}
	if inserted {
		stats.Provinces++
	}
	logger := l.logger.With(slog.String("provincia", province.Nombre))

	departments, err := l.source.Departments(ctx, nombre)
	if err != nil {
		return fmt.Errorf("catalog: list departments of %q: %w", nombre, err)
	}
	logger.Info("loading departments", slog.Int("count", len(departments)))

	var localities atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, d := range departments {
		department, inserted, err := l.repo.UpsertDepartment(ctx, province.ID, d.Nombre)
		if err != nil {
			_ = g.Wait()
			return fmt.Errorf("catalog: store department %q: %w", d.Nombre, err)
		}
		if inserted {
			stats.Departments++
		}
		g.Go(func() error {
			locs, err := l.source.Localities(gctx, nombre, department.Nombre)
			if err != nil {
				return fmt.Errorf("catalog: list localities of %q/%q: %w", nombre, department.Nombre, err)
			}
			n, err := l.repo.UpsertLocalities(gctx, department.ID, georef.Names(locs))
			if err != nil {
				return fmt.Errorf("catalog: store localities of %q: %w", department.Nombre, err)
			}
			localities.Add(int64(n))
			logger.Debug("localities loaded", slog.String("departamento", department.Nombre), slog.Int("count", len(locs)))
			return nil
		})
	}
	err = g.Wait()
	stats.Localities += localities.Load()
	return err
}

func filterProvince(provinces []georef.Location, name string) []georef.Location {
	key := georef.Fold(name)
	for _, p := range provinces {
		if georef.Fold(p.Nombre) == key {
			return []georef.Location{p}
		}
	}
	return nil
}
