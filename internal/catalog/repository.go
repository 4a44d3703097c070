package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alquiler-vehiculos/sucursales/internal/georef"
	"github.com/alquiler-vehiculos/sucursales/internal/platform/db"
)

// Repository persists the catalog. Upserts are get-or-create on the folded
// name within the parent and report whether a row was inserted.
type Repository interface {
	UpsertProvince(ctx context.Context, nombre string) (Province, bool, error)
	UpsertDepartment(ctx context.Context, provinceID int64, nombre string) (Department, bool, error)
	UpsertLocalities(ctx context.Context, departmentID int64, nombres []string) (int, error)
	ListProvinces(ctx context.Context) ([]Province, error)
	ListDepartments(ctx context.Context, provincia string) ([]Department, error)
	ListLocalities(ctx context.Context, provincia, departamento string) ([]Locality, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) UpsertProvince(ctx context.Context, nombre string) (Province, bool, error) {
	const query = `INSERT INTO provincias (nombre, clave) VALUES ($1, $2)
ON CONFLICT (clave) DO UPDATE SET nombre = EXCLUDED.nombre, updated_at = NOW()
RETURNING id, nombre, (xmax = 0) AS inserted`
	var p Province
	var inserted bool
	err := r.pool.QueryRow(ctx, query, nombre, georef.Fold(nombre)).Scan(&p.ID, &p.Nombre, &inserted)
	return p, inserted, err
}

func (r *repository) UpsertDepartment(ctx context.Context, provinceID int64, nombre string) (Department, bool, error) {
	const query = `INSERT INTO departamentos (provincia_id, nombre, clave) VALUES ($1, $2, $3)
ON CONFLICT (provincia_id, clave) DO UPDATE SET nombre = EXCLUDED.nombre, updated_at = NOW()
RETURNING id, provincia_id, nombre, (xmax = 0) AS inserted`
	var d Department
	var inserted bool
	err := r.pool.QueryRow(ctx, query, provinceID, nombre, georef.Fold(nombre)).Scan(&d.ID, &d.ProvinceID, &d.Nombre, &inserted)
	return d, inserted, err
}

func (r *repository) UpsertLocalities(ctx context.Context, departmentID int64, nombres []string) (int, error) {
	inserted := 0
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		n, err := upsertLocalities(ctx, tx, departmentID, nombres)
		inserted = n
		return err
	})
	return inserted, err
}

func upsertLocalities(ctx context.Context, q querier, departmentID int64, nombres []string) (int, error) {
	const query = `INSERT INTO localidades (departamento_id, nombre, clave) VALUES ($1, $2, $3)
ON CONFLICT (departamento_id, clave) DO NOTHING`
	inserted := 0
	for _, nombre := range nombres {
		tag, err := q.Exec(ctx, query, departmentID, nombre, georef.Fold(nombre))
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (r *repository) ListProvinces(ctx context.Context) ([]Province, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, nombre FROM provincias ORDER BY nombre`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var provinces []Province
	for rows.Next() {
		var p Province
		if err := rows.Scan(&p.ID, &p.Nombre); err != nil {
			return nil, err
		}
		provinces = append(provinces, p)
	}
	return provinces, rows.Err()
}

func (r *repository) ListDepartments(ctx context.Context, provincia string) ([]Department, error) {
	var provinceID int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM provincias WHERE clave = $1`, georef.Fold(provincia)).Scan(&provinceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, provincia_id, nombre FROM departamentos WHERE provincia_id = $1 ORDER BY nombre`, provinceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.ProvinceID, &d.Nombre); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

func (r *repository) ListLocalities(ctx context.Context, provincia, departamento string) ([]Locality, error) {
	const lookup = `SELECT d.id FROM departamentos d
JOIN provincias p ON p.id = d.provincia_id
WHERE p.clave = $1 AND d.clave = $2`
	var departmentID int64
	err := r.pool.QueryRow(ctx, lookup, georef.Fold(provincia), georef.Fold(departamento)).Scan(&departmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, departamento_id, nombre FROM localidades WHERE departamento_id = $1 ORDER BY nombre`, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var localities []Locality
	for rows.Next() {
		var l Locality
		if err := rows.Scan(&l.ID, &l.DepartmentID, &l.Nombre); err != nil {
			return nil, err
		}
		localities = append(localities, l)
	}
	return localities, rows.Err()
}
