package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alquiler-vehiculos/sucursales/internal/georef"
)

type memoryRepo struct {
	mu          sync.Mutex
	nextID      int64
	provinces   map[string]Province
	departments map[string]Department
	localities  map[string]Locality
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		provinces:   map[string]Province{},
		departments: map[string]Department{},
		localities:  map[string]Locality{},
	}
}

func scopedKey(parent int64, nombre string) string {
	return fmt.Sprintf("%d|%s", parent, georef.Fold(nombre))
}

func (m *memoryRepo) UpsertProvince(ctx context.Context, nombre string) (Province, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := georef.Fold(nombre)
	if p, ok := m.provinces[key]; ok {
		return p, false, nil
	}
	m.nextID++
	p := Province{ID: m.nextID, Nombre: nombre}
	m.provinces[key] = p
	return p, true, nil
}

func (m *memoryRepo) UpsertDepartment(ctx context.Context, provinceID int64, nombre string) (Department, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(provinceID, nombre)
	if d, ok := m.departments[key]; ok {
		return d, false, nil
	}
	m.nextID++
	d := Department{ID: m.nextID, ProvinceID: provinceID, Nombre: nombre}
	m.departments[key] = d
	return d, true, nil
}

func (m *memoryRepo) UpsertLocalities(ctx context.Context, departmentID int64, nombres []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inserted := 0
	for _, n := range nombres {
		key := scopedKey(departmentID, n)
		if _, ok := m.localities[key]; ok {
			continue
		}
		m.nextID++
		m.localities[key] = Locality{ID: m.nextID, DepartmentID: departmentID, Nombre: n}
		inserted++
	}
	return inserted, nil
}

func (m *memoryRepo) ListProvinces(ctx context.Context) ([]Province, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Province, 0, len(m.provinces))
	for _, p := range m.provinces {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

func (m *memoryRepo) ListDepartments(ctx context.Context, provincia string) ([]Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.provinces[georef.Fold(provincia)]
	if !ok {
		return nil, ErrNotFound
	}
	var out []Department
	for _, d := range m.departments {
		if d.ProvinceID == p.ID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

func (m *memoryRepo) ListLocalities(ctx context.Context, provincia, departamento string) ([]Locality, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.provinces[georef.Fold(provincia)]
	if !ok {
		return nil, ErrNotFound
	}
	d, ok := m.departments[scopedKey(p.ID, departamento)]
	if !ok {
		return nil, ErrNotFound
	}
	var out []Locality
	for _, l := range m.localities {
		if l.DepartmentID == d.ID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

type treeSource struct {
	tree      map[string]map[string][]string
	failLocal string
}

func (s treeSource) Provinces(ctx context.Context) ([]georef.Location, error) {
	names := make([]string, 0, len(s.tree))
	for p := range s.tree {
		names = append(names, p)
	}
	sort.Strings(names)
	return toLocations(names), nil
}

func (s treeSource) Departments(ctx context.Context, provincia string) ([]georef.Location, error) {
	names := make([]string, 0)
	for d := range s.tree[provincia] {
		names = append(names, d)
	}
	sort.Strings(names)
	return toLocations(names), nil
}

func (s treeSource) Localities(ctx context.Context, provincia, departamento string) ([]georef.Location, error) {
	if departamento == s.failLocal {
		return nil, errors.New("upstream 500")
	}
	return toLocations(s.tree[provincia][departamento]), nil
}

func toLocations(names []string) []georef.Location {
	out := make([]georef.Location, len(names))
	for i, n := range names {
		out[i] = georef.Location{Nombre: n}
	}
	return out
}

func sampleTree() map[string]map[string][]string {
	return map[string]map[string][]string{
		"Córdoba": {
			"Capital": {"Córdoba"},
			"Colón":   {"Jesús María", "Colonia Caroya", "JESUS MARIA"},
		},
		"Mendoza": {
			"Godoy Cruz": {"Godoy Cruz"},
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoaderLoadsWholeTreeIdempotently(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	loader := NewLoader(treeSource{tree: sampleTree()}, repo, quietLogger(), 2)

	stats, err := loader.Load(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Provinces: 2, Departments: 3, Localities: 4}, stats, "folded duplicates collapse")

	again, err := loader.Load(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, LoadStats{}, again)

	svc := NewService(repo)
	provinces, err := svc.Provinces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Córdoba", "Mendoza"}, georef.Names(provinces))

	locs, err := svc.Localities(ctx, "cordoba", "COLON")
	require.NoError(t, err)
	assert.Equal(t, []string{"Colonia Caroya", "Jesús María"}, georef.Names(locs))
}

func TestLoaderSingleProvince(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	loader := NewLoader(treeSource{tree: sampleTree()}, repo, quietLogger(), 1)

	stats, err := loader.Load(ctx, "MENDOZA")
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Provinces: 1, Departments: 1, Localities: 1}, stats)

	_, err = loader.Load(ctx, "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoaderPropagatesLocalityFailure(t *testing.T) {
	repo := newMemoryRepo()
	loader := NewLoader(treeSource{tree: sampleTree(), failLocal: "Colón"}, repo, quietLogger(), 2)

	_, err := loader.Load(context.Background(), "Córdoba")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Colón")
}

func TestServiceUnknownProvince(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Departments(context.Background(), "Córdoba")
	assert.ErrorIs(t, err, ErrNotFound)
}
