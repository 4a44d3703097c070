package catalog

import (
	"context"

	"github.com/alquiler-vehiculos/sucursales/internal/georef"
)

// Service serves the stored catalog as a georef.Source.
type Service struct {
	repo Repository
}

// NewService constructs the catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Provinces implements georef.Source.
func (s *Service) Provinces(ctx context.Context) ([]georef.Location, error) {
	provinces, err := s.repo.ListProvinces(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]georef.Location, len(provinces))
	for i, p := range provinces {
		out[i] = georef.Location{Nombre: p.Nombre}
	}
	return out, nil
}

// Departments implements georef.Source.
func (s *Service) Departments(ctx context.Context, provincia string) ([]georef.Location, error) {
	departments, err := s.repo.ListDepartments(ctx, provincia)
	if err != nil {
		return nil, err
	}
	out := make([]georef.Location, len(departments))
	for i, d := range departments {
		out[i] = georef.Location{Nombre: d.Nombre}
	}
	return out, nil
}

// Localities implements georef.Source.
func (s *Service) Localities(ctx context.Context, provincia, departamento string) ([]georef.Location, error) {
	localities, err := s.repo.ListLocalities(ctx, provincia, departamento)
	if err != nil {
		return nil, err
	}
	out := make([]georef.Location, len(localities))
	for i, l := range localities {
		out[i] = georef.Location{Nombre: l.Nombre}
	}
	return out, nil
}
