// Package georef talks to the Argentine georef API (apis.datos.gob.ar) and
// exposes its province, department and locality listings as a Source.
package georef

import "context"

// Location is a single entry of a georef listing. Nombre doubles as value and
// label wherever it is offered for selection.
type Location struct {
	Nombre string `json:"nombre"`
}

// Source lists the three levels of the administrative hierarchy.
type Source interface {
	Provinces(ctx context.Context) ([]Location, error)
	Departments(ctx context.Context, provincia string) ([]Location, error)
	Localities(ctx context.Context, provincia, departamento string) ([]Location, error)
}

type provinciasResponse struct {
	Provincias []Location `json:"provincias"`
}

type departamentosResponse struct {
	Departamentos []Location `json:"departamentos"`
}

type localidadesResponse struct {
	Localidades []Location `json:"localidades"`
}

// Names returns the Nombre of every location, in order.
func Names(locations []Location) []string {
	names := make([]string, len(locations))
	for i, loc := range locations {
		names[i] = loc.Nombre
	}
	return names
}
