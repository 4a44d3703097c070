// Package catalog keeps a Postgres copy of the georef hierarchy and loads it
// from a georef.Source.
package catalog

import "errors"

// ErrNotFound reports a province or department absent from the catalog.
var ErrNotFound = errors.New("catalog: not found")

// Province is a stored provincia.
type Province struct {
	ID     int64
	Nombre string
}

// Department is a stored departamento.
type Department struct {
	ID         int64
	ProvinceID int64
	Nombre     string
}

// Locality is a stored localidad.
type Locality struct {
	ID           int64
	DepartmentID int64
	Nombre       string
}
