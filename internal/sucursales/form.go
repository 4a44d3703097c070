// Package sucursales submits branch office records to the backend REST API
// and serves the HTML form that collects them.
package sucursales

// Form is the record submitted to the backend. Values are taken verbatim from
// the form controls.
type Form struct {
	Nombre       string `json:"nombre"`
	Provincia    string `json:"provincia"`
	Departamento string `json:"departamento"`
	Localidad    string `json:"localidad"`
	Direccion    string `json:"direccion"`
}
