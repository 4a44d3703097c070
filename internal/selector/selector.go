// Package selector implements the sucursal form component: three cascading
// select controls (provincia → departamento → localidad) fed by a georef
// Source, two free-text fields and an output line written by Submit.
//
// A Selector is safe for concurrent use. Every cascading level carries a
// generation counter, so a response that arrives after its parent selection
// changed is discarded with ErrStale instead of overwriting newer options.
package selector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alquiler-vehiculos/sucursales/internal/georef"
	"github.com/alquiler-vehiculos/sucursales/internal/sucursales"
)

// SuccessMessage is written to the output after the backend accepts a record.
const SuccessMessage = "Sucursal guardada exitosamente."

// ErrorPrefix precedes the backend's error document in the output.
const ErrorPrefix = "Error: "

var (
	// ErrStale reports a response dropped because a newer selection superseded it.
	ErrStale = errors.New("selector: response superseded by a newer selection")
	// ErrNoSubmitter is returned by Submit when the Selector was built without one.
	ErrNoSubmitter = errors.New("selector: submitter not configured")
	// ErrNotOffered reports a value missing from the control's loaded options.
	ErrNotOffered = errors.New("selector: value not among the loaded options")
)

// Submitter persists a sucursal record.
type Submitter interface {
	Create(ctx context.Context, form sucursales.Form, csrfToken string) (json.RawMessage, error)
}

// Snapshot is a copy of the whole form state, suitable for rendering.
type Snapshot struct {
	Provincia    ControlState
	Departamento ControlState
	Localidad    ControlState
	Nombre       string
	Direccion    string
	Respuesta    string
}

// Selector owns the form controls for one page mount.
type Selector struct {
	source    georef.Source
	submitter Submitter
	logger    *slog.Logger

	mu           sync.Mutex
	provincia    *control
	departamento *control
	localidad    *control
	nombre       string
	direccion    string
	respuesta    string

	// generations: provGen guards the province list, depGen the department
	// list, locGen the locality list.
	provGen uint64
	depGen  uint64
	locGen  uint64
}

// New constructs a Selector. submitter may be nil for read-only use.
func New(source georef.Source, submitter Submitter, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		source:       source,
		submitter:    submitter,
		logger:       logger,
		provincia:    newControl(FieldProvincia, PlaceholderProvincia),
		departamento: newControl(FieldDepartamento, PlaceholderDepartamento),
		localidad:    newControl(FieldLocalidad, PlaceholderLocalidad),
	}
}

// Init loads the province list.
func (s *Selector) Init(ctx context.Context) error {
	s.mu.Lock()
	s.provGen++
	gen := s.provGen
	s.provincia.reset()
	s.provincia.state = StateLoading
	s.mu.Unlock()

	provinces, err := s.source.Provinces(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.provGen {
		return ErrStale
	}
	if err != nil {
		s.provincia.fail(err)
		s.logger.Warn("load provinces", slog.Any("error", err))
		return fmt.Errorf("selector: load provinces: %w", err)
	}
	s.provincia.appendOptions(georef.Names(provinces))
	return nil
}

// SelectProvince sets the province, clears the department and locality
// controls and loads the departments of provincia.
func (s *Selector) SelectProvince(ctx context.Context, provincia string) error {
	s.mu.Lock()
	s.provincia.value = provincia
	s.departamento.reset()
	s.localidad.reset()
	s.depGen++
	s.locGen++
	gen := s.depGen
	s.departamento.state = StateLoading
	s.mu.Unlock()

	departments, err := s.source.Departments(ctx, provincia)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.depGen {
		s.logger.Debug("discard stale departments", slog.String("provincia", provincia))
		return ErrStale
	}
	if err != nil {
		s.departamento.fail(err)
		s.logger.Warn("load departments", slog.String("provincia", provincia), slog.Any("error", err))
		return fmt.Errorf("selector: load departments of %q: %w", provincia, err)
	}
	s.departamento.appendOptions(georef.Names(departments))
	return nil
}

// SelectDepartment sets the department, clears the locality control and
// loads the localities of the current province and departamento. A
// departamento missing from the loaded department list is refused with
// ErrNotOffered and changes nothing.
func (s *Selector) SelectDepartment(ctx context.Context, departamento string) error {
	s.mu.Lock()
	if !s.departamento.offers(departamento) {
		provincia := s.provincia.value
		s.mu.Unlock()
		return fmt.Errorf("%w: departamento %q in %q", ErrNotOffered, departamento, provincia)
	}
	provincia := s.provincia.value
	s.departamento.value = departamento
	s.localidad.reset()
	s.locGen++
	gen := s.locGen
	s.localidad.state = StateLoading
	s.mu.Unlock()

	localities, err := s.source.Localities(ctx, provincia, departamento)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.locGen {
		s.logger.Debug("discard stale localities", slog.String("provincia", provincia), slog.String("departamento", departamento))
		return ErrStale
	}
	if err != nil {
		s.localidad.fail(err)
		s.logger.Warn("load localities", slog.String("provincia", provincia), slog.String("departamento", departamento), slog.Any("error", err))
		return fmt.Errorf("selector: load localities of %q/%q: %w", provincia, departamento, err)
	}
	s.localidad.appendOptions(georef.Names(localities))
	return nil
}

// SelectLocality sets the locality value. A localidad missing from the
// loaded locality list is refused with ErrNotOffered.
func (s *Selector) SelectLocality(localidad string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.localidad.offers(localidad) {
		return fmt.Errorf("%w: localidad %q in %q", ErrNotOffered, localidad, s.departamento.value)
	}
	s.localidad.value = localidad
	return nil
}

// SetField sets one of the free-text fields (nombre, direccion). Unknown
// names are ignored.
func (s *Selector) SetField(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case FieldNombre:
		s.nombre = value
	case FieldDireccion:
		s.direccion = value
	}
}

// Form returns the record as it would be submitted now.
func (s *Selector) Form() sucursales.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formLocked()
}

// Submit sends the current values to the backend. On acceptance the output
// reads SuccessMessage and every field is reset. On rejection the output
// reads ErrorPrefix followed by the backend's error document and the fields
// are kept. Any other failure is returned and leaves the output untouched.
func (s *Selector) Submit(ctx context.Context, csrfToken string) error {
	if s.submitter == nil {
		return ErrNoSubmitter
	}
	form := s.Form()

	_, err := s.submitter.Create(ctx, form, csrfToken)
	if err != nil {
		var apiErr *sucursales.APIError
		if !errors.As(err, &apiErr) {
			s.logger.Error("submit sucursal", slog.Any("error", err))
			return fmt.Errorf("selector: submit: %w", err)
		}
		doc, serr := stringifyJSON(apiErr.Body)
		if serr != nil {
			return fmt.Errorf("selector: submit: %w", serr)
		}
		s.mu.Lock()
		s.respuesta = ErrorPrefix + doc
		s.mu.Unlock()
		s.logger.Info("sucursal rejected", slog.Int("status", apiErr.StatusCode))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.respuesta = SuccessMessage
	s.resetLocked()
	s.logger.Info("sucursal created", slog.String("nombre", form.Nombre), slog.String("provincia", form.Provincia))
	return nil
}

// Output returns the text of the output area.
func (s *Selector) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.respuesta
}

// Snapshot copies the state of every control.
func (s *Selector) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Provincia:    s.provincia.snapshot(),
		Departamento: s.departamento.snapshot(),
		Localidad:    s.localidad.snapshot(),
		Nombre:       s.nombre,
		Direccion:    s.direccion,
		Respuesta:    s.respuesta,
	}
}

func (s *Selector) formLocked() sucursales.Form {
	return sucursales.Form{
		Nombre:       s.nombre,
		Provincia:    s.provincia.value,
		Departamento: s.departamento.value,
		Localidad:    s.localidad.value,
		Direccion:    s.direccion,
	}
}

// resetLocked empties every field. Province options stay loaded; the
// dependent lists are dropped since no province is selected any more, and
// in-flight dependent fetches are invalidated.
func (s *Selector) resetLocked() {
	s.nombre = ""
	s.direccion = ""
	s.provincia.value = ""
	s.departamento.reset()
	s.localidad.reset()
	s.depGen++
	s.locGen++
}
