package selector

// Control identifiers, matching the field names of the sucursal form.
const (
	FieldNombre       = "nombre"
	FieldProvincia    = "provincia"
	FieldDepartamento = "departamento"
	FieldLocalidad    = "localidad"
	FieldDireccion    = "direccion"
)

// Placeholder texts shown while a control has nothing to offer.
const (
	PlaceholderProvincia    = "Seleccione una provincia"
	PlaceholderDepartamento = "Seleccione un departamento"
	PlaceholderLocalidad    = "Seleccione una localidad"
	FailedOptions           = "No se pudieron cargar las opciones"
)

// LoadState describes where a select control is in its fetch cycle.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateReady
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Option is one entry of a select control.
type Option struct {
	Value    string
	Label    string
	Disabled bool
}

// ControlState is a point-in-time copy of a select control. Options holds
// the loaded entries only; the placeholder and the failure notice are
// rendered from Placeholder and State.
type ControlState struct {
	Name        string
	Placeholder string
	Options     []Option
	Value       string
	State       LoadState
	Err         string
}

// Selected reports whether v is the control's current value.
func (c ControlState) Selected(v string) bool {
	return c.Value != "" && c.Value == v
}

type control struct {
	name        string
	placeholder string
	options     []Option
	value       string
	state       LoadState
	err         string
}

func newControl(name, placeholder string) *control {
	return &control{name: name, placeholder: placeholder}
}

// reset drops every loaded option, leaving only the placeholder.
func (c *control) reset() {
	c.options = nil
	c.value = ""
	c.state = StateIdle
	c.err = ""
}

func (c *control) appendOptions(names []string) {
	for _, n := range names {
		c.options = append(c.options, Option{Value: n, Label: n})
	}
	c.state = StateReady
	c.err = ""
}

// offers reports whether v is one of the loaded options.
func (c *control) offers(v string) bool {
	if c.state != StateReady {
		return false
	}
	for _, o := range c.options {
		if o.Value == v && !o.Disabled {
			return true
		}
	}
	return false
}

func (c *control) fail(err error) {
	c.state = StateFailed
	c.err = err.Error()
}

func (c *control) snapshot() ControlState {
	opts := make([]Option, len(c.options))
	copy(opts, c.options)
	return ControlState{
		Name:        c.name,
		Placeholder: c.placeholder,
		Options:     opts,
		Value:       c.value,
		State:       c.state,
		Err:         c.err,
	}
}
