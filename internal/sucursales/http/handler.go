// Package sucursaleshttp serves the server-rendered sucursal form.
package sucursaleshttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alquiler-vehiculos/sucursales/internal/georef"
	"github.com/alquiler-vehiculos/sucursales/internal/selector"
	"github.com/alquiler-vehiculos/sucursales/internal/shared"
	"github.com/alquiler-vehiculos/sucursales/internal/sucursales"
	"github.com/alquiler-vehiculos/sucursales/internal/view"
)

// FormPath is where the form is mounted.
const FormPath = "/sucursales/nueva"

// Values of the evento form field, naming the control that triggered a POST.
const (
	EventProvince   = "provincia"
	EventDepartment = "departamento"
	EventSave       = "guardar"
)

const (
	pageTitle        = "Nueva sucursal"
	msgUnreachable   = "No se pudo contactar el servicio de sucursales."
	msgBadRequest    = "Solicitud inválida."
	msgStaleChoice   = "La selección cambió. Elija nuevamente departamento y localidad."
	requestTimeout   = 15 * time.Second
	formTemplateName = "pages/sucursal_form.html"
)

// Handler renders the form and replays its events through a Selector.
type Handler struct {
	logger    *slog.Logger
	source    georef.Source
	submitter selector.Submitter
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs the sucursal form handler.
func NewHandler(logger *slog.Logger, source georef.Source, submitter selector.Submitter, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, source: source, submitter: submitter, templates: templates, csrf: csrf}
}

// MountRoutes registers the form routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(FormPath, h.showForm)
	r.Post(FormPath, h.handleEvent)
}

type pageData struct {
	Form   selector.Snapshot
	Errors map[string]string
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sel := selector.New(h.source, h.submitter, h.logger)
	// A failed province load is shown on the control itself.
	_ = sel.Init(ctx)
	h.render(w, r, sel, nil, http.StatusOK)
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, msgBadRequest, http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	evento := r.PostFormValue("evento")
	sel, stale := h.replay(ctx, r, evento)
	if evento != EventSave {
		h.render(w, r, sel, nil, http.StatusOK)
		return
	}
	if stale {
		h.render(w, r, sel, map[string]string{"general": msgStaleChoice}, http.StatusBadRequest)
		return
	}

	token, _ := shared.GetCookie(r.Header.Get("Cookie"), shared.BackendCSRFCookie)
	err := sel.Submit(ctx, token)
	var apiErr *sucursales.APIError
	switch {
	case err == nil:
		h.render(w, r, sel, nil, http.StatusOK)
	case errors.As(err, &apiErr):
		h.render(w, r, sel, nil, http.StatusBadRequest)
	default:
		h.logger.Error("submit sucursal", slog.Any("error", err))
		h.render(w, r, sel, map[string]string{"general": msgUnreachable}, http.StatusBadGateway)
	}
}

// replay rebuilds the form state from the posted values. The dependent
// selections are dropped when their parent is the control that changed.
// stale reports a posted department or locality that the freshly loaded
// lists no longer offer; such values are dropped as well.
func (h *Handler) replay(ctx context.Context, r *http.Request, evento string) (sel *selector.Selector, stale bool) {
	sel = selector.New(h.source, h.submitter, h.logger)
	_ = sel.Init(ctx)
	sel.SetField(selector.FieldNombre, r.PostFormValue(selector.FieldNombre))
	sel.SetField(selector.FieldDireccion, r.PostFormValue(selector.FieldDireccion))

	provincia := r.PostFormValue(selector.FieldProvincia)
	departamento := r.PostFormValue(selector.FieldDepartamento)
	localidad := r.PostFormValue(selector.FieldLocalidad)

	if provincia == "" {
		return sel, false
	}
	if err := sel.SelectProvince(ctx, provincia); err != nil || evento == EventProvince || departamento == "" {
		return sel, false
	}
	err := sel.SelectDepartment(ctx, departamento)
	if errors.Is(err, selector.ErrNotOffered) {
		return sel, true
	}
	if err != nil || evento == EventDepartment || localidad == "" {
		return sel, false
	}
	if err := sel.SelectLocality(localidad); err != nil {
		return sel, true
	}
	return sel, false
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, sel *selector.Selector, errs map[string]string, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Warn("csrf token unavailable", slog.Any("error", err))
	}
	if errs == nil {
		errs = map[string]string{}
	}
	viewData := view.TemplateData{
		Title:       pageTitle,
		CSRFToken:   csrfToken,
		CurrentPath: r.URL.Path,
		Data:        pageData{Form: sel.Snapshot(), Errors: errs},
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, formTemplateName, viewData); err != nil {
		h.logger.Error("render sucursal form", slog.Any("error", err))
	}
}
