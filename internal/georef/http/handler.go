// Package georefhttp exposes a georef.Source as the JSON endpoints consumed by
// browser clients of the sucursal form.
package georefhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/alquiler-vehiculos/sucursales/internal/catalog"
	"github.com/alquiler-vehiculos/sucursales/internal/georef"
	"github.com/alquiler-vehiculos/sucursales/internal/platform/httpx"
)

const (
	msgMissingProvince   = "Falta el parámetro 'provincia'."
	msgMissingDepartment = "Faltan los parámetros 'provincia' y/o 'departamento'."
)

const requestTimeout = 10 * time.Second

// Handler serves the georef listings.
type Handler struct {
	logger    *slog.Logger
	source    georef.Source
	validator *validator.Validate
}

// NewHandler constructs the georef proxy handler.
func NewHandler(logger *slog.Logger, source georef.Source) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, source: source, validator: validator.New()}
}

type departmentsQuery struct {
	Provincia string `validate:"required"`
}

type localitiesQuery struct {
	Provincia    string `validate:"required"`
	Departamento string `validate:"required"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) handleProvinces(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	provinces, err := h.source.Provinces(ctx)
	h.respond(w, "list provinces", provinces, err)
}

func (h *Handler) handleDepartments(w http.ResponseWriter, r *http.Request) {
	query := departmentsQuery{Provincia: r.URL.Query().Get("provincia")}
	if err := h.validator.Struct(query); err != nil {
		httpx.JSON(w, http.StatusBadRequest, errorBody{Error: msgMissingProvince})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	departments, err := h.source.Departments(ctx, query.Provincia)
	h.respond(w, "list departments", departments, err)
}

func (h *Handler) handleLocalities(w http.ResponseWriter, r *http.Request) {
	query := localitiesQuery{
		Provincia:    r.URL.Query().Get("provincia"),
		Departamento: r.URL.Query().Get("departamento"),
	}
	if err := h.validator.Struct(query); err != nil {
		httpx.JSON(w, http.StatusBadRequest, errorBody{Error: msgMissingDepartment})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	localities, err := h.source.Localities(ctx, query.Provincia, query.Departamento)
	h.respond(w, "list localities", localities, err)
}

func (h *Handler) respond(w http.ResponseWriter, op string, locations []georef.Location, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		locations = nil
	case err != nil:
		h.logger.Error(op, slog.Any("error", err))
		httpx.JSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	if locations == nil {
		locations = []georef.Location{}
	}
	httpx.JSON(w, http.StatusOK, locations)
}
