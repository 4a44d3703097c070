package georefhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/alquiler-vehiculos/sucursales/internal/platform/httpx"
)

// MountRoutes registers the georef listing endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(120, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusTooManyRequests, errorBody{Error: http.StatusText(http.StatusTooManyRequests)})
		}),
	)

	r.Route("/api/v1/apiview", func(api chi.Router) {
		api.Use(limiter)
		api.Get("/provincias", h.handleProvinces)
		api.Get("/departamentos", h.handleDepartments)
		api.Get("/localidades", h.handleLocalities)
	})
}
