package system

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/amplipi-hub/internal/api"
)

// RegisterRoutes wires system routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodGet, "/v1/system/status", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteResource(w, http.StatusOK, service.Status(r.Context()))
	}))
}
