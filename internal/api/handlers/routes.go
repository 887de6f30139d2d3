package handlers

import (
	"net/http"
	"route-optimization-service/internal/api/dto"
	"route-optimization-service/internal/ports"

	"github.com/go-chi/chi/v5"
)

// RouteHandler exposes read-only access to saved routes.
type RouteHandler struct {
	Repo ports.StopRepository
}

func (h *RouteHandler) ListStops(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")

	stops, err := h.Repo.ListStops(r.Context(), routeID)
	if err != nil {
		writeServiceError(w, r, "list stops", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ListStopsResponse{RouteID: routeID, Stops: stops})
}
