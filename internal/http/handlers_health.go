package httpapi

import "net/http"

// HandleHealth returns API health status and entity count
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := h.catalog.Count(r.Context(), "")
	if err != nil {
		h.logger.Error().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
		return
	}

	h.logger.Debug().Int("entity_count", count).Msg("health check")

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		EntityCount: count,
	})
}
