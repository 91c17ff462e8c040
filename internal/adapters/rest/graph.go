package rest

import "net/http"

// GraphStats handles GET /graph/stats
func (h *Handler) GraphStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// RebuildGraph handles POST /graph/rebuild
func (h *Handler) RebuildGraph(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.RebuildGraph(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// RefreshCatalog handles POST /catalog/refresh
func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.RefreshCatalog(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
