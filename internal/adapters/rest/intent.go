package rest

import (
	"net/http"
	"strings"

	"github.com/ewilliams-labs/moodgraph/internal/core/services"
)

type playlistFromIntentRequest struct {
	Message     string `json:"message"`
	Name        string `json:"name"`
	Publish     bool   `json:"publish"`
	RequireFull bool   `json:"require_full"`
}

// PlaylistFromIntent handles POST /playlists/intent
func (h *Handler) PlaylistFromIntent(w http.ResponseWriter, r *http.Request) {
	var req playlistFromIntentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeErrorWithCode(w, http.StatusBadRequest, "message is required", errCodeInvalidRequest)
		return
	}

	playlist, err := h.svc.GeneratePlaylistFromText(r.Context(), req.Message, services.GenerateRequest{
		Name:        req.Name,
		Publish:     req.Publish,
		RequireFull: req.RequireFull,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, playlist)
}
