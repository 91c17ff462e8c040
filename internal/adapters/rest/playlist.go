package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
	"github.com/ewilliams-labs/moodgraph/internal/core/services"
)

type createPlaylistRequest struct {
	Mood        string `json:"mood"`
	Name        string `json:"name"`
	Publish     bool   `json:"publish"`
	RequireFull bool   `json:"require_full"`
}

type moodResponse struct {
	Moods []domain.Mood `json:"moods"`
}

// CreatePlaylist handles POST /playlists
func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	playlist, err := h.svc.GeneratePlaylist(r.Context(), services.GenerateRequest{
		Mood:        req.Mood,
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

// ListMoods handles GET /moods
func (h *Handler) ListMoods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, moodResponse{Moods: domain.KnownMoods})
}

// decodeJSON decodes the request body into v. An empty body leaves v at its
// zero value. It writes the error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength != 0 && !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeErrorWithCode(w, http.StatusBadRequest, "Invalid request body", errCodeInvalidRequest)
		return false
	}
	return true
}
