package rest

import (
	"errors"
	"mime"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
	"github.com/ewilliams-labs/moodgraph/internal/core/services"
)

const (
	errCodeNoEligibleTracks    = "NO_ELIGIBLE_TRACKS"
	errCodeInsufficientCatalog = "INSUFFICIENT_CATALOG"
	errCodeNotConfigured       = "NOT_CONFIGURED"
	errCodeInvalidRequest      = "INVALID_REQUEST"
	errCodeInternal            = "INTERNAL"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeErrorWithCode(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeServiceError maps core errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoEligibleTracks):
		writeErrorWithCode(w, http.StatusUnprocessableEntity, err.Error(), errCodeNoEligibleTracks)
	case errors.Is(err, domain.ErrInsufficientCatalog):
		writeErrorWithCode(w, http.StatusUnprocessableEntity, err.Error(), errCodeInsufficientCatalog)
	case errors.Is(err, services.ErrSinkNotConfigured),
		errors.Is(err, services.ErrClassifierNotConfigured),
		errors.Is(err, services.ErrNoCatalogProvider):
		writeErrorWithCode(w, http.StatusNotImplemented, err.Error(), errCodeNotConfigured)
	case errors.Is(err, services.ErrEmptyMessage):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidRequest)
	default:
		writeErrorWithCode(w, http.StatusInternalServerError, err.Error(), errCodeInternal)
	}
}

func isJSONContentType(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
