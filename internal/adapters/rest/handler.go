package rest

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ewilliams-labs/moodgraph/internal/core/services"
)

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc    *services.Orchestrator
	router *http.ServeMux
	log    logrus.FieldLogger
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc *services.Orchestrator, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &Handler{
		svc:    svc,
		router: http.NewServeMux(),
		log:    log,
	}

	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface. Every request gets an
// X-Request-ID and an access log line.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set("X-Request-ID", requestID)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.router.ServeHTTP(rec, r)

	entry := h.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"method":      r.Method,
		"path":        r.URL.Path,
		"status":      rec.status,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if rec.status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request handled")
	}
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)
	h.router.HandleFunc("GET /moods", h.ListMoods)

	h.router.HandleFunc("POST /playlists", h.CreatePlaylist)
	h.router.HandleFunc("POST /playlists/intent", h.PlaylistFromIntent)

	h.router.HandleFunc("GET /graph/stats", h.GraphStats)
	h.router.HandleFunc("POST /graph/rebuild", h.RebuildGraph)
	h.router.HandleFunc("POST /catalog/refresh", h.RefreshCatalog)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "moodgraph is live"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
