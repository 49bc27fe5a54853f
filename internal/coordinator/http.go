package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/lgmys/shardy/internal/wire"
	"github.com/rs/zerolog"
)

// HTTPHandler implements the four-endpoint HTTP ingress surface described
// in §6: it is the only way an external client reaches the core (§1, the
// ingress itself is out of core scope, described here only by the
// operations it invokes).
type HTTPHandler struct {
	server       *Server
	scheduler    *Scheduler
	tenantPrefix string
	log          zerolog.Logger
}

// NewHTTPHandler builds the HTTP ingress surface over server.
func NewHTTPHandler(server *Server, scheduler *Scheduler, tenantPrefix string, log zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{server: server, scheduler: scheduler, tenantPrefix: tenantPrefix, log: log}
}

// Router returns a gorilla/mux router wired to all four endpoints, wrapped
// in the panic-recovering middleware.
func (h *HTTPHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(recoveryMiddleware(h.log))

	r.HandleFunc("/", h.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/logs", h.handlePostLog).Methods(http.MethodPost)
	r.HandleFunc("/_shard", h.handlePostShard).Methods(http.MethodPost)
	r.HandleFunc("/search", h.handleSearch).Methods(http.MethodPost)
	return r
}

func (h *HTTPHandler) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

type postLogRequest struct {
	Log string `json:"log"`
}

// handlePostLog enqueues a Log command (§6, "POST /logs").
func (h *HTTPHandler) handlePostLog(w http.ResponseWriter, r *http.Request) {
	var req postLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.server.Queue.Enqueue(wire.NewLog(req.Log))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// handlePostShard upserts a ShardMetadata into the catalog (§6,
// "POST /_shard"). Repeated calls with the same id are idempotent
// (§4.4, "Registering").
func (h *HTTPHandler) handlePostShard(w http.ResponseWriter, r *http.Request) {
	var meta wire.ShardMetadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, "invalid shard metadata")
		return
	}
	meta.Name = h.tenantPrefix + meta.Name

	if err := h.server.Catalog.Upsert(r.Context(), meta); err != nil {
		h.log.Error().Err(err).Msg("catalog upsert failed")
		writeError(w, http.StatusInternalServerError, "catalog error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

type searchRequest struct {
	Query string `json:"query"`
}

// handleSearch invokes ScheduleQuery and returns the accumulated rows
// (§6, "POST /search"). Partial results (missing shards) are represented
// silently by a shorter array, per §7's propagation policy.
func (h *HTTPHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	rows, err := h.scheduler.ScheduleQuery(ctx, req.Query)
	if err != nil {
		h.log.Error().Err(err).Msg("schedule_query failed")
		writeError(w, http.StatusInternalServerError, "query error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
