package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/khanlab/neurobeer/pkg/cluster"
	"github.com/khanlab/neurobeer/pkg/fibers"
	"github.com/khanlab/neurobeer/pkg/pipeline"
	"github.com/khanlab/neurobeer/pkg/similarity"
	"github.com/khanlab/neurobeer/pkg/spectral"
)

// session holds what a training run leaves behind for later extension.
type session struct {
	store     *fibers.Store
	basis     *spectral.Eigenbasis
	centroids *mat.Dense
}

// Handler serves the clustering endpoints. Training runs are kept in
// memory keyed by run ID so extension requests can reference them.
type Handler struct {
	orch     *pipeline.Orchestrator
	sessions map[string]*session
	mu       sync.RWMutex
}

// NewHandler creates a handler around an orchestrator.
func NewHandler(orch *pipeline.Orchestrator) *Handler {
	return &Handler{
		orch:     orch,
		sessions: make(map[string]*session),
	}
}

type trainResponse struct {
	RunID     string      `json:"run_id"`
	Labels    []int       `json:"labels"`
	Rejected  []int       `json:"rejected"`
	Centroids [][]float64 `json:"centroids"`
	Colors    [][3]int    `json:"colors"`
}

type extendRequest struct {
	RunID  string        `json:"run_id"`
	Fibers fibers.Bundle `json:"fibers"`
}

type extendResponse struct {
	RunID    string   `json:"run_id"`
	Labels   []int    `json:"labels"`
	Rejected []int    `json:"rejected"`
	Colors   [][3]int `json:"colors"`
}

// Train handles POST /v1/cluster/train. The body is a fiber bundle; the
// response carries the labeling and the run ID to extend against.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	store, err := fibers.ReadBundle(r.Body)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.orch.Train(r.Context(), store)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	// The eigenbasis covers only the retained fibers; extension runs
	// against that subset, not the full training input.
	retained, err := store.Retained(result.Rejected)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.mu.Lock()
	h.sessions[result.RunID] = &session{
		store:     retained,
		basis:     result.Basis,
		centroids: result.Centroids,
	}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, trainResponse{
		RunID:     result.RunID,
		Labels:    result.Labels,
		Rejected:  emptyIfNil(result.Rejected),
		Centroids: denseRows(result.Centroids),
		Colors:    result.Colors,
	})
}

// Extend handles POST /v1/cluster/extend, classifying a fresh bundle
// against a stored training run.
func (h *Handler) Extend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req extendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.RLock()
	sess, ok := h.sessions[req.RunID]
	h.mu.RUnlock()
	if !ok {
		writeError(w, "unknown run_id", http.StatusNotFound)
		return
	}

	store, err := req.Fibers.ToStore()
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.orch.Extend(r.Context(), store, sess.store, sess.basis, sess.centroids)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, extendResponse{
		RunID:    result.RunID,
		Labels:   result.Labels,
		Rejected: emptyIfNil(result.Rejected),
		Colors:   result.Colors,
	})
}

// Health handles GET /v1/health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps pipeline error kinds to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput),
		errors.Is(err, similarity.ErrWeightSpec),
		errors.Is(err, similarity.ErrWeightSum),
		errors.Is(err, cluster.ErrDegenerate):
		return http.StatusBadRequest
	case errors.Is(err, spectral.ErrMissingEigenbasis):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func denseRows(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		copy(row, m.RawRowView(i))
		rows[i] = row
	}
	return rows
}

func emptyIfNil(xs []int) []int {
	if xs == nil {
		return []int{}
	}
	return xs
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
