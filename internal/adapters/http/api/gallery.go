package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

type optimizeRequest struct {
	// MaxPerIdentity <= 0 means the configured default.
	MaxPerIdentity int `json:"max_per_identity,omitempty"`
}

type optimizeResponse struct {
	Dropped int `json:"dropped"`
}

// handleOptimize handles POST /gallery/optimize. An empty body optimizes
// with the configured default bound.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	dropped, err := s.deps.OptimizeGallery(r.Context(), req.MaxPerIdentity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, optimizeResponse{Dropped: dropped})
}

// handleValidate handles GET /gallery/validate.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.ValidateGallery(r.Context()))
}
