package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rollcall/rollcall/internal/domain/model"
)

type addIdentityRequest struct {
	Label      string            `json:"label"`
	Embeddings []model.Embedding `json:"embeddings"`
}

func (r addIdentityRequest) validate() error {
	if strings.TrimSpace(r.Label) == "" {
		return errMissingField("label")
	}
	if len(r.Embeddings) == 0 {
		return errMissingField("embeddings")
	}
	return nil
}

type addIdentityResponse struct {
	Label string `json:"label"`
	Added int    `json:"added"`
}

// handleAddIdentity handles POST /identities.
func (s *Server) handleAddIdentity(w http.ResponseWriter, r *http.Request) {
	var req addIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	added, err := s.deps.AddIdentity(r.Context(), req.Label, req.Embeddings)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, addIdentityResponse{Label: req.Label, Added: added})
}

type removeIdentityResponse struct {
	Label   string `json:"label"`
	Removed int    `json:"removed"`
}

// handleRemoveIdentity handles DELETE /identities/{label}. Removing an
// unknown label succeeds with removed=0.
func (s *Server) handleRemoveIdentity(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")
	if label == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errMissingField("label"))
		return
	}

	removed, err := s.deps.RemoveIdentity(r.Context(), label)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removeIdentityResponse{Label: label, Removed: removed})
}
