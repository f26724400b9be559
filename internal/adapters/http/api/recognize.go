package api

import (
	"encoding/json"
	"net/http"

	"github.com/rollcall/rollcall/internal/domain/match"
	"github.com/rollcall/rollcall/internal/domain/model"
)

// recognizeRequest accepts a single embedding or a batch; exactly one of
// the two fields must be set. A missing tolerance uses the server default.
type recognizeRequest struct {
	Embedding  model.Embedding   `json:"embedding,omitempty"`
	Embeddings []model.Embedding `json:"embeddings,omitempty"`
	Tolerance  float64           `json:"tolerance,omitempty"`
}

func (r recognizeRequest) validate() error {
	if len(r.Embedding) == 0 && len(r.Embeddings) == 0 {
		return errMissingField("embedding")
	}
	if len(r.Embedding) > 0 && len(r.Embeddings) > 0 {
		return errInvalidField("embedding", "set either embedding or embeddings, not both")
	}
	return nil
}

type recognizeResponse struct {
	Result  *match.Result  `json:"result,omitempty"`
	Results []match.Result `json:"results,omitempty"`
}

// handleRecognize handles POST /recognize.
func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if len(req.Embedding) > 0 {
		res, err := s.deps.Recognize(r.Context(), req.Embedding, req.Tolerance)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recognizeResponse{Result: &res})
		return
	}

	results, err := s.deps.RecognizeBatch(r.Context(), req.Embeddings, req.Tolerance)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recognizeResponse{Results: results})
}
