package api

import (
	"net/http"

	"github.com/rollcall/rollcall/internal/domain/model"
)

func dateRange(r *http.Request) (model.Date, model.Date, error) {
	start, err := model.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		return "", "", errInvalidField("start", "must be YYYY-MM-DD")
	}
	end, err := model.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		return "", "", errInvalidField("end", "must be YYYY-MM-DD")
	}
	return start, end, nil
}

// handleReport handles GET /reports?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	records, err := s.deps.Report(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse{Records: records, Count: len(records)})
}

// handleStatistics handles GET /reports/statistics?start=...&end=...
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	stats, err := s.deps.Statistics(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
