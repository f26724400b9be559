package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rollcall/rollcall/internal/domain/model"
)

type markRequest struct {
	Label string `json:"label"`
	// Timestamp is optional RFC3339; empty means now.
	Timestamp string `json:"timestamp,omitempty"`
}

// handleMark handles POST /attendance/mark. A duplicate mark is a 200 with
// status "already_marked", not an error.
func (s *Server) handleMark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.Label) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errMissingField("label"))
		return
	}

	var ts time.Time
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request",
				errInvalidField("timestamp", "must be RFC3339"))
			return
		}
		ts = parsed
	}

	res, err := s.deps.MarkAttendance(r.Context(), req.Label, ts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type manualRequest struct {
	Label  string `json:"label"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status string `json:"status,omitempty"`
}

// handleManual handles POST /attendance/manual.
func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.Label) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errMissingField("label"))
		return
	}

	rec, err := s.deps.ManualAttendance(r.Context(), req.Label,
		model.Date(req.Date), req.Time, model.Status(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleToday handles GET /attendance/today.
func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.TodayAttendance(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse{Records: records, Count: len(records)})
}

// handleHistory handles GET /attendance/history/{label}?days_back=30.
// An unknown label yields an empty list, not a 404.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")
	if label == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errMissingField("label"))
		return
	}

	daysBack := 0
	if raw := r.URL.Query().Get("days_back"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "bad_request",
				errInvalidField("days_back", "must be a non-negative integer"))
			return
		}
		daysBack = parsed
	}

	records, err := s.deps.History(r.Context(), label, daysBack)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse{Records: records, Count: len(records)})
}

type recordsResponse struct {
	Records []model.AttendanceRecord `json:"records"`
	Count   int                      `json:"count"`
}
