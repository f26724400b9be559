// Package api declares HTTP contracts and route registration for the
// attendance service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rollcall/rollcall/internal/adapters/store"
	"github.com/rollcall/rollcall/internal/domain/gallery"
	"github.com/rollcall/rollcall/internal/domain/ledger"
	"github.com/rollcall/rollcall/internal/domain/match"
	"github.com/rollcall/rollcall/internal/domain/model"
	"github.com/rollcall/rollcall/internal/domain/report"
	"github.com/rollcall/rollcall/pkg/metrics"
)

// Dependencies bundles the operations the handlers need. Keeping this an
// interface decouples the HTTP layer from the service implementation.
type Dependencies interface {
	AddIdentity(ctx context.Context, label string, embeddings []model.Embedding) (int, error)
	RemoveIdentity(ctx context.Context, label string) (int, error)
	Recognize(ctx context.Context, query model.Embedding, tolerance float64) (match.Result, error)
	RecognizeBatch(ctx context.Context, queries []model.Embedding, tolerance float64) ([]match.Result, error)
	MarkAttendance(ctx context.Context, label string, ts time.Time) (model.MarkResult, error)
	ManualAttendance(ctx context.Context, label string, date model.Date, timeOfDay string, status model.Status) (model.AttendanceRecord, error)
	TodayAttendance(ctx context.Context) ([]model.AttendanceRecord, error)
	History(ctx context.Context, label string, daysBack int) ([]model.AttendanceRecord, error)
	Report(ctx context.Context, start, end model.Date) ([]model.AttendanceRecord, error)
	Statistics(ctx context.Context, start, end model.Date) (report.Stats, error)
	OptimizeGallery(ctx context.Context, maxPerIdentity int) (int, error)
	ValidateGallery(ctx context.Context) gallery.Report
	GetStats() map[string]any
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps   Dependencies
	router *chi.Mux
}

// NewServer creates the API server and mounts all routes.
func NewServer(deps Dependencies) *Server {
	s := &Server{deps: deps, router: chi.NewRouter()}

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", instrument("healthz", s.handleHealth))
	s.router.Get("/stats", instrument("stats", s.handleStats))
	s.router.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	s.router.Post("/identities", instrument("identities", s.handleAddIdentity))
	s.router.Delete("/identities/{label}", instrument("identities", s.handleRemoveIdentity))

	s.router.Post("/recognize", instrument("recognize", s.handleRecognize))

	s.router.Post("/attendance/mark", instrument("attendance_mark", s.handleMark))
	s.router.Post("/attendance/manual", instrument("attendance_manual", s.handleManual))
	s.router.Get("/attendance/today", instrument("attendance_today", s.handleToday))
	s.router.Get("/attendance/history/{label}", instrument("attendance_history", s.handleHistory))

	s.router.Get("/reports", instrument("reports", s.handleReport))
	s.router.Get("/reports/statistics", instrument("reports_statistics", s.handleStatistics))

	s.router.Post("/gallery/optimize", instrument("gallery_optimize", s.handleOptimize))
	s.router.Get("/gallery/validate", instrument("gallery_validate", s.handleValidate))

	return s
}

// Router exposes the mux for mounting and for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain error kinds onto HTTP statuses. Structural
// violations and storage failures are the only error paths; expected
// outcomes (unknown face, duplicate mark) never reach here.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gallery.ErrDimensionMismatch):
		writeError(w, http.StatusUnprocessableEntity, "dimension_mismatch", err)
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, store.ErrCorrupt):
		writeError(w, http.StatusServiceUnavailable, "persistence_failure", err)
	case errors.Is(err, ledger.ErrInvalidDate), errors.Is(err, ledger.ErrInvalidTime),
		errors.Is(err, report.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
