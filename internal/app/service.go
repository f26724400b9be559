// Package service provides the core business service that implements the
// dependencies required by the HTTP API: gallery management, recognition,
// attendance marking, and reporting behind one handle.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rollcall/rollcall/internal/adapters/store"
	"github.com/rollcall/rollcall/internal/domain/gallery"
	"github.com/rollcall/rollcall/internal/domain/ledger"
	"github.com/rollcall/rollcall/internal/domain/match"
	"github.com/rollcall/rollcall/internal/domain/model"
	"github.com/rollcall/rollcall/internal/domain/report"
	"github.com/rollcall/rollcall/pkg/logger"
	"github.com/rollcall/rollcall/pkg/metrics"
)

// Service is the explicit context object holding all mutable state: the
// gallery cache and today's mark set live here, never in process globals.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      store.Store
	gallery    *gallery.Gallery
	matcher    *match.Matcher
	ledger     *ledger.Ledger
	aggregator *report.Aggregator

	// Configuration
	dimension      int
	tolerance      float64
	maxPerIdentity int
	historyDays    int
	topN           int
	now            func() time.Time

	// State
	started bool

	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence collaborator. Defaults to the in-memory
// store.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithDimension sets the required embedding dimension.
func WithDimension(dim int) Option {
	return func(s *Service) {
		if dim > 0 {
			s.dimension = dim
		}
	}
}

// WithTolerance sets the default match tolerance.
func WithTolerance(tolerance float64) Option {
	return func(s *Service) {
		if tolerance > 0 {
			s.tolerance = tolerance
		}
	}
}

// WithMaxPerIdentity sets the default optimize bound.
func WithMaxPerIdentity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPerIdentity = n
		}
	}
}

// WithHistoryDays sets the default trailing window for history lookups.
func WithHistoryDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.historyDays = days
		}
	}
}

// WithTopN bounds the top-identities ranking in statistics.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithClock overrides the time source. Used by tests to pin "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dimension:      gallery.DefaultDimension,
		tolerance:      match.DefaultTolerance,
		maxPerIdentity: 10,
		historyDays:    ledger.DefaultHistoryDays,
		topN:           report.DefaultTopN,
		now:            time.Now,
		log:            nil, // replaced at Start when unset
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes components, restores the persisted gallery snapshot,
// and rebuilds today's mark set from the ledger.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.log == nil {
		s.log = logger.Get()
	}
	if s.store == nil {
		s.store = store.NewMemory()
	}

	s.gallery = gallery.New(gallery.WithDimension(s.dimension))
	s.matcher = match.New(s.gallery, match.WithTolerance(s.tolerance))
	s.aggregator = report.New(s.store, report.WithTopN(s.topN))

	snap, err := s.store.LoadGallery(ctx)
	if err != nil {
		return fmt.Errorf("load gallery snapshot: %w", err)
	}
	if len(snap.Entries) > 0 {
		if err := s.gallery.Restore(snap); err != nil {
			return fmt.Errorf("restore gallery snapshot: %w", err)
		}
		s.log.Info(ctx, "gallery restored",
			logger.Int("embeddings", len(snap.Entries)))
	}

	led, err := ledger.New(ctx, s.store,
		ledger.WithLogger(s.log.Named("ledger")),
		ledger.WithClock(s.now),
		ledger.WithHistoryDays(s.historyDays),
	)
	if err != nil {
		return fmt.Errorf("initialize ledger: %w", err)
	}
	s.ledger = led

	s.started = true
	s.publishGallerySize()
	metrics.UpdateAttendanceToday(s.ledger.MarkedToday())
	s.log.Info(ctx, "attendance service started",
		logger.Int("dimension", s.dimension),
		logger.Float64("tolerance", s.tolerance))
	return nil
}

// Stop persists the gallery snapshot and releases the store if it owns
// resources.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	var saveErr error
	if err := s.store.SaveGallery(ctx, s.gallery.Snapshot()); err != nil {
		metrics.RecordStoreError()
		saveErr = fmt.Errorf("save gallery snapshot: %w", err)
		s.log.Error(ctx, "gallery snapshot save failed", logger.Error(err))
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	s.started = false
	s.log.Info(ctx, "attendance service stopped")
	return saveErr
}

// AddIdentity appends embeddings under label and persists the updated
// snapshot. Returns the number of embeddings added.
func (s *Service) AddIdentity(ctx context.Context, label string, embeddings []model.Embedding) (int, error) {
	if label == "" {
		return 0, ErrEmptyLabel
	}
	added, err := s.gallery.Add(label, embeddings)
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "identity enrolled",
		logger.String("label", label), logger.Int("embeddings", added))
	s.publishGallerySize()
	if err := s.saveGallery(ctx); err != nil {
		return added, err
	}
	return added, nil
}

// RemoveIdentity deletes every embedding owned by label. Removing an
// unknown label is a no-op success with zero removed.
func (s *Service) RemoveIdentity(ctx context.Context, label string) (int, error) {
	removed := s.gallery.Remove(label)
	if removed > 0 {
		s.log.Info(ctx, "identity removed",
			logger.String("label", label), logger.Int("embeddings", removed))
	}
	s.publishGallerySize()
	if removed > 0 {
		if err := s.saveGallery(ctx); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Recognize resolves a query embedding to an identity or Unknown. A
// tolerance <= 0 uses the configured default.
func (s *Service) Recognize(ctx context.Context, query model.Embedding, tolerance float64) (match.Result, error) {
	res, err := s.matcher.Recognize(ctx, query, tolerance)
	if err != nil {
		return match.Result{}, err
	}
	// Empty-gallery lookups stay out of the counters, as in matcher stats.
	if s.gallery.Size() > 0 {
		metrics.RecordRecognition(res.Matched(), 1-res.Confidence)
	}
	return res, nil
}

// RecognizeBatch applies Recognize to each query, preserving input order.
func (s *Service) RecognizeBatch(ctx context.Context, queries []model.Embedding, tolerance float64) ([]match.Result, error) {
	results, err := s.matcher.RecognizeBatch(ctx, queries, tolerance)
	if err != nil {
		return nil, err
	}
	if s.gallery.Size() > 0 {
		for _, res := range results {
			metrics.RecordRecognition(res.Matched(), 1-res.Confidence)
		}
	}
	return results, nil
}

// MarkAttendance records an automatic check-in for label. A zero timestamp
// means now. Duplicate marks are an expected outcome, not an error.
func (s *Service) MarkAttendance(ctx context.Context, label string, ts time.Time) (model.MarkResult, error) {
	if label == "" || label == match.Unknown {
		return model.MarkResult{}, fmt.Errorf("%w: %q", ErrEmptyLabel, label)
	}
	res, err := s.ledger.Mark(ctx, label, ts)
	if err != nil {
		metrics.RecordStoreError()
		return model.MarkResult{}, err
	}
	switch res.Status {
	case model.MarkSuccess:
		metrics.RecordMark()
		metrics.UpdateAttendanceToday(s.ledger.MarkedToday())
	case model.MarkAlreadyMarked:
		metrics.RecordDuplicateMark()
	}
	return res, nil
}

// ManualAttendance appends an operator correction, exempt from dedup.
func (s *Service) ManualAttendance(ctx context.Context, label string, date model.Date, timeOfDay string, status model.Status) (model.AttendanceRecord, error) {
	if label == "" {
		return model.AttendanceRecord{}, ErrEmptyLabel
	}
	rec, err := s.ledger.ManualEntry(ctx, label, date, timeOfDay, status)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	metrics.RecordManualEntry()
	return rec, nil
}

// TodayAttendance returns all of today's records in insertion order.
func (s *Service) TodayAttendance(ctx context.Context) ([]model.AttendanceRecord, error) {
	return s.ledger.TodayRecords(ctx)
}

// History returns label's records across the trailing window, oldest first.
func (s *Service) History(ctx context.Context, label string, daysBack int) ([]model.AttendanceRecord, error) {
	return s.ledger.History(ctx, label, daysBack)
}

// Report returns every record in [start, end] inclusive.
func (s *Service) Report(ctx context.Context, start, end model.Date) ([]model.AttendanceRecord, error) {
	return s.aggregator.Range(ctx, start, end)
}

// Statistics returns summary statistics for [start, end] inclusive.
func (s *Service) Statistics(ctx context.Context, start, end model.Date) (report.Stats, error) {
	return s.aggregator.Statistics(ctx, start, end)
}

// OptimizeGallery trims each identity to at most maxPerIdentity embeddings
// (non-positive means the configured default) and persists the result.
// Returns the number of embeddings discarded.
func (s *Service) OptimizeGallery(ctx context.Context, maxPerIdentity int) (int, error) {
	if maxPerIdentity <= 0 {
		maxPerIdentity = s.maxPerIdentity
	}
	dropped := s.gallery.Optimize(maxPerIdentity)
	if dropped > 0 {
		s.log.Info(ctx, "gallery optimized",
			logger.Int("max_per_identity", maxPerIdentity),
			logger.Int("dropped", dropped))
		s.publishGallerySize()
		if err := s.saveGallery(ctx); err != nil {
			return dropped, err
		}
	}
	return dropped, nil
}

// ValidateGallery checks gallery integrity without mutating state.
func (s *Service) ValidateGallery(ctx context.Context) gallery.Report {
	return s.gallery.Validate()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":   s.started,
		"dimension": s.dimension,
		"tolerance": s.tolerance,
	}
	if s.started {
		stats["gallery"] = s.gallery.Stats()
		stats["recognition"] = s.matcher.Stats()
		stats["session"] = s.ledger.Stats()
	}
	return stats
}

// DefaultTolerance returns the configured match tolerance.
func (s *Service) DefaultTolerance() float64 {
	return s.tolerance
}

func (s *Service) saveGallery(ctx context.Context) error {
	if err := s.store.SaveGallery(ctx, s.gallery.Snapshot()); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("save gallery snapshot: %w", err)
	}
	return nil
}

func (s *Service) publishGallerySize() {
	st := s.gallery.Stats()
	metrics.UpdateGallerySize(st.UniqueIdentities, st.TotalEmbeddings)
}
