// Package ledger owns the append-only, date-partitioned attendance record
// collection and enforces at-most-one automatic mark per identity per
// calendar day.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rollcall/rollcall/internal/adapters/store"
	"github.com/rollcall/rollcall/internal/domain/model"
	"github.com/rollcall/rollcall/pkg/logger"
)

// DefaultHistoryDays is the trailing window for History when the caller
// passes a non-positive daysBack.
const DefaultHistoryDays = 30

// SessionStats tracks activity since the ledger was constructed.
type SessionStats struct {
	SessionStart      time.Time `json:"session_start"`
	TotalCheckIns     int       `json:"total_check_ins"`
	DuplicateAttempts int       `json:"duplicate_attempts"`
	UniqueToday       int       `json:"unique_today"`
}

// dayState is the derived daily mark set for one calendar date: the
// identities that already have an automatic record, with their first
// check-in time. Each date carries its own lock so the test-and-append in
// Mark is atomic per date while different days proceed without contention.
type dayState struct {
	mu      sync.Mutex
	firstIn map[string]string // label -> time-of-day of the first automatic record
}

// Ledger coordinates mark deduplication and record persistence. The
// in-memory mark set is updated only after the store confirms the append,
// so a failed write never leaves phantom marks.
type Ledger struct {
	store       store.Store
	log         logger.Logger
	now         func() time.Time
	historyDays int

	mu   sync.Mutex
	days map[model.Date]*dayState

	statsMu    sync.Mutex
	start      time.Time
	checkIns   int
	duplicates int
}

// New constructs a ledger and rebuilds today's mark set from the store, so
// a process restart cannot hand out a second automatic mark for the same
// day.
func New(ctx context.Context, st store.Store, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:       st,
		log:         logger.Nop(),
		now:         time.Now,
		historyDays: DefaultHistoryDays,
		days:        make(map[model.Date]*dayState),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.start = l.now()

	today := model.DateOf(l.now())
	records, err := st.ReadPartition(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("rebuild mark set for %s: %w", today, err)
	}
	day := l.day(today)
	for _, rec := range records {
		if rec.Kind != model.KindAutomatic {
			continue
		}
		if _, ok := day.firstIn[rec.Label]; !ok {
			day.firstIn[rec.Label] = rec.Time
		}
	}
	if len(day.firstIn) > 0 {
		l.log.Info(ctx, "rebuilt daily mark set",
			logger.String("date", string(today)),
			logger.Int("identities", len(day.firstIn)))
	}
	return l, nil
}

// Mark records an automatic check-in for label at ts (zero ts means now).
// At most one automatic record per identity per calendar day: a repeat
// attempt returns MarkAlreadyMarked carrying the existing record's
// time-of-day, and writes nothing. The check-then-append runs under the
// date partition's lock, so concurrent marks for the same identity cannot
// both succeed.
func (l *Ledger) Mark(ctx context.Context, label string, ts time.Time) (model.MarkResult, error) {
	if ts.IsZero() {
		ts = l.now()
	}
	date := model.DateOf(ts)
	day := l.day(date)

	day.mu.Lock()
	defer day.mu.Unlock()

	if first, ok := day.firstIn[label]; ok {
		l.bumpDuplicates()
		l.log.Debug(ctx, "duplicate mark attempt",
			logger.String("label", label), logger.String("date", string(date)))
		return model.MarkResult{
			Status:       model.MarkAlreadyMarked,
			Label:        label,
			Timestamp:    ts,
			FirstCheckIn: first,
		}, nil
	}

	rec := model.AttendanceRecord{
		ID:        uuid.NewString(),
		Label:     label,
		Date:      date,
		Time:      ts.Format(model.TimeLayout),
		Timestamp: ts,
		Weekday:   ts.Weekday().String(),
		Status:    model.StatusPresent,
		Kind:      model.KindAutomatic,
	}
	if err := l.store.AppendRecord(ctx, date, rec); err != nil {
		// Mark set untouched: the identity stays unmarked and may retry.
		return model.MarkResult{}, fmt.Errorf("append attendance record: %w", err)
	}

	day.firstIn[label] = rec.Time
	l.bumpCheckIns()
	l.log.Info(ctx, "attendance marked",
		logger.String("label", label),
		logger.String("date", string(date)),
		logger.String("time", rec.Time))

	return model.MarkResult{
		Status:     model.MarkSuccess,
		Label:      label,
		Timestamp:  ts,
		TotalToday: len(day.firstIn),
	}, nil
}

// ManualEntry appends an operator correction. Manual entries bypass the
// daily mark set entirely: they never block a later automatic mark and are
// never blocked by one.
func (l *Ledger) ManualEntry(ctx context.Context, label string, date model.Date, timeOfDay string, status model.Status) (model.AttendanceRecord, error) {
	if !date.Valid() {
		return model.AttendanceRecord{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	parsed, err := time.Parse(model.TimeLayout, timeOfDay)
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("%w: %q", ErrInvalidTime, timeOfDay)
	}
	if status == "" {
		status = model.StatusPresent
	}

	base, _ := date.Time()
	ts := time.Date(base.Year(), base.Month(), base.Day(),
		parsed.Hour(), parsed.Minute(), parsed.Second(), 0, time.UTC)

	rec := model.AttendanceRecord{
		ID:        uuid.NewString(),
		Label:     label,
		Date:      date,
		Time:      parsed.Format(model.TimeLayout),
		Timestamp: ts,
		Weekday:   date.Weekday(),
		Status:    status,
		Kind:      model.KindManual,
	}
	if err := l.store.AppendRecord(ctx, date, rec); err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("append manual entry: %w", err)
	}

	l.log.Info(ctx, "manual attendance entry",
		logger.String("label", label),
		logger.String("date", string(date)),
		logger.String("status", string(status)))
	return rec, nil
}

// TodayRecords returns all of today's records, automatic and manual, in
// insertion order.
func (l *Ledger) TodayRecords(ctx context.Context) ([]model.AttendanceRecord, error) {
	today := model.DateOf(l.now())
	records, err := l.store.ReadPartition(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("read partition %s: %w", today, err)
	}
	return records, nil
}

// History returns label's records across the trailing daysBack window,
// oldest first. A non-positive daysBack uses the configured window. The
// label comparison is case-insensitive. An identity with no records yields
// an empty slice, not an error.
func (l *Ledger) History(ctx context.Context, label string, daysBack int) ([]model.AttendanceRecord, error) {
	if daysBack <= 0 {
		daysBack = l.historyDays
	}
	end := l.now()
	start := end.AddDate(0, 0, -daysBack)

	var out []model.AttendanceRecord
	for _, date := range model.DatesBetween(model.DateOf(start), model.DateOf(end)) {
		records, err := l.store.ReadPartition(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("read partition %s: %w", date, err)
		}
		for _, rec := range records {
			if strings.EqualFold(rec.Label, label) {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// MarkedToday returns the number of unique identities automatically marked
// on the current calendar day.
func (l *Ledger) MarkedToday() int {
	day := l.day(model.DateOf(l.now()))
	day.mu.Lock()
	defer day.mu.Unlock()
	return len(day.firstIn)
}

// Stats returns session counters since construction.
func (l *Ledger) Stats() SessionStats {
	// Mark holds the day lock when it bumps the counters, so the day set
	// must be read before statsMu is taken, never while holding it.
	unique := l.MarkedToday()

	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return SessionStats{
		SessionStart:      l.start,
		TotalCheckIns:     l.checkIns,
		DuplicateAttempts: l.duplicates,
		UniqueToday:       unique,
	}
}

// day returns the state for date, creating it on first use.
func (l *Ledger) day(date model.Date) *dayState {
	l.mu.Lock()
	defer l.mu.Unlock()

	d, ok := l.days[date]
	if !ok {
		d = &dayState{firstIn: make(map[string]string)}
		l.days[date] = d
	}
	return d
}

func (l *Ledger) bumpCheckIns() {
	l.statsMu.Lock()
	l.checkIns++
	l.statsMu.Unlock()
}

func (l *Ledger) bumpDuplicates() {
	l.statsMu.Lock()
	l.duplicates++
	l.statsMu.Unlock()
}
