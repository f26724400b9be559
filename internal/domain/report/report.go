// Package report computes read-only range reports and summary statistics
// over the attendance ledger.
package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/rollcall/rollcall/internal/adapters/store"
	"github.com/rollcall/rollcall/internal/domain/model"
)

// IdentityCount pairs an identity with its record count for top rankings.
type IdentityCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats summarizes a date range. Ephemeral: computed on demand.
type Stats struct {
	StartDate              model.Date         `json:"start_date"`
	EndDate                model.Date         `json:"end_date"`
	TotalRecords           int                `json:"total_records"`
	UniqueIdentities       int                `json:"unique_identities"`
	NumberOfDays           int                `json:"number_of_days"`
	AverageDailyAttendance float64            `json:"average_daily_attendance"`
	DailyCounts            map[model.Date]int `json:"daily_counts"`
	PerIdentityCounts      map[string]int     `json:"per_identity_counts"`
	TopIdentities          []IdentityCount    `json:"top_identities"`
	WeekdayDistribution    map[string]int     `json:"weekday_distribution"`
}

// DefaultTopN bounds the TopIdentities ranking.
const DefaultTopN = 10

// Aggregator reads ledger partitions across date ranges. It holds no state
// of its own beyond the store handle.
type Aggregator struct {
	store store.Store
	topN  int
}

// New creates an aggregator over st.
func New(st store.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store: st,
		topN:  DefaultTopN,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Range returns every record with a date in [start, end] inclusive, in date
// order then insertion order. Days with no activity contribute nothing.
func (a *Aggregator) Range(ctx context.Context, start, end model.Date) ([]model.AttendanceRecord, error) {
	if !start.Valid() || !end.Valid() {
		return nil, fmt.Errorf("%w: %q..%q", ErrInvalidRange, start, end)
	}
	if start > end {
		return nil, fmt.Errorf("%w: start %s after end %s", ErrInvalidRange, start, end)
	}

	var out []model.AttendanceRecord
	for _, date := range model.DatesBetween(start, end) {
		records, err := a.store.ReadPartition(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("read partition %s: %w", date, err)
		}
		out = append(out, records...)
	}
	return out, nil
}

// Statistics derives summary statistics from Range. A range with no records
// returns zeroed stats; the daily average is defined as 0 when no day has
// activity.
func (a *Aggregator) Statistics(ctx context.Context, start, end model.Date) (Stats, error) {
	records, err := a.Range(ctx, start, end)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		StartDate:           start,
		EndDate:             end,
		TotalRecords:        len(records),
		DailyCounts:         make(map[model.Date]int),
		PerIdentityCounts:   make(map[string]int),
		WeekdayDistribution: make(map[string]int),
	}

	firstSeen := make(map[string]int)
	for i, rec := range records {
		stats.DailyCounts[rec.Date]++
		stats.PerIdentityCounts[rec.Label]++
		stats.WeekdayDistribution[rec.Weekday]++
		if _, ok := firstSeen[rec.Label]; !ok {
			firstSeen[rec.Label] = i
		}
	}

	stats.UniqueIdentities = len(stats.PerIdentityCounts)
	stats.NumberOfDays = len(stats.DailyCounts)
	if stats.NumberOfDays > 0 {
		stats.AverageDailyAttendance = float64(stats.TotalRecords) / float64(stats.NumberOfDays)
	}

	top := make([]IdentityCount, 0, len(stats.PerIdentityCounts))
	for label, count := range stats.PerIdentityCounts {
		top = append(top, IdentityCount{Label: label, Count: count})
	}
	// Count descending; equal counts keep first-seen order.
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return firstSeen[top[i].Label] < firstSeen[top[j].Label]
	})
	if len(top) > a.topN {
		top = top[:a.topN]
	}
	stats.TopIdentities = top

	return stats, nil
}
