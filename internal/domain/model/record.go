// Package model contains domain models passed between layers.
package model

import "time"

// Embedding is a fixed-length numeric face descriptor. All embeddings in a
// gallery share the same dimension.
type Embedding []float64

// Clone returns an independent copy of the embedding.
func (e Embedding) Clone() Embedding {
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}

// EntryKind distinguishes automatic check-ins from operator corrections.
type EntryKind string

const (
	// KindAutomatic marks records produced by the recognition pipeline.
	// Only automatic records participate in daily deduplication.
	KindAutomatic EntryKind = "automatic"
	// KindManual marks operator-inserted records, exempt from dedup.
	KindManual EntryKind = "manual"
)

// Status is the attendance status stored on a record. Present and Late are
// the common values; manual entries may carry custom statuses.
type Status string

const (
	StatusPresent Status = "Present"
	StatusLate    Status = "Late"
	StatusAbsent  Status = "Absent"
)

// TimeLayout is the time-of-day format stored on records.
const TimeLayout = "15:04:05"

// AttendanceRecord is one immutable check-in entry. A record belongs to
// exactly one calendar day partition.
type AttendanceRecord struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Date      Date      `json:"date"`
	Time      string    `json:"time"`
	Timestamp time.Time `json:"timestamp"`
	Weekday   string    `json:"weekday"`
	Status    Status    `json:"status"`
	Kind      EntryKind `json:"entry_kind"`
}

// MarkStatus tags the outcome of a mark attempt.
type MarkStatus string

const (
	// MarkSuccess means a new automatic record was written.
	MarkSuccess MarkStatus = "success"
	// MarkAlreadyMarked means the identity already had an automatic record
	// for that calendar day; nothing was written.
	MarkAlreadyMarked MarkStatus = "already_marked"
)

// MarkResult is the outcome of Ledger.Mark. Duplicate marks are an expected
// outcome, not an error.
type MarkResult struct {
	Status    MarkStatus `json:"status"`
	Label     string     `json:"label"`
	Timestamp time.Time  `json:"timestamp"`

	// FirstCheckIn is the time-of-day of the existing automatic record.
	// Set only when Status is MarkAlreadyMarked.
	FirstCheckIn string `json:"first_check_in,omitempty"`

	// TotalToday is the number of unique identities automatically marked so
	// far today. Set only when Status is MarkSuccess.
	TotalToday int `json:"total_today,omitempty"`
}
