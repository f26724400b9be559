// Package store defines the persistence collaborator contract for the two
// durable collections: the gallery snapshot and the date-partitioned
// attendance ledger.
package store

import (
	"context"

	"github.com/rollcall/rollcall/internal/domain/gallery"
	"github.com/rollcall/rollcall/internal/domain/model"
)

// Store is the persistence collaborator. Implementations must be safe for
// concurrent use and must treat a missing partition as empty, not an error.
type Store interface {
	// LoadGallery returns the last saved gallery snapshot, or a zero-value
	// snapshot when none has been saved yet.
	LoadGallery(ctx context.Context) (gallery.Snapshot, error)

	// SaveGallery replaces the persisted gallery snapshot.
	SaveGallery(ctx context.Context, snap gallery.Snapshot) error

	// AppendRecord appends rec to the partition for date. The append is
	// confirmed only when the returned error is nil.
	AppendRecord(ctx context.Context, date model.Date, rec model.AttendanceRecord) error

	// ReadPartition returns the records for date in insertion order.
	// A day with no activity yields an empty slice.
	ReadPartition(ctx context.Context, date model.Date) ([]model.AttendanceRecord, error)
}
