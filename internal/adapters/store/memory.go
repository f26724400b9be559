package store

import (
	"context"
	"sync"

	"github.com/rollcall/rollcall/internal/domain/gallery"
	"github.com/rollcall/rollcall/internal/domain/model"
)

// Memory is an in-process Store. It is the default backend for tests and
// for running without a data directory.
type Memory struct {
	mu         sync.RWMutex
	snap       gallery.Snapshot
	partitions map[model.Date][]model.AttendanceRecord
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		partitions: make(map[model.Date][]model.AttendanceRecord),
	}
}

// LoadGallery returns a copy of the saved snapshot.
func (m *Memory) LoadGallery(ctx context.Context) (gallery.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySnapshot(m.snap), nil
}

// SaveGallery replaces the saved snapshot.
func (m *Memory) SaveGallery(ctx context.Context, snap gallery.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = copySnapshot(snap)
	return nil
}

// AppendRecord appends rec to date's partition.
func (m *Memory) AppendRecord(ctx context.Context, date model.Date, rec model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partitions[date] = append(m.partitions[date], rec)
	return nil
}

// ReadPartition returns a copy of date's partition in insertion order.
func (m *Memory) ReadPartition(ctx context.Context, date model.Date) ([]model.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	part := m.partitions[date]
	out := make([]model.AttendanceRecord, len(part))
	copy(out, part)
	return out, nil
}

func copySnapshot(snap gallery.Snapshot) gallery.Snapshot {
	entries := make([]gallery.Entry, len(snap.Entries))
	for i, e := range snap.Entries {
		entries[i] = gallery.Entry{Label: e.Label, Vector: e.Vector.Clone()}
	}
	return gallery.Snapshot{Dimension: snap.Dimension, Entries: entries}
}
