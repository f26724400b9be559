// Package sqlite persists the gallery and attendance ledger in a single
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rollcall/rollcall/internal/adapters/store"
	"github.com/rollcall/rollcall/internal/domain/gallery"
	"github.com/rollcall/rollcall/internal/domain/model"
)

// Store implements store.Store backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var _ store.Store = (*Store)(nil)

// Open initializes or connects to the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: ensure directory: %w", store.ErrUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %w", store.ErrUnavailable, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: apply pragma %q: %w", store.ErrUnavailable, pragma, execErr)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applySchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS attendance_records (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL,
			label      TEXT NOT NULL,
			date       TEXT NOT NULL,
			time       TEXT NOT NULL,
			timestamp  TEXT NOT NULL,
			weekday    TEXT NOT NULL,
			status     TEXT NOT NULL,
			entry_kind TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance_records(date)`,
		`CREATE TABLE IF NOT EXISTS gallery_embeddings (
			seq    INTEGER PRIMARY KEY AUTOINCREMENT,
			label  TEXT NOT NULL,
			dim    INTEGER NOT NULL,
			vector TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: apply schema: %w", store.ErrUnavailable, err)
		}
	}
	return nil
}

// LoadGallery reads all stored embeddings in insertion order.
func (s *Store) LoadGallery(ctx context.Context) (gallery.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, dim, vector FROM gallery_embeddings ORDER BY seq`)
	if err != nil {
		return gallery.Snapshot{}, fmt.Errorf("%w: query gallery: %w", store.ErrUnavailable, err)
	}
	defer rows.Close()

	var snap gallery.Snapshot
	for rows.Next() {
		var (
			label  string
			dim    int
			packed string
		)
		if err := rows.Scan(&label, &dim, &packed); err != nil {
			return gallery.Snapshot{}, fmt.Errorf("%w: scan gallery row: %w", store.ErrCorrupt, err)
		}
		var vec model.Embedding
		if err := json.Unmarshal([]byte(packed), &vec); err != nil {
			return gallery.Snapshot{}, fmt.Errorf("%w: decode vector for %s: %w", store.ErrCorrupt, label, err)
		}
		snap.Dimension = dim
		snap.Entries = append(snap.Entries, gallery.Entry{Label: label, Vector: vec})
	}
	if err := rows.Err(); err != nil {
		return gallery.Snapshot{}, fmt.Errorf("%w: iterate gallery: %w", store.ErrUnavailable, err)
	}
	return snap, nil
}

// SaveGallery replaces the stored snapshot in one transaction.
func (s *Store) SaveGallery(ctx context.Context, snap gallery.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin save: %w", store.ErrUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM gallery_embeddings`); err != nil {
		return fmt.Errorf("%w: clear gallery: %w", store.ErrUnavailable, err)
	}
	for _, e := range snap.Entries {
		packed, err := json.Marshal(e.Vector)
		if err != nil {
			return fmt.Errorf("%w: encode vector for %s: %w", store.ErrUnavailable, e.Label, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gallery_embeddings (label, dim, vector) VALUES (?, ?, ?)`,
			e.Label, snap.Dimension, string(packed)); err != nil {
			return fmt.Errorf("%w: insert embedding for %s: %w", store.ErrUnavailable, e.Label, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit save: %w", store.ErrUnavailable, err)
	}
	return nil
}

// AppendRecord inserts rec into date's partition.
func (s *Store) AppendRecord(ctx context.Context, date model.Date, rec model.AttendanceRecord) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance_records
			(id, label, date, time, timestamp, weekday, status, entry_kind)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Label,
		string(date),
		rec.Time,
		rec.Timestamp.Format(time.RFC3339Nano),
		rec.Weekday,
		string(rec.Status),
		string(rec.Kind),
	); err != nil {
		return fmt.Errorf("%w: insert record: %w", store.ErrUnavailable, err)
	}
	return nil
}

// ReadPartition returns date's records ordered by insertion.
func (s *Store) ReadPartition(ctx context.Context, date model.Date) ([]model.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, date, time, timestamp, weekday, status, entry_kind
		 FROM attendance_records WHERE date = ? ORDER BY seq`,
		string(date))
	if err != nil {
		return nil, fmt.Errorf("%w: query partition %s: %w", store.ErrUnavailable, date, err)
	}
	defer rows.Close()

	var out []model.AttendanceRecord
	for rows.Next() {
		var (
			rec   model.AttendanceRecord
			day   string
			ts    string
			state string
			kind  string
		)
		if err := rows.Scan(&rec.ID, &rec.Label, &day, &rec.Time, &ts, &rec.Weekday, &state, &kind); err != nil {
			return nil, fmt.Errorf("%w: scan record: %w", store.ErrCorrupt, err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: bad timestamp %q: %w", store.ErrCorrupt, ts, err)
		}
		rec.Date = model.Date(day)
		rec.Timestamp = parsed
		rec.Status = model.Status(state)
		rec.Kind = model.EntryKind(kind)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate partition %s: %w", store.ErrUnavailable, date, err)
	}
	return out, nil
}
