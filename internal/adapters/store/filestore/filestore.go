// Package filestore persists the attendance ledger as one CSV file per
// calendar day and the gallery as a compressed JSON snapshot.
//
// Layout under the root directory:
//
//	attendance_2024-01-01.csv   one partition per day, append-only
//	gallery.json.gz             last saved gallery snapshot
package filestore

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/rollcall/rollcall/internal/adapters/store"
	"github.com/rollcall/rollcall/internal/domain/gallery"
	"github.com/rollcall/rollcall/internal/domain/model"
)

const (
	galleryFile = "gallery.json.gz"
	filePerm    = 0o644
	dirPerm     = 0o755
)

// header is the CSV column order for partition files.
var header = []string{"id", "label", "date", "time", "timestamp", "weekday", "status", "entry_kind"}

// FileStore implements store.Store on the local filesystem.
type FileStore struct {
	root string
	mu   sync.Mutex // serializes all partition and snapshot access
}

var _ store.Store = (*FileStore)(nil)

// New creates the root directory if needed and returns a store over it.
func New(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", store.ErrUnavailable, root, err)
	}
	return &FileStore{root: root}, nil
}

// LoadGallery reads the compressed snapshot. A missing file means no
// snapshot was ever saved and yields an empty snapshot.
func (f *FileStore) LoadGallery(ctx context.Context) (gallery.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := filepath.Join(f.root, galleryFile)
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return gallery.Snapshot{}, nil
	}
	if err != nil {
		return gallery.Snapshot{}, fmt.Errorf("%w: open snapshot: %w", store.ErrUnavailable, err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return gallery.Snapshot{}, fmt.Errorf("%w: snapshot gzip header: %w", store.ErrCorrupt, err)
	}
	defer zr.Close()

	var snap gallery.Snapshot
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return gallery.Snapshot{}, fmt.Errorf("%w: decode snapshot: %w", store.ErrCorrupt, err)
	}
	return snap, nil
}

// SaveGallery writes the snapshot to a temp file and renames it into place,
// so a crash mid-save never leaves a truncated snapshot.
func (f *FileStore) SaveGallery(ctx context.Context, snap gallery.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.root, galleryFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp snapshot: %w", store.ErrUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encode snapshot: %w", store.ErrUnavailable, err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: flush snapshot: %w", store.ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp snapshot: %w", store.ErrUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(f.root, galleryFile)); err != nil {
		return fmt.Errorf("%w: replace snapshot: %w", store.ErrUnavailable, err)
	}
	return nil
}

// AppendRecord appends rec to date's CSV partition, writing the header row
// when the file is new.
func (f *FileStore) AppendRecord(ctx context.Context, date model.Date, rec model.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.partitionPath(date)
	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, fs.ErrNotExist)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("%w: open partition %s: %w", store.ErrUnavailable, date, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if fresh {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("%w: write header: %w", store.ErrUnavailable, err)
		}
	}
	row := []string{
		rec.ID,
		rec.Label,
		string(rec.Date),
		rec.Time,
		rec.Timestamp.Format(time.RFC3339),
		rec.Weekday,
		string(rec.Status),
		string(rec.Kind),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("%w: write record: %w", store.ErrUnavailable, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush partition %s: %w", store.ErrUnavailable, date, err)
	}
	return nil
}

// ReadPartition reads date's CSV partition in file order. A missing file is
// an empty day. Reads hold the store lock so an in-flight append is never
// observed mid-row.
func (f *FileStore) ReadPartition(ctx context.Context, date model.Date) ([]model.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.partitionPath(date))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open partition %s: %w", store.ErrUnavailable, date, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(header)

	var out []model.AttendanceRecord
	first := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read partition %s: %w", store.ErrCorrupt, date, err)
		}
		if first {
			first = false
			continue // header row
		}
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, fmt.Errorf("%w: partition %s: %w", store.ErrCorrupt, date, err)
		}
		out = append(out, rec)
	}
}

func (f *FileStore) partitionPath(date model.Date) string {
	return filepath.Join(f.root, fmt.Sprintf("attendance_%s.csv", date))
}

func rowToRecord(row []string) (model.AttendanceRecord, error) {
	ts, err := time.Parse(time.RFC3339, row[4])
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("bad timestamp %q: %w", row[4], err)
	}
	return model.AttendanceRecord{
		ID:        row[0],
		Label:     row[1],
		Date:      model.Date(row[2]),
		Time:      row[3],
		Timestamp: ts,
		Weekday:   row[5],
		Status:    model.Status(row[6]),
		Kind:      model.EntryKind(row[7]),
	}, nil
}
