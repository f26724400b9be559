// Package gallery owns the set of labeled face embeddings used for matching.
//
// The gallery preserves insertion order; matching iterates entries in the
// order they were added, which makes nearest-neighbor tie-breaking
// deterministic. Reads may proceed concurrently; writes take the exclusive
// lock so a matcher never observes a partially updated vector set.
package gallery

import (
	"fmt"
	"sync"

	"github.com/rollcall/rollcall/internal/domain/model"
)

// DefaultDimension matches the 128-d encodings produced by common face
// embedding models.
const DefaultDimension = 128

// Entry is one (label, vector) pair.
type Entry struct {
	Label  string          `json:"label"`
	Vector model.Embedding `json:"vector"`
}

// Snapshot is an opaque, storage-independent copy of the full gallery
// contents, suitable for the persistence collaborator.
type Snapshot struct {
	Dimension int     `json:"dimension"`
	Entries   []Entry `json:"entries"`
}

// Report is the result of an integrity validation pass.
type Report struct {
	Valid            bool     `json:"valid"`
	Errors           []string `json:"errors"`
	Warnings         []string `json:"warnings"`
	TotalEmbeddings  int      `json:"total_embeddings"`
	UniqueIdentities int      `json:"unique_identities"`
}

// Stats summarizes gallery contents. Computed on demand, never persisted.
type Stats struct {
	UniqueIdentities int            `json:"unique_identities"`
	TotalEmbeddings  int            `json:"total_embeddings"`
	PerIdentity      map[string]int `json:"per_identity"`
}

// Gallery is the in-memory embedding collection. Safe for concurrent use.
type Gallery struct {
	mu      sync.RWMutex
	dim     int
	entries []Entry
	counts  map[string]int
}

// New creates an empty gallery.
func New(opts ...Option) *Gallery {
	g := &Gallery{
		dim:    DefaultDimension,
		counts: make(map[string]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dimension returns the required embedding dimension D.
func (g *Gallery) Dimension() int {
	return g.dim
}

// Add appends vectors under label. The same label may receive more vectors
// over multiple calls. Rejects the whole batch if any vector's length
// differs from the gallery dimension; nothing is mutated on failure.
func (g *Gallery) Add(label string, vectors []model.Embedding) (int, error) {
	for _, v := range vectors {
		if len(v) != g.dim {
			return 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), g.dim)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, v := range vectors {
		g.entries = append(g.entries, Entry{Label: label, Vector: v.Clone()})
	}
	g.counts[label] += len(vectors)
	return len(vectors), nil
}

// Remove deletes every embedding owned by label and returns the number
// removed. Removing an absent label is a no-op, not an error.
func (g *Gallery) Remove(label string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := g.counts[label]
	if removed == 0 {
		return 0
	}

	kept := g.entries[:0]
	for _, e := range g.entries {
		if e.Label != label {
			kept = append(kept, e)
		}
	}
	g.entries = kept
	delete(g.counts, label)
	return removed
}

// Optimize keeps at most maxPerIdentity embeddings per label, preferring the
// earliest-inserted ones, and returns the number discarded. Idempotent:
// re-running with the same bound removes nothing.
func (g *Gallery) Optimize(maxPerIdentity int) int {
	if maxPerIdentity <= 0 {
		return 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[string]int, len(g.counts))
	kept := g.entries[:0]
	dropped := 0
	for _, e := range g.entries {
		if seen[e.Label] >= maxPerIdentity {
			dropped++
			g.counts[e.Label]--
			continue
		}
		seen[e.Label]++
		kept = append(kept, e)
	}
	g.entries = kept
	return dropped
}

// Validate checks internal consistency without mutating state: every vector
// must have the gallery dimension and the per-label bookkeeping must agree
// with the entry list. Exact duplicate vectors are flagged as a warning.
func (g *Gallery) Validate() Report {
	g.mu.RLock()
	defer g.mu.RUnlock()

	report := Report{
		Valid:            true,
		TotalEmbeddings:  len(g.entries),
		UniqueIdentities: len(g.counts),
	}

	recount := make(map[string]int, len(g.counts))
	dupes := make(map[string]struct{}, len(g.entries))
	duplicateSeen := false
	for i, e := range g.entries {
		if len(e.Vector) != g.dim {
			report.Valid = false
			report.Errors = append(report.Errors,
				fmt.Sprintf("entry %d (%s): dimension %d, want %d", i, e.Label, len(e.Vector), g.dim))
		}
		recount[e.Label]++

		key := fingerprint(e.Vector)
		if _, ok := dupes[key]; ok {
			duplicateSeen = true
		}
		dupes[key] = struct{}{}
	}

	if len(recount) != len(g.counts) {
		report.Valid = false
		report.Errors = append(report.Errors,
			fmt.Sprintf("identity count mismatch: %d tracked, %d found", len(g.counts), len(recount)))
	}
	for label, n := range recount {
		if g.counts[label] != n {
			report.Valid = false
			report.Errors = append(report.Errors,
				fmt.Sprintf("identity %s: tracked %d embeddings, found %d", label, g.counts[label], n))
		}
	}

	if duplicateSeen {
		report.Warnings = append(report.Warnings, "duplicate embeddings detected")
	}
	return report
}

// Snapshot deep-copies the gallery contents for persistence.
func (g *Gallery) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entries := make([]Entry, len(g.entries))
	for i, e := range g.entries {
		entries[i] = Entry{Label: e.Label, Vector: e.Vector.Clone()}
	}
	return Snapshot{Dimension: g.dim, Entries: entries}
}

// Restore replaces the gallery contents with a previously taken snapshot.
// The snapshot's dimension must match; on failure nothing is mutated.
// A zero-value snapshot restores an empty gallery.
func (g *Gallery) Restore(snap Snapshot) error {
	if snap.Dimension != 0 && snap.Dimension != g.dim {
		return fmt.Errorf("%w: snapshot dimension %d, gallery dimension %d",
			ErrDimensionMismatch, snap.Dimension, g.dim)
	}
	for i, e := range snap.Entries {
		if len(e.Vector) != g.dim {
			return fmt.Errorf("%w: snapshot entry %d has dimension %d, want %d",
				ErrDimensionMismatch, i, len(e.Vector), g.dim)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.entries = make([]Entry, len(snap.Entries))
	g.counts = make(map[string]int, len(snap.Entries))
	for i, e := range snap.Entries {
		g.entries[i] = Entry{Label: e.Label, Vector: e.Vector.Clone()}
		g.counts[e.Label]++
	}
	return nil
}

// Stats returns per-identity embedding counts.
func (g *Gallery) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	per := make(map[string]int, len(g.counts))
	for label, n := range g.counts {
		per[label] = n
	}
	return Stats{
		UniqueIdentities: len(g.counts),
		TotalEmbeddings:  len(g.entries),
		PerIdentity:      per,
	}
}

// Size returns the total number of stored embeddings.
func (g *Gallery) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// ForEach calls fn for every entry in insertion order under the read lock,
// stopping early if fn returns false. fn must not call back into the gallery.
func (g *Gallery) ForEach(fn func(label string, vector model.Embedding) bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, e := range g.entries {
		if !fn(e.Label, e.Vector) {
			return
		}
	}
}

// fingerprint builds a comparable key for duplicate detection.
func fingerprint(v model.Embedding) string {
	return fmt.Sprintf("%v", []float64(v))
}
