// Package match implements nearest-neighbor identity matching over a
// gallery of face embeddings.
package match

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rollcall/rollcall/internal/domain/gallery"
	"github.com/rollcall/rollcall/internal/domain/model"
)

// Unknown is the label returned when no gallery entry falls within the
// operating tolerance.
const Unknown = "Unknown"

// DefaultTolerance is the operating distance threshold. Lower is stricter.
const DefaultTolerance = 0.4

// Result is the outcome of a single recognition. Confidence is 1 - distance
// to the nearest gallery embedding, a monotonic proxy for match quality; it
// is reported even when the label is Unknown.
type Result struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Matched reports whether the result resolved to a known identity.
func (r Result) Matched() bool {
	return r.Label != Unknown
}

// Stats tracks recognition outcomes since the matcher was created.
type Stats struct {
	TotalRecognitions int     `json:"total_recognitions"`
	Matched           int     `json:"matched"`
	Unknown           int     `json:"unknown"`
	AverageConfidence float64 `json:"average_confidence"`
}

// Matcher resolves query embeddings against a gallery. The scan is a linear
// pass over all entries in insertion order; ties on minimum distance keep
// the first occurrence, so results are deterministic for a given insertion
// history.
type Matcher struct {
	gallery   *gallery.Gallery
	tolerance float64

	mu            sync.Mutex
	total         int
	matched       int
	unknown       int
	confidenceSum float64
}

// New creates a matcher over g.
func New(g *gallery.Gallery, opts ...Option) *Matcher {
	m := &Matcher{
		gallery:   g,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DefaultTolerance returns the configured operating tolerance.
func (m *Matcher) DefaultTolerance() float64 {
	return m.tolerance
}

// Recognize finds the nearest gallery embedding to query. A tolerance <= 0
// means "use the configured default". An empty gallery yields
// (Unknown, 0.0), never an error; a query of the wrong dimension is an
// ErrDimensionMismatch.
func (m *Matcher) Recognize(ctx context.Context, query model.Embedding, tolerance float64) (Result, error) {
	if len(query) != m.gallery.Dimension() {
		return Result{}, fmt.Errorf("%w: query dimension %d, gallery dimension %d",
			gallery.ErrDimensionMismatch, len(query), m.gallery.Dimension())
	}
	if tolerance <= 0 {
		tolerance = m.tolerance
	}

	best := math.Inf(1)
	bestLabel := ""
	found := false
	m.gallery.ForEach(func(label string, vector model.Embedding) bool {
		// Strict < keeps the first occurrence on equal distances.
		if d := euclidean(query, vector); d < best {
			best = d
			bestLabel = label
		}
		found = true
		return true
	})

	if !found {
		// Empty gallery: an expected outcome, not counted against stats.
		return Result{Label: Unknown, Confidence: 0}, nil
	}

	res := Result{Label: Unknown, Confidence: 1 - best}
	if best <= tolerance {
		res.Label = bestLabel
	}
	m.record(res)
	return res, nil
}

// RecognizeBatch applies Recognize to each query independently, preserving
// input order. The first structural error aborts the batch.
func (m *Matcher) RecognizeBatch(ctx context.Context, queries []model.Embedding, tolerance float64) ([]Result, error) {
	results := make([]Result, 0, len(queries))
	for i, q := range queries {
		res, err := m.Recognize(ctx, q, tolerance)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Stats returns recognition counters since construction.
func (m *Matcher) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	avg := 0.0
	if m.matched > 0 {
		avg = m.confidenceSum / float64(m.matched)
	}
	return Stats{
		TotalRecognitions: m.total,
		Matched:           m.matched,
		Unknown:           m.unknown,
		AverageConfidence: avg,
	}
}

func (m *Matcher) record(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	if res.Matched() {
		m.matched++
		m.confidenceSum += res.Confidence
	} else {
		m.unknown++
	}
}

// euclidean returns the L2 distance between two equal-length vectors.
func euclidean(a, b model.Embedding) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
