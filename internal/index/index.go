// Package index holds the chunk embeddings of one dataset snapshot and
// ranks them against a query vector with brute-force cosine similarity.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"payrollrag/internal/domain"
	"payrollrag/internal/query"
)

// Boost amounts added to the cosine score.
const (
	MonthBoost    = 0.10
	EmployeeBoost = 0.15
)

// DefaultTopK is used when a caller passes a non-positive topK.
const DefaultTopK = 3

// Boosts carries the signals extracted from the query text.
type Boosts struct {
	Month    query.Signal
	Employee query.Signal
}

// Index is an immutable in-memory set of chunks and their vectors;
// vectors[i] belongs to chunks[i].
type Index struct {
	dimension int
	vectors   [][]float64
	chunks    []domain.Chunk
}

// New validates the pairing of chunks and vectors.
func New(chunks []domain.Chunk, vectors [][]float64) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d: dimension %d, want %d", i, len(v), dim)
		}
	}
	return &Index{dimension: dim, vectors: vectors, chunks: chunks}, nil
}

// Len returns the number of chunks.
func (x *Index) Len() int { return len(x.chunks) }

// Dimension returns the vector size.
func (x *Index) Dimension() int { return x.dimension }

// Chunks returns the indexed chunks in dataset order.
func (x *Index) Chunks() []domain.Chunk { return x.chunks }

// Vectors returns the chunk embeddings in dataset order.
func (x *Index) Vectors() [][]float64 { return x.vectors }

// Search scores every chunk against vec, adds the boosts and returns the
// topK best, highest first. Ties keep dataset order.
func (x *Index) Search(vec []float64, topK int, b Boosts) ([]domain.SearchResult, error) {
	if x.dimension > 0 && len(vec) != x.dimension {
		return nil, errors.New("query vector dimension mismatch")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	results := make([]domain.SearchResult, len(x.chunks))
	for i, c := range x.chunks {
		results[i] = domain.SearchResult{
			Chunk: c,
			Score: Cosine(vec, x.vectors[i]) + Boost(c.Record, b),
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// Boost returns the additive boost earned by rec under b.
func Boost(rec domain.Record, b Boosts) float64 {
	s := 0.0
	if b.Month.MatchesCompetency(rec.Competency) {
		s += MonthBoost
	}
	if b.Employee.MatchesName(rec.Name) {
		s += EmployeeBoost
	}
	return s
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero vector.
func Cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
