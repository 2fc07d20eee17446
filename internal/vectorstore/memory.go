package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a local in-memory vector index using brute-force cosine
// similarity. It backs development and test runs when no remote vector store
// is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// EnsureIndex fixes the store's dimension. Re-ensuring with a different
// dimension returns ErrDimensionMismatch.
func (s *MemoryStore) EnsureIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("%w: index has %d, configured %d", ErrDimensionMismatch, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

// Upsert inserts or replaces entries by ID.
func (s *MemoryStore) Upsert(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return fmt.Errorf("index not initialized")
	}
	for _, e := range entries {
		if len(e.Values) != s.dimension {
			return fmt.Errorf("%w: entry %s has %d values, index has %d", ErrDimensionMismatch, e.ID, len(e.Values), s.dimension)
		}
	}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return nil
}

// Query scores every stored entry against vector with cosine similarity and
// returns the topK best, descending. An empty store returns no matches.
func (s *MemoryStore) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		topK = 5
	}

	matches := make([]Match, 0, len(s.entries))
	for _, e := range s.entries {
		if !metaMatches(e.Meta, filter) {
			continue
		}
		matches = append(matches, Match{ID: e.ID, Score: cosine(vector, e.Values), Meta: e.Meta})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Stats reports the current vector count and dimension.
func (s *MemoryStore) Stats(ctx context.Context) (IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return IndexStats{VectorCount: len(s.entries), Dimension: s.dimension}, nil
}

func metaMatches(meta, filter map[string]string) bool {
	for k, v := range filter {
		if meta[k] != v {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
