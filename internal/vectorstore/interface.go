package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks salescoach-ai/internal/vectorstore VectorStore

import (
	"context"
	"errors"
)

// UpsertBatchSize caps how many entries go into one upsert request, keeping
// request payloads under backend limits.
const UpsertBatchSize = 100

// ErrDimensionMismatch indicates the backing index exists with a different
// vector size than configured. This is a fatal configuration error.
var ErrDimensionMismatch = errors.New("index dimension mismatch")

// Entry is the persisted unit in the vector index: the chunk ID, its embedding
// values, and display metadata (fileId, title, type, text excerpt).
type Entry struct {
	ID     string
	Values []float32
	Meta   map[string]string
}

// Match is one ranked result of a similarity query.
type Match struct {
	ID    string
	Score float32
	Meta  map[string]string
}

// IndexStats describes the current state of the index.
type IndexStats struct {
	VectorCount int
	Dimension   int
}

// VectorStore defines the interface for vector index operations.
type VectorStore interface {
	// EnsureIndex creates the backing index with cosine similarity if absent.
	// It is a no-op when the index exists with a matching dimension and
	// returns ErrDimensionMismatch otherwise.
	EnsureIndex(ctx context.Context, dimension int) error

	// Upsert writes entries in batches of at most UpsertBatchSize, retrying
	// transient failures per batch.
	Upsert(ctx context.Context, entries []Entry) error

	// Query returns up to topK matches ordered by descending similarity.
	// filter restricts matches to entries whose metadata contains every given
	// key/value pair; nil means no filter. An empty index yields an empty
	// match list, not an error.
	Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]Match, error)

	// Stats reports the current vector count and dimension.
	Stats(ctx context.Context) (IndexStats, error)
}
