package storage

import "time"

// DocumentRecord is one row of the indexed-set record: a source document whose
// full chunk set has been upserted to the vector index.
type DocumentRecord struct {
	ID          string // Source-provided document ID (Drive file ID)
	Name        string // Display name
	Category    string // "simulation", "technical", or "general"
	ContentHash string // SHA256 hex of the document text at indexing time
	ChunkCount  int
	IndexedAt   time.Time
}

// ChunkRecord mirrors one chunk written to the vector index.
type ChunkRecord struct {
	ID         string // Same as the vector entry ID: "<docID>-chunk-<seq>"
	DocumentID string
	Seq        int // Chunk sequence number within the document (starts at 0)
	Text       string
}
