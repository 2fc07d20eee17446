package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks salescoach-ai/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentStore defines the interface for the indexed-set record.
type DocumentStore interface {
	// MarkIndexed records that all of a document's chunks were upserted.
	// An existing record for the same ID is replaced.
	MarkIndexed(ctx context.Context, doc *DocumentRecord) error
	// ListIndexedIDs returns the set of document IDs already in the index.
	ListIndexedIDs(ctx context.Context) (map[string]struct{}, error)
	// GetByID returns one document record. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*DocumentRecord, error)
}

// DocumentRepo provides SQLite-backed document record operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// MarkIndexed records that all of a document's chunks were upserted.
func (r *DocumentRepo) MarkIndexed(ctx context.Context, doc *DocumentRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, name, category, content_hash, chunk_count)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			indexed_at = CURRENT_TIMESTAMP`,
		doc.ID, doc.Name, doc.Category, doc.ContentHash, doc.ChunkCount,
	)
	if err != nil {
		return fmt.Errorf("failed to mark document indexed: %w", err)
	}
	return nil
}

// ListIndexedIDs returns the set of document IDs already in the index.
// Returns an empty map if nothing has been indexed (not an error).
func (r *DocumentRepo) ListIndexedIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM documents")
	if err != nil {
		return nil, fmt.Errorf("failed to query indexed document IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document ID: %w", err)
		}
		ids[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// GetByID returns one document record. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*DocumentRecord, error) {
	var doc DocumentRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, category, content_hash, chunk_count, indexed_at FROM documents WHERE id = ?",
		id,
	).Scan(&doc.ID, &doc.Name, &doc.Category, &doc.ContentHash, &doc.ChunkCount, &doc.IndexedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	return &doc, nil
}
