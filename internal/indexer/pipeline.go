package indexer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"salescoach-ai/internal/contextutil"
	"salescoach-ai/internal/drive"
	"salescoach-ai/internal/llm"
	"salescoach-ai/internal/storage"
	"salescoach-ai/internal/vectorstore"
)

const (
	// embedBatchSize is how many chunks are embedded and upserted per round.
	embedBatchSize = 10

	// metaTextLimit caps the chunk text stored as vector metadata, in runes.
	metaTextLimit = 1000
)

// Pipeline orchestrates indexing of documents into the vector index and the
// local record of what has been indexed.
type Pipeline struct {
	docRepo     storage.DocumentStore
	chunkRepo   storage.ChunkStore
	embedder    llm.Embedder
	vectorStore vectorstore.VectorStore
	chunker     *Chunker
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(
	docRepo storage.DocumentStore,
	chunkRepo storage.ChunkStore,
	embedder llm.Embedder,
	vectorStore vectorstore.VectorStore,
) *Pipeline {
	return &Pipeline{
		docRepo:     docRepo,
		chunkRepo:   chunkRepo,
		embedder:    embedder,
		vectorStore: vectorStore,
		chunker:     NewChunker(),
	}
}

// Result summarizes one indexing run. SkippedIDs lists every document that
// was already in the index record and therefore not reprocessed.
type Result struct {
	Processed  int      `json:"processed"`
	ChunkCount int      `json:"chunk_count"`
	Skipped    int      `json:"skipped"`
	SkippedIDs []string `json:"skipped_document_ids,omitempty"`
	Failed     int      `json:"failed"`
}

// IndexDocuments indexes every document not already recorded as indexed.
// A document already in the record is skipped regardless of content, so
// re-running against the same corpus is a no-op. A failure on one document
// is counted and logged but does not stop the run.
func (p *Pipeline) IndexDocuments(ctx context.Context, docs []drive.Document) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	indexed, err := p.docRepo.ListIndexedIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list indexed documents: %w", err)
	}

	logger.InfoContext(ctx, "starting indexing", "total_documents", len(docs), "already_indexed", len(indexed))

	var result Result
	for _, doc := range docs {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if _, ok := indexed[doc.ID]; ok {
			result.Skipped++
			result.SkippedIDs = append(result.SkippedIDs, doc.ID)
			logger.DebugContext(ctx, "skipping indexed document", "file_id", doc.ID, "name", doc.Name)
			continue
		}

		chunkCount, err := p.indexDocument(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Failed++
			logger.ErrorContext(ctx, "failed to index document", "file_id", doc.ID, "name", doc.Name, "error", err)
			continue
		}

		result.Processed++
		result.ChunkCount += chunkCount
	}

	logger.InfoContext(ctx, "indexing completed",
		"processed", result.Processed,
		"chunks", result.ChunkCount,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

// indexDocument chunks, embeds, and upserts one document, then records it as
// indexed. The record is written only after every chunk is in the index, so
// a partial failure leaves the document eligible for the next run.
func (p *Pipeline) indexDocument(ctx context.Context, doc drive.Document) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	chunks := p.chunker.Chunk(doc.ID, doc.Content, ProfileFor(doc.Category))

	degraded := 0
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		embeddings, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(embeddings) != len(batch) {
			return 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(embeddings))
		}

		entries := make([]vectorstore.Entry, len(batch))
		for i, chunk := range batch {
			if embeddings[i].Degraded {
				degraded++
			}
			entries[i] = vectorstore.Entry{
				ID:     chunk.ID(),
				Values: embeddings[i].Values,
				Meta: map[string]string{
					"text":   truncateRunes(chunk.Text, metaTextLimit),
					"fileId": doc.ID,
					"title":  doc.Name,
					"type":   doc.Category,
				},
			}
		}

		if err := p.vectorStore.Upsert(ctx, entries); err != nil {
			return 0, fmt.Errorf("failed to upsert chunk batch: %w", err)
		}
	}

	hash := sha256.Sum256([]byte(doc.Content))
	record := &storage.DocumentRecord{
		ID:          doc.ID,
		Name:        doc.Name,
		Category:    doc.Category,
		ContentHash: fmt.Sprintf("%x", hash),
		ChunkCount:  len(chunks),
		IndexedAt:   time.Now().UTC(),
	}
	if err := p.docRepo.MarkIndexed(ctx, record); err != nil {
		return 0, fmt.Errorf("failed to record indexed document: %w", err)
	}

	chunkRecords := make([]*storage.ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		chunkRecords[i] = &storage.ChunkRecord{
			ID:         chunk.ID(),
			DocumentID: chunk.DocumentID,
			Seq:        chunk.Seq,
			Text:       chunk.Text,
		}
	}
	if err := p.chunkRepo.ReplaceForDocument(ctx, doc.ID, chunkRecords); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	logger.InfoContext(ctx, "indexed document", "file_id", doc.ID, "name", doc.Name, "chunks", len(chunks), "degraded_embeddings", degraded)
	return len(chunks), nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
