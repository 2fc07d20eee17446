package handlers

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_dependencies.go -package=mocks salescoach-ai/internal/handlers DocumentFetcher,Indexer,Retriever,Chatter

import (
	"context"
	"net/http"

	"salescoach-ai/internal/contextutil"
	"salescoach-ai/internal/drive"
	"salescoach-ai/internal/indexer"
)

// DocumentFetcher loads documents from the configured source folders.
// This interface is defined from the handler's perspective (consumer-first).
type DocumentFetcher interface {
	FetchAll(ctx context.Context, folders map[string]string) ([]drive.Document, error)
}

// Indexer runs the indexing pipeline over fetched documents.
type Indexer interface {
	IndexDocuments(ctx context.Context, docs []drive.Document) (indexer.Result, error)
}

// ProcessHandler handles HTTP requests to fetch and index documents.
type ProcessHandler struct {
	fetcher  DocumentFetcher
	pipeline Indexer
	folders  map[string]string
}

// NewProcessHandler creates a new ProcessHandler. folders maps document
// category to Drive folder ID.
func NewProcessHandler(fetcher DocumentFetcher, pipeline Indexer, folders map[string]string) *ProcessHandler {
	return &ProcessHandler{
		fetcher:  fetcher,
		pipeline: pipeline,
		folders:  folders,
	}
}

// ProcessResponse represents the HTTP response payload for an indexing run.
type ProcessResponse struct {
	Fetched int `json:"fetched"`
	indexer.Result
}

// ServeHTTP fetches every document from the configured folders and indexes
// the ones not already in the index.
func (h *ProcessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(ctx, w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if len(h.folders) == 0 {
		writeError(ctx, w, http.StatusBadRequest, "No document folders configured")
		return
	}

	docs, err := h.fetcher.FetchAll(ctx, h.folders)
	if err != nil {
		logger.ErrorContext(ctx, "failed to fetch documents", "error", err)
		writeError(ctx, w, http.StatusBadGateway, "Failed to fetch documents")
		return
	}

	result, err := h.pipeline.IndexDocuments(ctx, docs)
	if err != nil {
		logger.ErrorContext(ctx, "indexing run failed", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Indexing failed")
		return
	}

	writeJSON(ctx, w, http.StatusOK, ProcessResponse{Fetched: len(docs), Result: result})
}
