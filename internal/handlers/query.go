package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"salescoach-ai/internal/contextutil"
	"salescoach-ai/internal/rag"
)

// Retriever returns formatted context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, mode string) (rag.RetrievalResult, error)
}

// QueryHandler handles HTTP requests for retrieval without generation.
type QueryHandler struct {
	retriever Retriever
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(retriever Retriever) *QueryHandler {
	return &QueryHandler{retriever: retriever}
}

// QueryRequest represents the HTTP request payload for retrieval.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
	Mode  string `json:"mode"`
}

// QueryMatch is one retrieved chunk in the response.
type QueryMatch struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
	Title string  `json:"title"`
	Type  string  `json:"type"`
	Text  string  `json:"text"`
}

// QueryResponse represents the HTTP response payload for retrieval.
type QueryResponse struct {
	Context  string       `json:"context"`
	Matches  []QueryMatch `json:"matches"`
	Degraded bool         `json:"degraded,omitempty"`
}

// ServeHTTP handles retrieval requests.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(ctx, w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		writeError(ctx, w, http.StatusBadRequest, "Query cannot be empty")
		return
	}

	result, err := h.retriever.Retrieve(ctx, req.Query, req.TopK, req.Mode)
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to retrieve context")
		return
	}

	matches := make([]QueryMatch, 0, len(result.Matches))
	for _, m := range result.Matches {
		matches = append(matches, QueryMatch{
			ID:    m.ID,
			Score: m.Score,
			Title: m.Meta["title"],
			Type:  m.Meta["type"],
			Text:  m.Meta["text"],
		})
	}

	writeJSON(ctx, w, http.StatusOK, QueryResponse{
		Context:  result.Context,
		Matches:  matches,
		Degraded: result.Degraded,
	})
}
