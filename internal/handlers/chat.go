package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"salescoach-ai/internal/contextutil"
	"salescoach-ai/internal/rag"
)

// Chatter generates retrieval-grounded replies.
type Chatter interface {
	Chat(ctx context.Context, mode, message string) (string, error)
}

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	engine Chatter
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(engine Chatter) *ChatHandler {
	return &ChatHandler{engine: engine}
}

// ChatRequest represents the HTTP request payload for chat.
type ChatRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Reply string `json:"reply"`
	Mode  string `json:"mode"`
}

// ServeHTTP handles chat requests. Mode defaults to assistant; simulation
// mode role-plays a salesperson from transcript documents.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(ctx, w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		writeError(ctx, w, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	mode := req.Mode
	switch mode {
	case "":
		mode = rag.ModeAssistant
	case rag.ModeAssistant, rag.ModeSimulation:
	default:
		writeError(ctx, w, http.StatusBadRequest, "Mode must be \"assistant\" or \"simulation\"")
		return
	}

	reply, err := h.engine.Chat(ctx, mode, req.Message)
	if err != nil {
		logger.ErrorContext(ctx, "chat failed", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to process chat request")
		return
	}

	writeJSON(ctx, w, http.StatusOK, ChatResponse{Reply: reply, Mode: mode})
}
