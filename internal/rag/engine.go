package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks salescoach-ai/internal/rag Generator

import (
	"context"
	"fmt"
	"strings"

	"salescoach-ai/internal/contextutil"
	"salescoach-ai/internal/llm"
	"salescoach-ai/internal/vectorstore"
)

const (
	// ModeAssistant answers factual questions from the document corpus.
	ModeAssistant = "assistant"
	// ModeSimulation role-plays a salesperson using call transcripts.
	ModeSimulation = "simulation"

	defaultAssistantTopK  = 5
	defaultSimulationTopK = 3
	maxTopK               = 20

	noContextLabel = "No relevant documents found."

	fallbackReply = "I'm sorry, I'm having trouble responding right now. Please try again in a moment."
)

const assistantPrompt = "You are a helpful assistant that provides factual information about solar panels, " +
	"sales processes, and technical specifications. Provide clear, accurate information " +
	"based on the documents available to you."

const simulationPrompt = "You are simulating a solar panel salesperson based on real sales call transcripts. " +
	"Maintain the tone, style, objection handling techniques, and approach used in these transcripts. " +
	"Answer as if you are the salesperson in a live call. Use the same language patterns, " +
	"terminology, and conversational approach seen in the transcripts."

// Generator produces a reply from a system prompt and a user message.
// This interface is defined from the engine's perspective (consumer-first).
type Generator interface {
	Generate(ctx context.Context, system, userMessage string) (string, error)
}

// RetrievalResult is the context assembled for one query.
type RetrievalResult struct {
	Context  string
	Matches  []vectorstore.Match
	Degraded bool
}

// Engine answers queries by retrieving relevant chunks from the vector index
// and generating replies grounded in them.
type Engine struct {
	embedder  llm.Embedder
	store     vectorstore.VectorStore
	generator Generator
}

// NewEngine creates a retrieval engine.
func NewEngine(embedder llm.Embedder, store vectorstore.VectorStore, generator Generator) *Engine {
	return &Engine{
		embedder:  embedder,
		store:     store,
		generator: generator,
	}
}

// Retrieve embeds the query, searches the index, and formats the matches as
// context. Simulation mode restricts the search to transcript documents.
// An empty index or a search failure yields the no-context label rather than
// an error, so callers can still generate a reply.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int, mode string) (RetrievalResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if topK <= 0 {
		if mode == ModeSimulation {
			topK = defaultSimulationTopK
		} else {
			topK = defaultAssistantTopK
		}
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	embedding, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("failed to embed query: %w", err)
	}
	if embedding.Degraded {
		logger.WarnContext(ctx, "query embedding degraded", "reason", embedding.Reason)
	}

	var filter map[string]string
	if mode == ModeSimulation {
		filter = map[string]string{"type": ModeSimulation}
	}

	matches, err := e.store.Query(ctx, embedding.Values, topK, filter)
	if err != nil {
		logger.ErrorContext(ctx, "vector search failed", "error", err)
		return RetrievalResult{Context: noContextLabel, Degraded: embedding.Degraded}, nil
	}
	if len(matches) == 0 {
		return RetrievalResult{Context: noContextLabel, Matches: matches, Degraded: embedding.Degraded}, nil
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		title := m.Meta["title"]
		if title == "" {
			title = "Untitled"
		}
		parts = append(parts, fmt.Sprintf("[%s]: %s", title, m.Meta["text"]))
	}

	logger.InfoContext(ctx, "retrieved context", "mode", mode, "topK", topK, "matches", len(matches))
	return RetrievalResult{
		Context:  strings.Join(parts, "\n\n"),
		Matches:  matches,
		Degraded: embedding.Degraded,
	}, nil
}

// Chat retrieves context for the message and generates a reply in the given
// mode. Retrieval and generation failures both return an apologetic fallback
// reply instead of surfacing the error to the caller; only a cancelled
// context propagates.
func (e *Engine) Chat(ctx context.Context, mode, message string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	retrieval, err := e.Retrieve(ctx, message, 0, mode)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.ErrorContext(ctx, "retrieval failed", "mode", mode, "error", err)
		return fallbackReply, nil
	}

	system := assistantPrompt
	if mode == ModeSimulation {
		system = simulationPrompt
	}

	userMessage := fmt.Sprintf("Context from documents:\n%s\n\nUser question: %s", retrieval.Context, message)

	reply, err := e.generator.Generate(ctx, system, userMessage)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.ErrorContext(ctx, "generation failed", "mode", mode, "error", err)
		return fallbackReply, nil
	}

	logger.InfoContext(ctx, "chat processed", "mode", mode, "message_length", len(message), "reply_length", len(reply))
	return reply, nil
}
