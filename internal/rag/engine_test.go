package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"salescoach-ai/internal/llm"
	llm_mocks "salescoach-ai/internal/llm/mocks"
	rag_mocks "salescoach-ai/internal/rag/mocks"
	"salescoach-ai/internal/vectorstore"
	vectorstore_mocks "salescoach-ai/internal/vectorstore/mocks"
)

type engineMocks struct {
	embedder  *llm_mocks.MockEmbedder
	store     *vectorstore_mocks.MockVectorStore
	generator *rag_mocks.MockGenerator
}

func newTestEngine(t *testing.T) (*Engine, engineMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)

	m := engineMocks{
		embedder:  llm_mocks.NewMockEmbedder(ctrl),
		store:     vectorstore_mocks.NewMockVectorStore(ctrl),
		generator: rag_mocks.NewMockGenerator(ctrl),
	}
	return NewEngine(m.embedder, m.store, m.generator), m
}

func TestRetrieveFormatsContext(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.embedder.EXPECT().EmbedText(ctx, "how much do panels cost").
		Return(llm.Embedding{Values: []float32{1, 0}}, nil)
	m.store.EXPECT().Query(ctx, []float32{1, 0}, 5, nil).
		Return([]vectorstore.Match{
			{ID: "a-chunk-0", Score: 0.9, Meta: map[string]string{"title": "Pricing Guide", "text": "Panels cost between X and Y."}},
			{ID: "b-chunk-1", Score: 0.8, Meta: map[string]string{"title": "FAQ", "text": "Financing is available."}},
		}, nil)

	result, err := engine.Retrieve(ctx, "how much do panels cost", 0, ModeAssistant)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	want := "[Pricing Guide]: Panels cost between X and Y.\n\n[FAQ]: Financing is available."
	if result.Context != want {
		t.Errorf("Retrieve() context = %q, want %q", result.Context, want)
	}
	if len(result.Matches) != 2 {
		t.Errorf("Retrieve() matches = %d, want 2", len(result.Matches))
	}
}

func TestRetrieveSimulationModeFilters(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.embedder.EXPECT().EmbedText(ctx, gomock.Any()).
		Return(llm.Embedding{Values: []float32{1, 0}}, nil)
	m.store.EXPECT().Query(ctx, []float32{1, 0}, 3, map[string]string{"type": "simulation"}).
		Return([]vectorstore.Match{
			{ID: "t-chunk-0", Score: 0.7, Meta: map[string]string{"title": "Call Transcript", "text": "Customer asked about warranties."}},
		}, nil)

	result, err := engine.Retrieve(ctx, "handle a warranty objection", 0, ModeSimulation)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !strings.Contains(result.Context, "Call Transcript") {
		t.Errorf("Retrieve() context = %q", result.Context)
	}
}

func TestRetrieveTopKBounds(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.embedder.EXPECT().EmbedText(ctx, gomock.Any()).
		Return(llm.Embedding{Values: []float32{1, 0}}, nil).Times(2)
	m.store.EXPECT().Query(ctx, gomock.Any(), maxTopK, nil).Return(nil, nil)
	m.store.EXPECT().Query(ctx, gomock.Any(), 7, nil).Return(nil, nil)

	if _, err := engine.Retrieve(ctx, "q", 100, ModeAssistant); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if _, err := engine.Retrieve(ctx, "q", 7, ModeAssistant); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.embedder.EXPECT().EmbedText(ctx, gomock.Any()).
		Return(llm.Embedding{Values: []float32{1, 0}}, nil)
	m.store.EXPECT().Query(ctx, gomock.Any(), 5, nil).Return(nil, nil)

	result, err := engine.Retrieve(ctx, "anything", 0, ModeAssistant)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if result.Context != noContextLabel {
		t.Errorf("Retrieve() context = %q, want %q", result.Context, noContextLabel)
	}
}

func TestRetrieveSearchFailureDegrades(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.embedder.EXPECT().EmbedText(ctx, gomock.Any()).
		Return(llm.Embedding{Values: []float32{1, 0}}, nil)
	m.store.EXPECT().Query(ctx, gomock.Any(), 5, nil).
		Return(nil, errors.New("index unavailable"))

	result, err := engine.Retrieve(ctx, "anything", 0, ModeAssistant)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if result.Context != noContextLabel {
		t.Errorf("Retrieve() context = %q, want %q", result.Context, noContextLabel)
	}
}

func TestRetrieveEmbedFailure(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.embedder.EXPECT().EmbedText(ctx, gomock.Any()).
		Return(llm.Embedding{}, errors.New("invalid API key"))

	if _, err := engine.Retrieve(ctx, "anything", 0, ModeAssistant); err == nil {
		t.Error("Retrieve() should fail when query embedding fails fatally")
	}
}

func TestChatGeneratesFromContext(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.embedder.EXPECT().EmbedText(ctx, "what warranty do you offer").
		Return(llm.Embedding{Values: []float32{1, 0}}, nil)
	m.store.EXPECT().Query(ctx, gomock.Any(), 5, nil).
		Return([]vectorstore.Match{
			{ID: "a-chunk-0", Score: 0.9, Meta: map[string]string{"title": "Warranty", "text": "25 year coverage."}},
		}, nil)
	m.generator.EXPECT().Generate(ctx, assistantPrompt, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, userMessage string) (string, error) {
			if !strings.Contains(userMessage, "[Warranty]: 25 year coverage.") {
				t.Errorf("user message missing context: %q", userMessage)
			}
			if !strings.Contains(userMessage, "User question: what warranty do you offer") {
				t.Errorf("user message missing question: %q", userMessage)
			}
			return "We offer a 25 year warranty.", nil
		})

	reply, err := engine.Chat(ctx, ModeAssistant, "what warranty do you offer")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "We offer a 25 year warranty." {
		t.Errorf("Chat() = %q", reply)
	}
}

func TestChatSimulationUsesPersona(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.embedder.EXPECT().EmbedText(ctx, gomock.Any()).
		Return(llm.Embedding{Values: []float32{1, 0}}, nil)
	m.store.EXPECT().Query(ctx, gomock.Any(), 3, map[string]string{"type": "simulation"}).
		Return(nil, nil)
	m.generator.EXPECT().Generate(ctx, simulationPrompt, gomock.Any()).
		Return("Great question! Let me walk you through it.", nil)

	reply, err := engine.Chat(ctx, ModeSimulation, "it seems expensive")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply == "" {
		t.Error("Chat() returned empty reply")
	}
}

func TestChatRetrievalFailureFallsBack(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.embedder.EXPECT().EmbedText(ctx, gomock.Any()).
		Return(llm.Embedding{}, errors.New("invalid API key"))

	reply, err := engine.Chat(ctx, ModeAssistant, "hello")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != fallbackReply {
		t.Errorf("Chat() = %q, want fallback reply", reply)
	}
}

func TestChatCancelledContextPropagates(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m.embedder.EXPECT().EmbedText(ctx, gomock.Any()).
		Return(llm.Embedding{}, ctx.Err())

	if _, err := engine.Chat(ctx, ModeAssistant, "hello"); !errors.Is(err, context.Canceled) {
		t.Errorf("Chat() error = %v, want context.Canceled", err)
	}
}

func TestChatGenerationFailureFallsBack(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.embedder.EXPECT().EmbedText(ctx, gomock.Any()).
		Return(llm.Embedding{Values: []float32{1, 0}}, nil)
	m.store.EXPECT().Query(ctx, gomock.Any(), 5, nil).Return(nil, nil)
	m.generator.EXPECT().Generate(ctx, gomock.Any(), gomock.Any()).
		Return("", errors.New("model overloaded"))

	reply, err := engine.Chat(ctx, ModeAssistant, "hello")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != fallbackReply {
		t.Errorf("Chat() = %q, want fallback reply", reply)
	}
}
