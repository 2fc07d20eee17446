package llm

import (
	"context"
	"testing"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	h := NewHashEmbedder(1024)

	a, err := h.EmbedText(context.Background(), "the same text")
	if err != nil {
		t.Fatalf("EmbedText() error = %v", err)
	}
	b, err := h.EmbedText(context.Background(), "the same text")
	if err != nil {
		t.Fatalf("EmbedText() error = %v", err)
	}

	if len(a.Values) != 1024 {
		t.Fatalf("dimension = %d, want 1024", len(a.Values))
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			t.Fatalf("values differ at %d: %v != %v", i, a.Values[i], b.Values[i])
		}
	}
}

func TestHashEmbedder_DistinctTexts(t *testing.T) {
	h := NewHashEmbedder(64)

	a, _ := h.EmbedText(context.Background(), "first")
	b, _ := h.EmbedText(context.Background(), "second")

	same := true
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should produce different vectors")
	}
}

func TestHashEmbedder_AlwaysDegraded(t *testing.T) {
	h := NewHashEmbedder(8)

	emb, err := h.EmbedText(context.Background(), "anything")
	if err != nil {
		t.Fatalf("EmbedText() error = %v", err)
	}
	if !emb.Degraded {
		t.Error("hash embeddings must be marked degraded")
	}
	if emb.Reason == "" {
		t.Error("hash embeddings must carry a reason")
	}

	for _, v := range emb.Values {
		if v < -1 || v > 1 {
			t.Errorf("value %v outside [-1, 1]", v)
		}
	}
}

func TestHashEmbedder_EmbedTexts(t *testing.T) {
	h := NewHashEmbedder(8)

	embs, err := h.EmbedTexts(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if len(embs) != 3 {
		t.Fatalf("EmbedTexts() len = %d, want 3", len(embs))
	}

	if _, err := h.EmbedTexts(context.Background(), nil); err == nil {
		t.Error("EmbedTexts(nil) expected error")
	}
}
