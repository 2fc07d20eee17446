package llm

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// HashEmbedder produces deterministic pseudo-embeddings by seeding a PRNG with
// the MD5 hash of the text. It carries no semantic signal beyond exact-text
// identity and exists so the pipeline can run without an embedding API key and
// so the real client has a fallback under outage. Every embedding it returns
// is marked Degraded.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hash embedder producing vectors of the given size.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

// Dimension returns the configured vector size.
func (h *HashEmbedder) Dimension() int { return h.dim }

// EmbedText returns the deterministic hash vector for text. Identical text
// always yields an identical vector.
func (h *HashEmbedder) EmbedText(ctx context.Context, text string) (Embedding, error) {
	if err := ctx.Err(); err != nil {
		return Embedding{}, err
	}

	sum := md5.Sum([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	rng := rand.New(rand.NewSource(seed))

	values := make([]float32, h.dim)
	for i := range values {
		values[i] = float32(rng.Float64()*2 - 1)
	}

	return Embedding{Values: values, Degraded: true, Reason: "hash embedding (no embedding service configured)"}, nil
}

// EmbedTexts embeds each text independently.
func (h *HashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}
	result := make([]Embedding, len(texts))
	for i, text := range texts {
		emb, err := h.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		result[i] = emb
	}
	return result, nil
}
