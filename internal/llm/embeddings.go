package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks salescoach-ai/internal/llm Embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"salescoach-ai/internal/contextutil"
	"salescoach-ai/internal/retrier"
)

// Embedding is a fixed-dimension vector for one text. Degraded is set when the
// embedding service could not be reached and a deterministic placeholder was
// used instead; callers can surface this in logs and reports instead of
// treating the placeholder as a real embedding.
type Embedding struct {
	Values   []float32
	Degraded bool
	Reason   string
}

// Embedder converts text into fixed-dimension vectors.
type Embedder interface {
	// EmbedText embeds a single text. A transient service outage yields a
	// Degraded embedding, not an error; only fatal errors (bad credentials,
	// cancelled context) are returned.
	EmbedText(ctx context.Context, text string) (Embedding, error)
	// EmbedTexts embeds each text independently; a failure on one text
	// degrades that element only and never aborts the batch.
	EmbedTexts(ctx context.Context, texts []string) ([]Embedding, error)
	// Dimension returns the vector size every embedding will have.
	Dimension() int
}

// EmbeddingsClient calls a Voyage-style embeddings API. Exhausted retries fall
// back to the deterministic hash embedding so indexing keeps moving during an
// outage.
type EmbeddingsClient struct {
	BaseURL  string
	APIKey   string
	Model    string
	Dim      int
	Retry    retrier.Policy
	client   *http.Client
	fallback *HashEmbedder
}

// NewEmbeddingsClient creates a new embeddings client.
// dim is the expected vector size; every response is validated against it.
func NewEmbeddingsClient(baseURL, apiKey, model string, dim int) *EmbeddingsClient {
	return &EmbeddingsClient{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Model:    model,
		Dim:      dim,
		Retry:    retrier.DefaultPolicy,
		client:   http.DefaultClient,
		fallback: NewHashEmbedder(dim),
	}
}

// EmbeddingsRequest represents the request payload for the embeddings API.
type EmbeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// EmbeddingData represents a single embedding in the response.
type EmbeddingData struct {
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse represents the response from the embeddings API.
type EmbeddingsResponse struct {
	Data []EmbeddingData `json:"data"`
}

// Dimension returns the configured vector size.
func (c *EmbeddingsClient) Dimension() int { return c.Dim }

// EmbedText embeds a single text, retrying transient failures with backoff.
// On exhausted retries it returns the hash fallback vector marked Degraded.
func (c *EmbeddingsClient) EmbedText(ctx context.Context, text string) (Embedding, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var values []float32
	err := retrier.Do(ctx, c.Retry, func(ctx context.Context) error {
		vec, err := c.requestEmbedding(ctx, text)
		if err != nil {
			return err
		}
		values = vec
		return nil
	})
	if err == nil {
		return Embedding{Values: values}, nil
	}
	if ctx.Err() != nil {
		return Embedding{}, ctx.Err()
	}
	if !errors.Is(err, retrier.ErrExhausted) {
		// Fatal (non-retryable) failure: bad credentials or a dimension
		// mismatch will not improve with a fallback vector.
		return Embedding{}, err
	}

	logger.WarnContext(ctx, "embedding degraded to hash fallback", "error", err, "text_length", len(text))
	fb, _ := c.fallback.EmbedText(ctx, text)
	return Embedding{Values: fb.Values, Degraded: true, Reason: err.Error()}, nil
}

// EmbedTexts embeds each text independently. One element degrading never
// aborts the batch; a fatal error (bad credentials) aborts it, since every
// remaining element would fail the same way.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	result := make([]Embedding, len(texts))
	for i, text := range texts {
		emb, err := c.EmbedText(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		result[i] = emb
	}
	return result, nil
}

// requestEmbedding performs one POST to the embeddings endpoint. Rate limits
// and server errors come back as plain (retryable) errors; auth failures are
// marked fatal.
func (c *EmbeddingsClient) requestEmbedding(ctx context.Context, text string) ([]float32, error) {
	url := fmt.Sprintf("%s/v1/embeddings", c.BaseURL)

	body, err := json.Marshal(EmbeddingsRequest{Model: c.Model, Input: text})
	if err != nil {
		return nil, retrier.Fatal(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, retrier.Fatal(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		statusErr := fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, retrier.Fatal(statusErr)
		}
		return nil, statusErr
	}

	var embResp EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(embResp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	data := embResp.Data[0]
	if len(data.Embedding) != c.Dim {
		return nil, retrier.Fatal(fmt.Errorf("embedding has size %d, expected %d", len(data.Embedding), c.Dim))
	}

	vec := make([]float32, len(data.Embedding))
	for i, v := range data.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
