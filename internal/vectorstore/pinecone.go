package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"salescoach-ai/internal/contextutil"
	"salescoach-ai/internal/retrier"
)

const (
	pineconeControlURL = "https://api.pinecone.io"
	pineconeAPIVersion = "2025-01"
)

// PineconeStore implements VectorStore against the Pinecone REST API:
// the control plane for index management and the per-index data plane host
// for upserts and queries.
type PineconeStore struct {
	APIKey     string
	IndexName  string
	ControlURL string
	Retry      retrier.Policy

	// CreateSpec is sent when the index must be created.
	Cloud  string
	Region string

	// PollInterval is how often EnsureIndex polls a freshly created index
	// until it reports a host.
	PollInterval time.Duration

	client  *http.Client
	dataURL string
}

// NewPineconeStore creates a Pinecone-backed vector store for the named index.
func NewPineconeStore(apiKey, indexName string) *PineconeStore {
	return &PineconeStore{
		APIKey:       apiKey,
		IndexName:    indexName,
		ControlURL:   pineconeControlURL,
		Retry:        retrier.DefaultPolicy,
		Cloud:        "aws",
		Region:       "us-east-1",
		PollInterval: 5 * time.Second,
		client:       http.DefaultClient,
	}
}

type pineconeIndex struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
}

type pineconeIndexList struct {
	Indexes []pineconeIndex `json:"indexes"`
}

type pineconeVector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type pineconeUpsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace"`
}

type pineconeQueryRequest struct {
	Vector          []float32                 `json:"vector"`
	TopK            int                       `json:"topK"`
	IncludeMetadata bool                      `json:"includeMetadata"`
	Filter          map[string]map[string]any `json:"filter,omitempty"`
}

type pineconeMatch struct {
	ID       string            `json:"id"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

type pineconeQueryResponse struct {
	Matches []pineconeMatch `json:"matches"`
}

type pineconeStatsResponse struct {
	TotalVectorCount int `json:"totalVectorCount"`
	Dimension        int `json:"dimension"`
}

// EnsureIndex creates the index if absent (cosine metric, serverless spec) and
// resolves the data plane host. An existing index with a different dimension
// is a fatal configuration error.
func (s *PineconeStore) EnsureIndex(ctx context.Context, dimension int) error {
	logger := contextutil.LoggerFromContext(ctx)

	var list pineconeIndexList
	if err := s.controlGet(ctx, "/indexes", &list); err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}

	exists := false
	for _, idx := range list.Indexes {
		if idx.Name == s.IndexName {
			exists = true
			break
		}
	}

	if !exists {
		logger.InfoContext(ctx, "creating index", "index", s.IndexName, "dimension", dimension)
		createBody := map[string]any{
			"name":      s.IndexName,
			"dimension": dimension,
			"metric":    "cosine",
			"spec": map[string]any{
				"serverless": map[string]any{
					"cloud":  s.Cloud,
					"region": s.Region,
				},
			},
		}
		if err := s.controlPost(ctx, "/indexes", createBody); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	idx, err := s.waitForHost(ctx)
	if err != nil {
		return err
	}
	if idx.Dimension != dimension {
		return fmt.Errorf("%w: index %s has %d, configured %d", ErrDimensionMismatch, s.IndexName, idx.Dimension, dimension)
	}

	s.dataURL = hostToURL(idx.Host)
	logger.InfoContext(ctx, "index ready", "index", s.IndexName, "host", idx.Host, "dimension", idx.Dimension)
	return nil
}

// waitForHost polls describe until the index reports a data plane host.
func (s *PineconeStore) waitForHost(ctx context.Context) (*pineconeIndex, error) {
	for attempt := 0; attempt < 24; attempt++ {
		var idx pineconeIndex
		if err := s.controlGet(ctx, "/indexes/"+s.IndexName, &idx); err != nil {
			return nil, fmt.Errorf("failed to describe index: %w", err)
		}
		if idx.Host != "" {
			return &idx, nil
		}

		timer := time.NewTimer(s.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("index %s did not become ready", s.IndexName)
}

// Upsert writes entries to the data plane in batches of UpsertBatchSize,
// retrying each batch with backoff before failing it.
func (s *PineconeStore) Upsert(ctx context.Context, entries []Entry) error {
	logger := contextutil.LoggerFromContext(ctx)
	if len(entries) == 0 {
		return nil
	}
	if s.dataURL == "" {
		return fmt.Errorf("index not initialized: call EnsureIndex first")
	}

	for start := 0; start < len(entries); start += UpsertBatchSize {
		end := start + UpsertBatchSize
		if end > len(entries) {
			end = len(entries)
		}

		vectors := make([]pineconeVector, 0, end-start)
		for _, e := range entries[start:end] {
			vectors = append(vectors, pineconeVector{ID: e.ID, Values: e.Values, Metadata: e.Meta})
		}

		err := retrier.Do(ctx, s.Retry, func(ctx context.Context) error {
			return s.dataPost(ctx, "/vectors/upsert", pineconeUpsertRequest{Vectors: vectors, Namespace: ""}, nil)
		})
		if err != nil {
			return fmt.Errorf("failed to upsert batch at offset %d: %w", start, err)
		}
		logger.DebugContext(ctx, "upserted batch", "index", s.IndexName, "offset", start, "count", len(vectors))
	}

	logger.InfoContext(ctx, "upserted entries", "index", s.IndexName, "count", len(entries))
	return nil
}

// Query returns the topK nearest matches with metadata, descending by score.
func (s *PineconeStore) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]Match, error) {
	if s.dataURL == "" {
		return nil, fmt.Errorf("index not initialized: call EnsureIndex first")
	}
	if topK <= 0 {
		topK = 5
	}

	req := pineconeQueryRequest{Vector: vector, TopK: topK, IncludeMetadata: true}
	if len(filter) > 0 {
		req.Filter = make(map[string]map[string]any, len(filter))
		for k, v := range filter {
			req.Filter[k] = map[string]any{"$eq": v}
		}
	}

	var resp pineconeQueryResponse
	if err := s.dataPost(ctx, "/query", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, Match{ID: m.ID, Score: m.Score, Meta: m.Metadata})
	}
	return matches, nil
}

// Stats reports index statistics from the data plane.
func (s *PineconeStore) Stats(ctx context.Context) (IndexStats, error) {
	if s.dataURL == "" {
		return IndexStats{}, fmt.Errorf("index not initialized: call EnsureIndex first")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.dataURL+"/describe_index_stats", nil)
	if err != nil {
		return IndexStats{}, fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)

	var stats pineconeStatsResponse
	if err := s.do(req, &stats); err != nil {
		return IndexStats{}, fmt.Errorf("failed to get index stats: %w", err)
	}
	return IndexStats{VectorCount: stats.TotalVectorCount, Dimension: stats.Dimension}, nil
}

func (s *PineconeStore) controlGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ControlURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)
	return s.do(req, out)
}

func (s *PineconeStore) controlPost(ctx context.Context, path string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.ControlURL+path, bytes.NewBuffer(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)
	return s.do(req, nil)
}

func (s *PineconeStore) dataPost(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return retrier.Fatal(fmt.Errorf("failed to marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.dataURL+path, bytes.NewBuffer(raw))
	if err != nil {
		return retrier.Fatal(fmt.Errorf("failed to create request: %w", err))
	}
	s.setHeaders(req)
	return s.do(req, out)
}

func (s *PineconeStore) setHeaders(req *http.Request) {
	req.Header.Set("Api-Key", s.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-API-Version", pineconeAPIVersion)
}

func (s *PineconeStore) do(req *http.Request, out any) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		statusErr := fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return retrier.Fatal(statusErr)
		}
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// hostToURL turns a data plane host into a base URL. Pinecone returns bare
// hostnames; tests inject full URLs.
func hostToURL(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}
