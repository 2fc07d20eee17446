package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"salescoach-ai/internal/contextutil"
	"salescoach-ai/internal/retrier"
)

// qdrantIDKey is the payload field carrying the caller's entry ID. Qdrant
// point IDs must be UUIDs, so entry IDs are mapped to deterministic v5 UUIDs
// and the original kept in the payload.
const qdrantIDKey = "_id"

// QdrantStore implements VectorStore using a Qdrant collection.
type QdrantStore struct {
	client     *qdrant.Client
	collection string

	// Retry governs transient upsert failures.
	Retry retrier.Policy

	// upsertPoints performs one point batch write. Stubbed in tests.
	upsertPoints func(ctx context.Context, req *qdrant.UpsertPoints) error
}

// NewQdrantStore creates a Qdrant-backed vector store.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr, collection string) (*QdrantStore, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	s := &QdrantStore{
		client:     client,
		collection: collection,
		Retry:      retrier.DefaultPolicy,
	}
	s.upsertPoints = func(ctx context.Context, req *qdrant.UpsertPoints) error {
		_, err := client.Upsert(ctx, req)
		return err
	}
	return s, nil
}

// EnsureIndex creates the collection with cosine distance if it does not
// exist, and validates the vector size if it does.
func (s *QdrantStore) EnsureIndex(ctx context.Context, dimension int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "dimension", dimension)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	actualSize := collectionVectorSize(info)
	if actualSize == 0 {
		return fmt.Errorf("could not determine collection vector size")
	}
	if actualSize != dimension {
		return fmt.Errorf("%w: collection %s has %d, configured %d", ErrDimensionMismatch, s.collection, actualSize, dimension)
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "dimension", dimension)
	return nil
}

// Upsert inserts or updates points in the collection in batches of at most
// UpsertBatchSize, retrying each batch on transient failure. Entry IDs map to
// deterministic UUIDs, so re-upserting an ID overwrites the existing point.
func (s *QdrantStore) Upsert(ctx context.Context, entries []Entry) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(entries) == 0 {
		return nil
	}

	for start := 0; start < len(entries); start += UpsertBatchSize {
		end := start + UpsertBatchSize
		if end > len(entries) {
			end = len(entries)
		}

		points := make([]*qdrant.PointStruct, 0, end-start)
		for _, e := range entries[start:end] {
			payload := make(map[string]any, len(e.Meta)+1)
			for k, v := range e.Meta {
				payload[k] = v
			}
			payload[qdrantIDKey] = e.ID

			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewID(pointUUID(e.ID)),
				Vectors: qdrant.NewVectors(e.Values...),
				Payload: qdrant.NewValueMap(payload),
			})
		}

		err := retrier.Do(ctx, s.Retry, func(ctx context.Context) error {
			return s.upsertPoints(ctx, &qdrant.UpsertPoints{
				CollectionName: s.collection,
				Points:         points,
			})
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to upsert points", "collection", s.collection, "offset", start, "count", len(points), "error", err)
			return fmt.Errorf("failed to upsert batch at offset %d: %w", start, err)
		}
		logger.DebugContext(ctx, "upserted batch", "collection", s.collection, "offset", start, "count", len(points))
	}

	logger.InfoContext(ctx, "upserted points", "collection", s.collection, "count", len(entries))
	return nil
}

// Query performs a similarity search with optional exact-match metadata filters.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]Match, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if topK <= 0 {
		topK = 5
	}

	var qdrantFilter *qdrant.Filter
	if len(filter) > 0 {
		must := make([]*qdrant.Condition, 0, len(filter))
		for k, v := range filter {
			must = append(must, qdrant.NewMatch(k, v))
		}
		qdrantFilter = &qdrant.Filter{Must: must}
	}

	limit := uint64(topK)
	queryReq := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if qdrantFilter != nil {
		queryReq.Filter = qdrantFilter
	}

	scoredPoints, err := s.client.Query(ctx, queryReq)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", s.collection, "topK", topK, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	matches := make([]Match, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		meta := make(map[string]string)
		if point.Payload != nil {
			meta = convertPayload(point.Payload)
		}

		id := meta[qdrantIDKey]
		delete(meta, qdrantIDKey)
		if id == "" && point.Id != nil {
			id = point.Id.GetUuid()
		}

		matches = append(matches, Match{
			ID:    id,
			Score: point.Score,
			Meta:  meta,
		})
	}

	logger.DebugContext(ctx, "search completed", "collection", s.collection, "topK", topK, "results", len(matches))
	return matches, nil
}

// Stats reports the point count and vector size of the collection.
func (s *QdrantStore) Stats(ctx context.Context) (IndexStats, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return IndexStats{}, fmt.Errorf("failed to get collection info: %w", err)
	}

	var count int
	if info.PointsCount != nil {
		count = int(*info.PointsCount)
	}

	return IndexStats{
		VectorCount: count,
		Dimension:   collectionVectorSize(info),
	}, nil
}

func collectionVectorSize(info *qdrant.CollectionInfo) int {
	if config := info.Config; config != nil && config.Params != nil {
		if vectorsConfig := config.Params.GetVectorsConfig(); vectorsConfig != nil {
			if params := vectorsConfig.GetParams(); params != nil {
				return int(params.Size)
			}
		}
	}
	return 0
}

// pointUUID derives a stable UUID from an entry ID.
func pointUUID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

// convertPayload flattens a Qdrant payload into string metadata.
func convertPayload(payload map[string]*qdrant.Value) map[string]string {
	result := make(map[string]string, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		switch val := v.Kind.(type) {
		case *qdrant.Value_StringValue:
			result[k] = val.StringValue
		case *qdrant.Value_BoolValue:
			result[k] = strconv.FormatBool(val.BoolValue)
		case *qdrant.Value_IntegerValue:
			result[k] = strconv.FormatInt(val.IntegerValue, 10)
		case *qdrant.Value_DoubleValue:
			result[k] = strconv.FormatFloat(val.DoubleValue, 'f', -1, 64)
		}
	}
	return result
}
