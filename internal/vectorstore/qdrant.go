package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"ragsync/internal/contextutil"
)

const (
	payloadChunkID = "chunk_id"
	payloadText    = "text"
	scrollPageSize = 256
)

// QdrantStore implements VectorStore on a single Qdrant collection.
// Chunk identifiers are mapped to deterministic UUID point IDs and kept in
// the payload under "chunk_id".
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	vectorSize int
}

// grpcAddress derives the gRPC host and port from a Qdrant HTTP URL.
// The gRPC port is the HTTP port + 1 (6334 by default).
func grpcAddress(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			port = httpPort + 1
		}
	}
	return host, port, nil
}

// NewQdrantStore creates a new Qdrant vector store client for collection.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
func NewQdrantStore(urlStr, collection string, vectorSize int) (*QdrantStore, error) {
	host, port, err := grpcAddress(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: collection,
		vectorSize: vectorSize,
	}, nil
}

// PointID maps a chunk identifier to its Qdrant point UUID.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("ragsync:"+chunkID)).String()
}

// ListIDs scrolls the collection reading only the chunk_id payload field.
func (s *QdrantStore) ListIDs(ctx context.Context) ([]string, error) {
	return scrollChunkIDs(ctx, func(ctx context.Context, offset *qdrant.PointId) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error) {
		return s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			WithPayload:    qdrant.NewWithPayloadInclude(payloadChunkID),
			WithVectors:    qdrant.NewWithVectors(false),
			Offset:         offset,
		})
	})
}

// scrollPage fetches the page starting at offset and returns the offset of
// the next page, or nil after the last one.
type scrollPage func(ctx context.Context, offset *qdrant.PointId) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error)

// scrollChunkIDs follows next-page offsets until the collection is exhausted.
func scrollChunkIDs(ctx context.Context, fetch scrollPage) ([]string, error) {
	ids := []string{}
	var offset *qdrant.PointId
	for {
		points, next, err := fetch(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to scroll points: %w", err)
		}
		for _, p := range points {
			if v, ok := p.GetPayload()[payloadChunkID]; ok {
				ids = append(ids, v.GetStringValue())
			}
		}
		if next == nil {
			return ids, nil
		}
		offset = next
	}
}

// Upsert writes points that are not in the collection yet. Existing points
// are looked up first because a Qdrant upsert would overwrite them.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return 0, nil
	}

	ids := make([]*qdrant.PointId, len(points))
	for i, p := range points {
		ids[i] = qdrant.NewID(PointID(p.ID))
	}
	found, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayload(false),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to look up existing points: %w", err)
	}
	existing := make(map[string]struct{}, len(found))
	for _, p := range found {
		existing[p.GetId().GetUuid()] = struct{}{}
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for i, point := range points {
		if _, ok := existing[ids[i].GetUuid()]; ok {
			continue
		}
		if len(point.Vec) != s.vectorSize {
			return 0, fmt.Errorf("point %s has vector size %d, expected %d", point.ID, len(point.Vec), s.vectorSize)
		}

		payload := make(map[string]any, len(point.Meta)+2)
		for k, v := range point.Meta {
			payload[k] = v
		}
		payload[payloadChunkID] = point.ID
		payload[payloadText] = point.Text

		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      ids[i],
			Vectors: qdrant.NewVectors(point.Vec...),
			Payload: qdrant.NewValueMap(payload),
		})
	}
	if len(qdrantPoints) == 0 {
		return 0, nil
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrantPoints,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", s.collection, "count", len(qdrantPoints), "error", err)
		return 0, fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.DebugContext(ctx, "upserted points", "collection", s.collection, "count", len(qdrantPoints))
	return len(qdrantPoints), nil
}

// Search performs a cosine similarity search.
func (s *QdrantStore) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", s.collection, "k", k, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]SearchResult, 0, len(scoredPoints))
	for _, sp := range scoredPoints {
		results = append(results, resultFromPayload(sp.GetScore(), sp.GetPayload()))
	}

	logger.DebugContext(ctx, "search completed", "collection", s.collection, "k", k, "results", len(results))
	return results, nil
}

func resultFromPayload(score float32, payload map[string]*qdrant.Value) SearchResult {
	meta := convertPayloadToMap(payload)
	id, _ := meta[payloadChunkID].(string)
	text, _ := meta[payloadText].(string)
	delete(meta, payloadChunkID)
	delete(meta, payloadText)
	return SearchResult{ID: id, Score: score, Text: text, Meta: meta}
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(n), nil
}

// Clear drops and recreates the collection.
func (s *QdrantStore) Clear(ctx context.Context) error {
	if err := s.DeleteCollection(ctx); err != nil {
		return err
	}
	return s.EnsureCollection(ctx)
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// DeleteCollection removes the collection if it exists.
func (s *QdrantStore) DeleteCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// EnsureCollection ensures the collection exists with the configured vector size.
// If the collection exists, validates that the vector size matches.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", s.vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.vectorSize),
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

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil || params.GetSize() == 0 {
		return fmt.Errorf("could not determine collection vector size")
	}
	if int(params.GetSize()) != s.vectorSize {
		return fmt.Errorf("%w: collection has %d, configured %d", ErrVectorSizeMismatch, params.GetSize(), s.vectorSize)
	}

	logger.DebugContext(ctx, "collection validated", "collection", s.collection, "vector_size", s.vectorSize)
	return nil
}

// QdrantOpener opens a QdrantStore and prepares its collection.
type QdrantOpener struct {
	URL        string
	Collection string
	VectorSize int
}

// NewQdrantOpener creates an opener for collection on the server at url.
func NewQdrantOpener(url, collection string, vectorSize int) *QdrantOpener {
	return &QdrantOpener{URL: url, Collection: collection, VectorSize: vectorSize}
}

// Location returns the server URL and collection.
func (o *QdrantOpener) Location() string {
	return o.URL + "/collections/" + o.Collection
}

// Open connects and ensures the collection exists with the right vector size.
func (o *QdrantOpener) Open(ctx context.Context) (VectorStore, error) {
	store, err := NewQdrantStore(o.URL, o.Collection, o.VectorSize)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureCollection(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Wipe deletes the collection.
func (o *QdrantOpener) Wipe(ctx context.Context) error {
	store, err := NewQdrantStore(o.URL, o.Collection, o.VectorSize)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()
	return store.DeleteCollection(ctx)
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
