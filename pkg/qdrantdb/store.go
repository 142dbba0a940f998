package qdrantdb

import (
	"context"
	"fmt"
	"sync"

	"linkmind/document"
	"linkmind/vectorstore"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap"
)

var pointNamespace = uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")

const (
	fieldContent = "content"
	fieldLink    = "link"
	fieldTitle   = "source"
	fieldSnippet = "snippet"
	fieldStart   = "start_index"
	fieldHash    = "content_hash"
)

// Store keeps chunks in a qdrant collection using euclidean distance, so
// scores match the in-memory index.
type Store struct {
	client     *qdrant.Client
	collection string
	embedder   embeddings.Embedder
	logger     *zap.Logger

	mu   sync.RWMutex
	dims int
}

var _ vectorstore.Store = (*Store)(nil)

func NewStore(client *qdrant.Client, collection string, embedder embeddings.Embedder, logger *zap.Logger) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		client:     client,
		collection: collection,
		embedder:   embedder,
		logger:     logger,
	}
}

func (s *Store) Init(ctx context.Context) error {
	s.mu.RLock()
	ready := s.dims > 0
	s.mu.RUnlock()
	if ready {
		return nil
	}

	probe, err := s.embedder.EmbedQuery(ctx, vectorstore.ProbeText)
	if err != nil {
		return fmt.Errorf("probe embedding dimension: %w", err)
	}
	if len(probe) == 0 {
		return fmt.Errorf("probe embedding dimension: %w", vectorstore.ErrDimensionMismatch)
	}
	if err := s.ensureCollection(ctx, len(probe)); err != nil {
		return err
	}

	s.mu.Lock()
	s.dims = len(probe)
	s.mu.Unlock()
	s.logger.Info("qdrant collection ready",
		zap.String("collection", s.collection),
		zap.Int("dimensions", len(probe)))
	return nil
}

func (s *Store) ensureCollection(ctx context.Context, dims int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", s.collection, err)
	}
	if exists {
		info, err := s.client.GetCollectionInfo(ctx, s.collection)
		if err != nil {
			return fmt.Errorf("get collection %s: %w", s.collection, err)
		}
		if err := checkVectorParams(info, dims); err != nil {
			return fmt.Errorf("collection %s: %w", s.collection, err)
		}
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("err create collection %s: %w", s.collection, err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      fieldHash,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("err create %s index: %w", fieldHash, err)
	}
	return nil
}

// checkVectorParams rejects a collection whose single unnamed vector does not
// match dims or is not compared by Euclid distance.
func checkVectorParams(info *qdrant.CollectionInfo, dims int) error {
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return fmt.Errorf("no single vector config: %w", vectorstore.ErrDimensionMismatch)
	}
	if params.GetSize() != uint64(dims) {
		return fmt.Errorf("vector size %d, embedder produces %d: %w",
			params.GetSize(), dims, vectorstore.ErrDimensionMismatch)
	}
	if params.GetDistance() != qdrant.Distance_Euclid {
		return fmt.Errorf("distance %s, want %s: %w",
			params.GetDistance(), qdrant.Distance_Euclid, vectorstore.ErrDimensionMismatch)
	}
	return nil
}

// Reset drops the collection and recreates it empty.
func (s *Store) Reset(ctx context.Context) error {
	dims := s.dimensions()
	if dims == 0 {
		return vectorstore.ErrNotInitialized
	}
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("drop collection %s: %w", s.collection, err)
	}
	return s.ensureCollection(ctx, dims)
}

// Insert upserts chunks. Point ids derive from the chunk fingerprint, so the
// same chunk ingested twice is stored once.
func (s *Store) Insert(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return vectorstore.ErrEmptyInput
	}
	dims := s.dimensions()
	if dims == 0 {
		return vectorstore.ErrNotInitialized
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("got %d embeddings for %d chunks: %w", len(vectors), len(chunks), vectorstore.ErrDimensionMismatch)
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != dims {
			return fmt.Errorf("chunk %d has dimension %d, collection has %d: %w", i, len(vectors[i]), dims, vectorstore.ErrDimensionMismatch)
		}
		p, err := toPoint(c, vectors[i])
		if err != nil {
			return err
		}
		points = append(points, p)
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

func (s *Store) SearchWithScores(ctx context.Context, query string, k int) ([]vectorstore.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if s.dimensions() == 0 {
		return nil, vectorstore.ErrNotInitialized
	}

	q, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDense(q),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", s.collection, err)
	}

	out := make([]vectorstore.ScoredChunk, 0, len(res))
	for _, p := range res {
		out = append(out, vectorstore.ScoredChunk{
			Chunk: fromPayload(p.GetPayload()),
			// Euclid collections report the distance as the score.
			Score: vectorstore.RelevanceFromL2(float64(p.GetScore())),
		})
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("count collection %s: %w", s.collection, err)
	}
	return int(n), nil
}

func (s *Store) dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

func pointID(c document.Chunk) string {
	fp := c.Fingerprint()
	return uuid.NewSHA1(pointNamespace, fp[:16]).String()
}

func toPoint(c document.Chunk, vector []float32) (*qdrant.PointStruct, error) {
	payload, err := qdrant.TryValueMap(map[string]any{
		fieldContent: c.Content,
		fieldLink:    c.Metadata.Link,
		fieldTitle:   c.Metadata.Title,
		fieldSnippet: c.Metadata.Snippet,
		fieldStart:   c.Start,
		fieldHash:    document.Fingerprint(c.Content).String(),
	})
	if err != nil {
		return nil, fmt.Errorf("build payload: %w", err)
	}
	return &qdrant.PointStruct{
		Id:      qdrant.NewID(pointID(c)),
		Vectors: qdrant.NewVectorsDense(vector),
		Payload: payload,
	}, nil
}

func fromPayload(payload map[string]*qdrant.Value) document.Chunk {
	return document.Chunk{
		Content: payload[fieldContent].GetStringValue(),
		Metadata: document.Metadata{
			Link:    payload[fieldLink].GetStringValue(),
			Title:   payload[fieldTitle].GetStringValue(),
			Snippet: payload[fieldSnippet].GetStringValue(),
		},
		Start: int(payload[fieldStart].GetIntegerValue()),
	}
}
