package vectorstore

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"linkmind/document"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap"
)

// Memory is a flat, exhaustive L2 index kept in process memory. Records live
// only as long as the process.
type Memory struct {
	embedder embeddings.Embedder
	logger   *zap.Logger

	mu        sync.RWMutex
	dims      int
	vectors   [][]float32
	indexToID map[int]string
	docstore  map[string]document.Chunk
}

func NewMemory(embedder embeddings.Embedder, logger *zap.Logger) *Memory {
	return &Memory{
		embedder:  embedder,
		logger:    logger,
		indexToID: make(map[int]string),
		docstore:  make(map[string]document.Chunk),
	}
}

// Init fixes the index dimension by embedding ProbeText. Calling it again on an
// initialized store is a no-op.
func (m *Memory) Init(ctx context.Context) error {
	m.mu.RLock()
	ready := m.dims > 0
	m.mu.RUnlock()
	if ready {
		return nil
	}

	probe, err := m.embedder.EmbedQuery(ctx, ProbeText)
	if err != nil {
		return fmt.Errorf("probe embedding dimension: %w", err)
	}
	if len(probe) == 0 {
		return fmt.Errorf("probe embedding dimension: %w", ErrDimensionMismatch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dims == 0 {
		m.dims = len(probe)
		m.logger.Info("vector store initialized", zap.Int("dimensions", m.dims))
	}
	return nil
}

// Reset drops every record. The dimension learned by Init is kept.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors = nil
	m.indexToID = make(map[int]string)
	m.docstore = make(map[string]document.Chunk)
	return nil
}

// Insert embeds and appends chunks. Either every chunk is stored or none is.
func (m *Memory) Insert(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return ErrEmptyInput
	}
	dims := m.dimensions()
	if dims == 0 {
		return ErrNotInitialized
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := m.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("got %d embeddings for %d chunks: %w", len(vectors), len(chunks), ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("chunk %d has dimension %d, index has %d: %w", i, len(v), dims, ErrDimensionMismatch)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range vectors {
		id := uuid.NewString()
		m.indexToID[len(m.vectors)] = id
		m.docstore[id] = chunks[i]
		m.vectors = append(m.vectors, v)
	}
	return nil
}

// SearchWithScores returns up to k chunks nearest to query, best first. Ties
// keep insertion order.
func (m *Memory) SearchWithScores(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	dims := m.dimensions()
	if dims == 0 {
		return nil, ErrNotInitialized
	}
	if n, _ := m.Count(ctx); n == 0 {
		return nil, nil
	}

	q, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(q) != dims {
		return nil, fmt.Errorf("query has dimension %d, index has %d: %w", len(q), dims, ErrDimensionMismatch)
	}

	type hit struct {
		idx  int
		dist float64
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]hit, len(m.vectors))
	for i, v := range m.vectors {
		hits[i] = hit{idx: i, dist: squaredL2(q, v)}
	}
	slices.SortStableFunc(hits, func(a, b hit) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		}
		return 0
	})
	if k > len(hits) {
		k = len(hits)
	}

	out := make([]ScoredChunk, 0, k)
	for _, h := range hits[:k] {
		chunk := m.docstore[m.indexToID[h.idx]]
		out = append(out, ScoredChunk{
			Chunk: chunk,
			Score: RelevanceFromL2(math.Sqrt(h.dist)),
		})
	}
	return out, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors), nil
}

func (m *Memory) dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dims
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
