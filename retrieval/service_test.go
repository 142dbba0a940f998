package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"linkmind/document"
	"linkmind/pkg/embedding"
	"linkmind/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStore struct {
	vectorstore.Store
	hits []vectorstore.ScoredChunk
	err  error
	gotK int
}

func (s *stubStore) SearchWithScores(_ context.Context, _ string, k int) ([]vectorstore.ScoredChunk, error) {
	s.gotK = k
	if s.err != nil {
		return nil, s.err
	}
	if k < len(s.hits) {
		return s.hits[:k], nil
	}
	return s.hits, nil
}

func hit(content string, score float64) vectorstore.ScoredChunk {
	return vectorstore.ScoredChunk{Chunk: document.Chunk{Content: content}, Score: score}
}

func TestRetrieve_DedupsAndJoins(t *testing.T) {
	store := &stubStore{hits: []vectorstore.ScoredChunk{
		hit("A", 0.9), hit("A", 0.9), hit("B", 0.8), hit("A", 0.7), hit("C", 0.6),
	}}
	s := NewService(store, zap.NewNop())

	got, err := s.Retrieve(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Equal(t, "A\n\n---\n\nB\n\n---\n\n", got)
	assert.Equal(t, 6, store.gotK)
}

func TestRetrieve_EmptyStore(t *testing.T) {
	s := NewService(&stubStore{}, zap.NewNop())
	got, err := s.Retrieve(context.Background(), "q", 6)
	require.NoError(t, err)
	assert.Equal(t, NoResults, got)
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	var hits []vectorstore.ScoredChunk
	for i := 0; i < 30; i++ {
		hits = append(hits, hit(fmt.Sprint(i), 0.5))
	}
	store := &stubStore{hits: hits}
	got, err := NewService(store, zap.NewNop()).Retrieve(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK*3, store.gotK)
	assert.Equal(t, DefaultTopK, strings.Count(got, separator))
}

func TestRetrieve_NeverPadsWithDuplicates(t *testing.T) {
	var hits []vectorstore.ScoredChunk
	for i := 0; i < 18; i++ {
		hits = append(hits, hit(fmt.Sprintf("dup-%d", i%3), 0.9))
	}
	for i := 0; i < 10; i++ {
		hits = append(hits, hit(fmt.Sprintf("beyond-%d", i), 0.1))
	}
	store := &stubStore{hits: hits}

	got, err := NewService(store, zap.NewNop()).Retrieve(context.Background(), "q", 6)
	require.NoError(t, err)
	assert.Equal(t, 18, store.gotK)
	assert.Equal(t, 3, strings.Count(got, separator))
	assert.NotContains(t, got, "beyond")
}

func TestRetrieve_ConfiguredDefaultTopK(t *testing.T) {
	var hits []vectorstore.ScoredChunk
	for i := 0; i < 30; i++ {
		hits = append(hits, hit(fmt.Sprint(i), 0.5))
	}
	store := &stubStore{hits: hits}
	s := NewService(store, zap.NewNop(), WithDefaultTopK(2))

	got, err := s.Retrieve(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Equal(t, 6, store.gotK)
	assert.Equal(t, 2, strings.Count(got, separator))

	_, err = s.Retrieve(context.Background(), "q", 4)
	require.NoError(t, err)
	assert.Equal(t, 12, store.gotK, "explicit top_k wins over the default")
}

func TestRetrieve_HugeTopKIsCapped(t *testing.T) {
	store := &stubStore{hits: []vectorstore.ScoredChunk{hit("A", 0.9), hit("B", 0.8)}}

	got, err := NewService(store, zap.NewNop()).Retrieve(context.Background(), "q", math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, MaxTopK*3, store.gotK)
	assert.Equal(t, "A\n\n---\n\nB\n\n---\n\n", got)
}

func TestRetrieve_MinScore(t *testing.T) {
	store := &stubStore{hits: []vectorstore.ScoredChunk{hit("A", 0.9), hit("B", 0.2)}}

	got, err := NewService(store, zap.NewNop(), WithMinScore(0.5)).Retrieve(context.Background(), "q", 6)
	require.NoError(t, err)
	assert.Equal(t, "A"+separator, got)

	got, err = NewService(store, zap.NewNop(), WithMinScore(0.95)).Retrieve(context.Background(), "q", 6)
	require.NoError(t, err)
	assert.Equal(t, NoResults, got)
}

func TestRetrieve_StoreError(t *testing.T) {
	store := &stubStore{err: errors.New("embedding service unavailable")}
	_, err := NewService(store, zap.NewNop()).Retrieve(context.Background(), "q", 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding service unavailable")
}

func TestRetrieve_WithMemoryStore(t *testing.T) {
	emb, err := embedding.NewEmbedder(embedding.NewHashing(0), 0)
	require.NoError(t, err)
	store := vectorstore.NewMemory(emb, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))

	chunks := []document.Chunk{
		{Content: "the central bank raised interest rates to fight inflation"},
		{Content: "the central bank raised interest rates to fight inflation"},
		{Content: "a recipe for sourdough bread with a long fermentation"},
	}
	require.NoError(t, store.Insert(ctx, chunks))

	got, err := NewService(store, zap.NewNop()).Retrieve(ctx, "interest rates inflation", 1)
	require.NoError(t, err)
	assert.Equal(t, chunks[0].Content+separator, got)
}
