package vectorstore

import (
	"context"
	"errors"
	"math"

	"linkmind/document"
)

var (
	ErrEmptyInput        = errors.New("vectorstore: no chunks to insert")
	ErrNotInitialized    = errors.New("vectorstore: store is not initialized")
	ErrDimensionMismatch = errors.New("vectorstore: embedding dimension mismatch")
)

// ProbeText is embedded once by Init to learn the embedding dimension.
const ProbeText = "hello world"

// ScoredChunk is a search hit. Score is in [0, 1] for unit-length embeddings,
// higher is more relevant.
type ScoredChunk struct {
	Chunk document.Chunk
	Score float64
}

// Store holds chunk embeddings and answers nearest-neighbour queries.
// Implementations are safe for concurrent use.
type Store interface {
	Init(ctx context.Context) error
	Reset(ctx context.Context) error
	Insert(ctx context.Context, chunks []document.Chunk) error
	SearchWithScores(ctx context.Context, query string, k int) ([]ScoredChunk, error)
	Count(ctx context.Context) (int, error)
}

// RelevanceFromL2 maps an euclidean distance between unit vectors to a
// relevance score. Distances above sqrt(2) clamp to 0.
func RelevanceFromL2(distance float64) float64 {
	score := 1.0 - distance/math.Sqrt2
	if score < 0 {
		return 0
	}
	return score
}
