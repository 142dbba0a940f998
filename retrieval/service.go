package retrieval

import (
	"context"
	"fmt"
	"strings"

	"linkmind/document"
	"linkmind/vectorstore"

	"go.uber.org/zap"
)

// NoResults is returned in place of context when nothing relevant is stored.
const NoResults = "No relevant information found matching the query\n"

const (
	DefaultTopK = 6
	MaxTopK     = 100
	// candidates fetched per requested result, to make up for duplicates
	overFetch = 3
	separator = "\n\n---\n\n"
)

type Service struct {
	store       vectorstore.Store
	logger      *zap.Logger
	defaultTopK int
	minScore    float64
	useMin      bool
}

type Option func(*Service)

// WithMinScore drops candidates scoring below score.
func WithMinScore(score float64) Option {
	return func(s *Service) {
		s.minScore = score
		s.useMin = true
	}
}

// WithDefaultTopK sets the result count used when a caller asks for none.
func WithDefaultTopK(topK int) Option {
	return func(s *Service) {
		if topK > 0 {
			s.defaultTopK = min(topK, MaxTopK)
		}
	}
}

func NewService(store vectorstore.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{store: store, logger: logger, defaultTopK: DefaultTopK}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve returns the contents of up to topK distinct chunks nearest to query,
// each followed by a separator, or NoResults. A non-positive topK means the
// service default; topK is capped at MaxTopK.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) (string, error) {
	if topK <= 0 {
		topK = s.defaultTopK
	}
	topK = min(topK, MaxTopK)

	hits, err := s.store.SearchWithScores(ctx, query, topK*overFetch)
	if err != nil {
		return "", fmt.Errorf("search vector store: %w", err)
	}

	seen := document.NewDeduper()
	var b strings.Builder
	kept := 0
	for _, h := range hits {
		if kept == topK {
			break
		}
		if s.useMin && h.Score < s.minScore {
			continue
		}
		if !seen.Add(document.Fingerprint(h.Chunk.Content)) {
			continue
		}
		b.WriteString(h.Chunk.Content)
		b.WriteString(separator)
		kept++
	}

	s.logger.Debug("retrieved context",
		zap.String("query", query),
		zap.Int("candidates", len(hits)),
		zap.Int("kept", kept))

	if kept == 0 {
		return NoResults, nil
	}
	return b.String(), nil
}
