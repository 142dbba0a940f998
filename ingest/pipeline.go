package ingest

import (
	"context"
	"fmt"

	"linkmind/document"
	"linkmind/pkg/chunking"
	"linkmind/vectorstore"

	"go.uber.org/zap"
)

const DefaultBatchSize = 10

// Pipeline chunks documents and writes the chunks to a vector store.
type Pipeline struct {
	chunker   chunking.ChunkingClient
	store     vectorstore.Store
	batchSize int
	logger    *zap.Logger
}

func NewPipeline(chunker chunking.ChunkingClient, store vectorstore.Store, batchSize int, logger *zap.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{
		chunker:   chunker,
		store:     store,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Ingest splits docs and inserts the chunks in sequential batches. It returns
// how many chunks were stored; on error, earlier batches stay stored.
func (p *Pipeline) Ingest(ctx context.Context, docs ...document.Document) (int, error) {
	chunks, err := p.chunker.Split(docs)
	if err != nil {
		return 0, fmt.Errorf("split documents: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	stored := 0
	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		if err := p.store.Insert(ctx, chunks[start:end]); err != nil {
			return stored, fmt.Errorf("insert chunks %d-%d: %w", start, end, err)
		}
		stored += end - start
	}

	p.logger.Debug("ingested documents",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", stored))
	return stored, nil
}
