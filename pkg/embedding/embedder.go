package embedding

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
)

const DefaultBatchSize = 32

// NewEmbedder adapts a Client to the langchaingo Embedder used by the vector
// store. Newlines are kept because chunk boundaries depend on them.
func NewEmbedder(client Client, batchSize int) (embeddings.Embedder, error) {
	if client == nil {
		return nil, fmt.Errorf("embedding client is required")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return embeddings.NewEmbedder(
		embeddings.EmbedderClientFunc(client.GetEmbeddings),
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(false),
	)
}
