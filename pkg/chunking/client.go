package chunking

import "linkmind/document"

type ChunkingClient interface {
	Split(docs []document.Document) ([]document.Chunk, error)
}
