package mcp

import (
	"context"

	"linkmind/crawler"
)

type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type LinkOpener interface {
	Open(ctx context.Context, link string) *crawler.Page
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (string, error)
}

// Ports are the services behind the tools.
type Ports struct {
	Search    WebSearcher
	Opener    LinkOpener
	Retriever Retriever
}

func (p *Ports) Validate() error {
	switch {
	case p.Search == nil:
		return ErrMissingSearch
	case p.Opener == nil:
		return ErrMissingOpener
	case p.Retriever == nil:
		return ErrMissingRetriever
	}
	return nil
}
