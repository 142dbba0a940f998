package websearch

import (
	"context"
	"fmt"
	"strings"

	"linkmind/crawler"
	"linkmind/document"
	"linkmind/pkg/logging"
	"linkmind/search"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultMaxResults = 8

// PageFetcher returns the readable content of a link, or nil.
type PageFetcher interface {
	Fetch(ctx context.Context, link string) *crawler.Page
}

// Enqueuer accepts documents for background ingestion.
type Enqueuer interface {
	Enqueue(ctx context.Context, docs ...document.Document) error
}

type Aggregator struct {
	provider   search.Provider
	fetcher    PageFetcher
	queue      Enqueuer
	sources    []search.Source
	maxResults int
	logger     *zap.Logger
}

type Option func(*Aggregator)

func WithSources(sources ...search.Source) Option {
	return func(a *Aggregator) {
		a.sources = sources
	}
}

func WithMaxResults(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxResults = n
		}
	}
}

func NewAggregator(provider search.Provider, fetcher PageFetcher, queue Enqueuer, logger *zap.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		provider:   provider,
		fetcher:    fetcher,
		queue:      queue,
		sources:    []search.Source{search.SourceWeb, search.SourceNews},
		maxResults: DefaultMaxResults,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Search queries every source concurrently, merges the hits by canonical link,
// fetches the top results concurrently and returns a digest of the pages that
// had content. Fetched pages are queued for ingestion. A source that fails
// contributes no results; the digest may be empty.
func (a *Aggregator) Search(ctx context.Context, query string) (string, error) {
	logger := logging.FromContext(ctx, a.logger)

	lists := make([][]search.SearchResult, len(a.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, source := range a.sources {
		g.Go(func() error {
			results, err := a.provider.Search(gctx, query, source)
			if err != nil {
				logger.Warn("source search failed",
					zap.String("source", string(source)),
					zap.Error(err))
				return nil
			}
			lists[i] = results
			return nil
		})
	}
	_ = g.Wait()

	merged := search.Merge(lists...)
	if len(merged) > a.maxResults {
		merged = merged[:a.maxResults]
	}

	pages := make([]*crawler.Page, len(merged))
	g, gctx = errgroup.WithContext(ctx)
	for i, r := range merged {
		g.Go(func() error {
			pages[i] = a.fetcher.Fetch(gctx, r.Link)
			return nil
		})
	}
	_ = g.Wait()

	var digest strings.Builder
	var docs []document.Document
	for i, r := range merged {
		page := pages[i]
		if page == nil {
			continue
		}
		title := r.Title
		if title == "" {
			title = page.Title
		}
		writeBlock(&digest, title, r.Link, page.Content)
		docs = append(docs, document.FromSearchResult(r.Link, title, r.Snippet, page.Content))
	}

	a.enqueue(ctx, logger, docs)
	logger.Info("web search done",
		zap.String("query", query),
		zap.Int("merged", len(merged)),
		zap.Int("fetched", len(docs)))
	return digest.String(), nil
}

// Open fetches link and queues the page for ingestion. It returns nil when the
// link has no readable content.
func (a *Aggregator) Open(ctx context.Context, link string) *crawler.Page {
	logger := logging.FromContext(ctx, a.logger)

	page := a.fetcher.Fetch(ctx, link)
	if page == nil {
		logger.Info("no content", zap.String("url", link))
		return nil
	}
	a.enqueue(ctx, logger, []document.Document{document.FromFetchedPage(page.Link, page.Content)})
	return page
}

func (a *Aggregator) enqueue(ctx context.Context, logger *zap.Logger, docs []document.Document) {
	if len(docs) == 0 {
		return
	}
	if err := a.queue.Enqueue(ctx, docs...); err != nil {
		logger.Warn("documents not queued for ingestion",
			zap.Int("documents", len(docs)),
			zap.Error(err))
	}
}

func writeBlock(b *strings.Builder, title, link, content string) {
	fmt.Fprintf(b, "Title: %s\nLink: %s\nContent: %s\n\n", title, link, content)
}
