package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"linkmind/crawler"
	"linkmind/document"
	"linkmind/ingest"
	"linkmind/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	results map[search.Source][]search.SearchResult
	errs    map[search.Source]error
}

func (p *fakeProvider) Search(_ context.Context, _ string, source search.Source) ([]search.SearchResult, error) {
	if err := p.errs[source]; err != nil {
		return nil, err
	}
	return p.results[source], nil
}

// fakeFetcher serves pages from a map. Earlier links sleep longer so fetches
// complete out of order.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	seen  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, link string) *crawler.Page {
	f.mu.Lock()
	f.seen = append(f.seen, link)
	content, ok := f.pages[link]
	delay := time.Duration(len(f.pages)-len(f.seen)) * time.Millisecond
	f.mu.Unlock()

	time.Sleep(delay)
	if !ok {
		return nil
	}
	return &crawler.Page{Link: link, Title: "page " + link, Content: content}
}

type fakeQueue struct {
	mu   sync.Mutex
	docs []document.Document
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, docs ...document.Document) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.docs = append(q.docs, docs...)
	return nil
}

func result(link, title string, source search.Source) search.SearchResult {
	return search.SearchResult{Link: link, Title: title, Snippet: "snippet " + title, Source: source}
}

func TestAggregator_SearchMergesAndKeepsOrder(t *testing.T) {
	provider := &fakeProvider{results: map[search.Source][]search.SearchResult{
		search.SourceWeb: {
			result("https://a.example/", "A", search.SourceWeb),
			result("https://b.example/", "B", search.SourceWeb),
		},
		search.SourceNews: {
			result("https://A.example/#top", "A again", search.SourceNews),
			result("https://c.example/", "C", search.SourceNews),
		},
	}}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/": "alpha",
		"https://c.example/": "gamma",
	}}
	queue := &fakeQueue{}

	a := NewAggregator(provider, fetcher, queue, zap.NewNop())
	digest, err := a.Search(context.Background(), "q")
	require.NoError(t, err)

	want := "Title: A\nLink: https://a.example/\nContent: alpha\n\n" +
		"Title: C\nLink: https://c.example/\nContent: gamma\n\n"
	assert.Equal(t, want, digest)
	assert.Len(t, fetcher.seen, 3, "duplicate link is fetched once")

	require.Len(t, queue.docs, 2)
	assert.Equal(t, document.KindSearchResult, queue.docs[0].Kind())
	assert.Equal(t, document.Metadata{Link: "https://a.example/", Title: "A", Snippet: "snippet A"}, queue.docs[0].Metadata())
	assert.Equal(t, "gamma", queue.docs[1].Text())
}

func TestAggregator_TruncatesToMaxResults(t *testing.T) {
	var web []search.SearchResult
	pages := map[string]string{}
	for i := 0; i < 12; i++ {
		link := fmt.Sprintf("https://site%d.example/", i)
		web = append(web, result(link, fmt.Sprint(i), search.SourceWeb))
		pages[link] = "content"
	}
	fetcher := &fakeFetcher{pages: pages}
	a := NewAggregator(&fakeProvider{results: map[search.Source][]search.SearchResult{search.SourceWeb: web}}, fetcher, &fakeQueue{}, zap.NewNop())

	digest, err := a.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxResults, strings.Count(digest, "Title: "))
	assert.Len(t, fetcher.seen, DefaultMaxResults)
	assert.NotContains(t, digest, "site8.example")
}

func TestAggregator_PartialFailures(t *testing.T) {
	provider := &fakeProvider{
		results: map[search.Source][]search.SearchResult{
			search.SourceWeb: {result("https://a.example/", "A", search.SourceWeb)},
		},
		errs: map[search.Source]error{search.SourceNews: errors.New("news backend down")},
	}
	queue := &fakeQueue{err: errors.New("queue closed")}
	a := NewAggregator(provider, &fakeFetcher{pages: map[string]string{"https://a.example/": "alpha"}}, queue, zap.NewNop())

	digest, err := a.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Contains(t, digest, "Content: alpha")
}

func TestAggregator_AllFetchesFail(t *testing.T) {
	provider := &fakeProvider{results: map[search.Source][]search.SearchResult{
		search.SourceWeb: {result("https://a.example/", "A", search.SourceWeb)},
	}}
	queue := &fakeQueue{}
	a := NewAggregator(provider, &fakeFetcher{}, queue, zap.NewNop())

	digest, err := a.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, digest)
	assert.Empty(t, queue.docs)
}

func TestAggregator_FallsBackToPageTitle(t *testing.T) {
	provider := &fakeProvider{results: map[search.Source][]search.SearchResult{
		search.SourceWeb: {{Link: "https://a.example/"}},
	}}
	a := NewAggregator(provider, &fakeFetcher{pages: map[string]string{"https://a.example/": "alpha"}}, &fakeQueue{}, zap.NewNop(),
		WithSources(search.SourceWeb), WithMaxResults(3))

	digest, err := a.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "Title: page https://a.example/\n"))
}

func TestAggregator_Open(t *testing.T) {
	queue := &fakeQueue{}
	a := NewAggregator(&fakeProvider{}, &fakeFetcher{pages: map[string]string{"https://a.example/": "alpha"}}, queue, zap.NewNop())

	page := a.Open(context.Background(), "https://a.example/")
	require.NotNil(t, page)
	assert.Equal(t, "alpha", page.Content)
	require.Len(t, queue.docs, 1)
	assert.Equal(t, document.KindFetchedPage, queue.docs[0].Kind())
	assert.Equal(t, "https://a.example/", queue.docs[0].Metadata().Link)

	assert.Nil(t, a.Open(context.Background(), "https://missing.example/"))
	assert.Len(t, queue.docs, 1)
}

// stalledIngester never finishes until release is closed.
type stalledIngester struct {
	release chan struct{}
}

func (s stalledIngester) Ingest(ctx context.Context, docs ...document.Document) (int, error) {
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return 0, nil
}

func TestAggregator_StalledIngestionDoesNotBlock(t *testing.T) {
	ing := stalledIngester{release: make(chan struct{})}
	queue := ingest.NewQueue(ing, 1, zap.NewNop())
	queue.Start(context.Background())
	defer func() {
		close(ing.release)
		_ = queue.Close(context.Background())
	}()

	provider := &fakeProvider{results: map[search.Source][]search.SearchResult{
		search.SourceWeb: {result("https://a.example/", "A", search.SourceWeb)},
	}}
	fetcher := &fakeFetcher{pages: map[string]string{"https://a.example/": "alpha"}}
	a := NewAggregator(provider, fetcher, queue, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 4; i++ {
			page := a.Open(context.Background(), "https://a.example/")
			assert.NotNil(t, page)
		}
		digest, err := a.Search(context.Background(), "q")
		assert.NoError(t, err)
		assert.Contains(t, digest, "Content: alpha")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tool calls blocked on a full ingestion queue")
	}
}
