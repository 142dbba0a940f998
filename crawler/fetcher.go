package crawler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Page is the readable content behind a link.
type Page struct {
	Link    string
	Title   string
	Content string
}

// Fetcher downloads a page and extracts its main text. Failures are logged and
// reported as a nil page, never as an error.
type Fetcher struct {
	collector *colly.Collector
	extractor *Extractor
	validator *URLValidator
	renderer  Renderer
	cache     *lru.Cache[string, *Page]
	config    *FetcherConfig
	logger    *zap.Logger
}

type FetcherOption func(*Fetcher)

// WithRenderer enables the rendered-page fallback.
func WithRenderer(r Renderer) FetcherOption {
	return func(f *Fetcher) {
		f.renderer = r
	}
}

func NewFetcher(config *FetcherConfig, logger *zap.Logger, opts ...FetcherOption) (*Fetcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultConfig().CacheSize
	}
	if len(config.AllowedSchemes) == 0 {
		config.AllowedSchemes = DefaultConfig().AllowedSchemes
	}

	c := colly.NewCollector(
		colly.UserAgent(config.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(config.MaxBodySize),
	)
	if config.RequestTimeout > 0 {
		c.SetRequestTimeout(config.RequestTimeout)
	}
	if config.ProxyURL != "" {
		if err := c.SetProxy(config.ProxyURL); err != nil {
			return nil, fmt.Errorf("set proxy: %w", err)
		}
	}

	cache, err := lru.New[string, *Page](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}

	f := &Fetcher{
		collector: c,
		extractor: NewExtractor(config.Format, logger),
		validator: NewURLValidator(config),
		cache:     cache,
		config:    config,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch returns the page content of link, or nil when the link is invalid or no
// attempt produced readable text. Only successful results are cached.
func (f *Fetcher) Fetch(ctx context.Context, link string) *Page {
	u, err := f.validator.Validate(link)
	if err != nil {
		f.logger.Warn("skipping link", zap.String("url", link), zap.Error(err))
		return nil
	}
	key := u.String()
	if page, ok := f.cache.Get(key); ok {
		return page
	}

	for attempt := 1; attempt <= f.config.MaxAttempts; attempt++ {
		page, err := f.attempt(ctx, u)
		if err == nil && page != nil {
			f.cache.Add(key, page)
			return page
		}
		f.logger.Debug("fetch attempt failed",
			zap.String("url", key),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == f.config.MaxAttempts {
			break
		}
		if !sleep(ctx, f.config.RetryDelay) {
			return nil
		}
	}

	if f.renderer != nil && ctx.Err() == nil {
		if page := f.render(ctx, u); page != nil {
			f.cache.Add(key, page)
			return page
		}
	}

	f.logger.Warn("no content after retries",
		zap.String("url", key),
		zap.Int("attempts", f.config.MaxAttempts))
	return nil
}

func (f *Fetcher) attempt(ctx context.Context, u *url.URL) (*Page, error) {
	body, err := f.download(ctx, u.String())
	if err != nil {
		return nil, err
	}
	return f.toPage(u, body), nil
}

// download runs one GET on a clone of the collector so concurrent fetches do
// not share callbacks.
func (f *Fetcher) download(ctx context.Context, link string) ([]byte, error) {
	c := f.collector.Clone()
	c.Context = ctx

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	if err := c.Visit(link); err != nil {
		return nil, fmt.Errorf("visit %s: %w", link, err)
	}
	return body, nil
}

func (f *Fetcher) render(ctx context.Context, u *url.URL) *Page {
	body, err := f.renderer.Render(ctx, u.String())
	if err != nil {
		f.logger.Debug("render fallback failed", zap.String("url", u.String()), zap.Error(err))
		return nil
	}
	return f.toPage(u, body)
}

func (f *Fetcher) toPage(u *url.URL, body []byte) *Page {
	if len(body) == 0 {
		return nil
	}
	content := f.extractor.Extract(body, u)
	if content.Text == "" {
		return nil
	}
	return &Page{
		Link:    u.String(),
		Title:   content.Title,
		Content: content.Text,
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
