package search

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultCacheSize = 128
	// upper bound on one shared provider call
	DefaultCallTimeout = 30 * time.Second
)

// Cached memoizes a provider by (source, query) in a bounded LRU and paces the
// calls that miss. Identical concurrent misses share one provider call. Errors
// are not cached.
type Cached struct {
	provider Provider
	cache    *lru.Cache[string, []SearchResult]
	limiter  *rate.Limiter
	group    singleflight.Group
	timeout  time.Duration
	logger   *zap.Logger
}

// NewCached wraps provider. A non-positive rps disables pacing.
func NewCached(provider Provider, size int, rps float64, logger *zap.Logger) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []SearchResult](size)
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Cached{
		provider: provider,
		cache:    cache,
		limiter:  limiter,
		timeout:  DefaultCallTimeout,
		logger:   logger,
	}, nil
}

func (c *Cached) Search(ctx context.Context, query string, source Source) ([]SearchResult, error) {
	key := string(source) + "\x00" + query
	if results, ok := c.cache.Get(key); ok {
		return results, nil
	}

	// The shared call must outlive any single caller; each caller stops
	// waiting on its own ctx.
	shareCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(shareCtx, c.timeout)
		defer cancel()
		if err := c.limiter.Wait(callCtx); err != nil {
			return nil, err
		}
		results, err := c.provider.Search(callCtx, query, source)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, results)
		return results, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("search %s: %w", source, ctx.Err())
	}
	if res.Err != nil {
		return nil, fmt.Errorf("search %s: %w", source, res.Err)
	}

	results := res.Val.([]SearchResult)
	c.logger.Debug("search provider called",
		zap.String("query", query),
		zap.String("source", string(source)),
		zap.Int("results", len(results)),
		zap.Bool("shared", res.Shared))
	return results, nil
}

func (c *Cached) Len() int {
	return c.cache.Len()
}
