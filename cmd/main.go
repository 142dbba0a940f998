package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linkmind/api"
	"linkmind/config"
	"linkmind/crawler"
	"linkmind/ingest"
	"linkmind/mcp"
	"linkmind/pkg/chunking"
	"linkmind/pkg/embedding"
	"linkmind/pkg/logging"
	"linkmind/pkg/qdrantdb"
	"linkmind/retrieval"
	"linkmind/search"
	"linkmind/vectorstore"
	"linkmind/websearch"

	"github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// =========
	// Config
	// =========
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// =========
	// Logging
	// =========
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("linkmind stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	httpClient := NewHttpClient(cfg.ProxyURL)

	// =========
	// Embedding
	// =========
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	// =========
	// Vector store
	// =========
	store, err := newStore(cfg, embedder, logger)
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}

	// =========
	// Ingestion
	// =========
	chunker, err := chunking.NewRecursiveCharacterChunking(
		chunking.WithChunkSize(cfg.Chunk.Size),
		chunking.WithChunkOverlap(cfg.Chunk.Overlap),
	)
	if err != nil {
		return fmt.Errorf("create chunker: %w", err)
	}
	pipeline := ingest.NewPipeline(chunker, store, cfg.Ingest.BatchSize, logger)
	queue := ingest.NewQueue(pipeline, cfg.Ingest.QueueSize, logger)
	queue.Start(context.WithoutCancel(ctx))
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := queue.Close(drainCtx); err != nil {
			logger.Warn("ingestion queue not drained", zap.Error(err))
		}
	}()

	// =========
	// Fetcher
	// =========
	fetchCfg := crawler.DefaultConfig()
	fetchCfg.MaxAttempts = cfg.Fetch.MaxAttempts
	fetchCfg.RetryDelay = cfg.Fetch.RetryDelay
	fetchCfg.CacheSize = cfg.Fetch.CacheSize
	fetchCfg.RequestTimeout = cfg.Fetch.Timeout
	fetchCfg.Format = crawler.Format(cfg.Fetch.Format)
	fetchCfg.ProxyURL = cfg.ProxyURL
	fetchCfg.BrowserFallback = cfg.Fetch.BrowserFallback

	var fetchOpts []crawler.FetcherOption
	if fetchCfg.BrowserFallback {
		fetchOpts = append(fetchOpts, crawler.WithRenderer(crawler.NewBrowser(logger, cfg.ProxyURL, cfg.Fetch.Timeout)))
	}
	fetcher, err := crawler.NewFetcher(fetchCfg, logger, fetchOpts...)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	// =========
	// Search
	// =========
	var provider search.Provider
	switch cfg.Search.Backend {
	case "serpapi":
		provider = search.NewSerpApiSearchEngine(httpClient, cfg.Search.SerpApiKey, "")
	default:
		provider = search.NewDuckDuckGo(httpClient, "", fetchCfg.UserAgent)
	}
	cached, err := search.NewCached(provider, cfg.Search.CacheSize, cfg.Search.RequestsPerSecond, logger)
	if err != nil {
		return err
	}
	aggregator := websearch.NewAggregator(cached, fetcher, queue, logger,
		websearch.WithMaxResults(cfg.Search.MaxResults))

	retrievalOpts := []retrieval.Option{retrieval.WithDefaultTopK(cfg.Retrieval.TopK)}
	if cfg.Retrieval.MinScore != nil {
		retrievalOpts = append(retrievalOpts, retrieval.WithMinScore(*cfg.Retrieval.MinScore))
	}
	retriever := retrieval.NewService(store, logger, retrievalOpts...)

	// =========
	// Tools
	// =========
	var apiOpts []api.Option
	var mcpServer *mcp.Server
	if cfg.MCPTransport != "off" {
		mcpServer, err = mcp.NewServer(&mcp.Ports{
			Search:    aggregator,
			Opener:    aggregator,
			Retriever: retriever,
		}, logger)
		if err != nil {
			return fmt.Errorf("create mcp server: %w", err)
		}
		if cfg.MCPTransport == "http" {
			apiOpts = append(apiOpts, api.WithMCPHandler(mcpServer.Handler()))
		}
	}
	server := api.NewServer(cfg.AppPort, aggregator, aggregator, retriever, logger, apiOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if cfg.MCPTransport == "stdio" {
		g.Go(func() error {
			return mcpServer.Run(gctx)
		})
	}

	logger.Info("linkmind ready",
		zap.Int("port", cfg.AppPort),
		zap.String("mcp_transport", cfg.MCPTransport),
		zap.String("vector_backend", cfg.Vector.Backend),
		zap.String("search_backend", cfg.Search.Backend))
	return g.Wait()
}

func newEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	var client embedding.Client
	switch cfg.Embedding.Backend {
	case "tei":
		client = embedding.NewTEI(cfg.Embedding.URL)
	default:
		client = embedding.NewHashing(cfg.Embedding.Dimensions)
	}
	e, err := embedding.NewEmbedder(client, cfg.Embedding.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return e, nil
}

func newStore(cfg *config.Config, embedder embeddings.Embedder, logger *zap.Logger) (vectorstore.Store, error) {
	if cfg.Vector.Backend != "qdrant" {
		return vectorstore.NewMemory(embedder, logger), nil
	}
	client, err := qdrantdb.NewClient(cfg.Vector.QdrantHost, cfg.Vector.QdrantPort)
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	return qdrantdb.NewStore(client, cfg.Vector.Collection, embedder, logger), nil
}

func NewHttpClient(proxyUrl string) *http.Client {
	transport := &http.Transport{
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	if proxyURL, err := url.Parse(proxyUrl); err == nil && proxyUrl != "" {
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Minute,
	}
}
