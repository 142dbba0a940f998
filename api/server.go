package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"linkmind/crawler"

	"go.uber.org/zap"
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

// Server exposes the research tools as JSON endpoints.
type Server struct {
	search     WebSearcher
	opener     LinkOpener
	retriever  Retriever
	mcpHandler http.Handler
	logger     *zap.Logger
	port       int
}

type Option func(*Server)

// WithMCPHandler mounts an MCP streamable HTTP handler at /mcp.
func WithMCPHandler(h http.Handler) Option {
	return func(s *Server) {
		s.mcpHandler = h
	}
}

func NewServer(port int, search WebSearcher, opener LinkOpener, retriever Retriever, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		search:    search,
		opener:    opener,
		retriever: retriever,
		logger:    logger,
		port:      port,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/search", s.SearchHandler)
	mux.HandleFunc("/api/open", s.OpenHandler)
	mux.HandleFunc("/api/dbsearch", s.DBSearchHandler)
	if s.mcpHandler != nil {
		mux.Handle("/mcp", s.mcpHandler)
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	}()

	s.logger.Info("starting API server", zap.Int("port", s.port))
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
