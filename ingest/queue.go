package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"linkmind/document"

	"go.uber.org/zap"
)

var (
	ErrQueueClosed = errors.New("ingest: queue is closed")
	ErrQueueFull   = errors.New("ingest: queue is full")
)

const DefaultQueueSize = 64

type Ingester interface {
	Ingest(ctx context.Context, docs ...document.Document) (int, error)
}

// Queue runs ingestion in the background on a single worker. Callers do not
// wait for ingestion; failures go to the logger.
type Queue struct {
	ingester Ingester
	logger   *zap.Logger

	requests chan []document.Document
	done     chan struct{}

	mu     sync.RWMutex
	closed bool

	startOnce sync.Once
	started   atomic.Bool
}

func NewQueue(ingester Ingester, size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		ingester: ingester,
		logger:   logger,
		requests: make(chan []document.Document, size),
		done:     make(chan struct{}),
	}
}

// Start launches the worker. Work runs under ctx; calling Start twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		q.started.Store(true)
		go q.run(ctx)
	})
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	for docs := range q.requests {
		n, err := q.ingester.Ingest(ctx, docs...)
		if err != nil {
			q.logger.Error("background ingestion failed",
				zap.Int("documents", len(docs)),
				zap.Int("stored_chunks", n),
				zap.Error(err))
			continue
		}
		q.logger.Debug("background ingestion done",
			zap.Int("documents", len(docs)),
			zap.Int("chunks", n))
	}
}

// Enqueue hands docs to the worker without waiting. When the queue is full the
// request is dropped with ErrQueueFull.
func (q *Queue) Enqueue(ctx context.Context, docs ...document.Document) error {
	if len(docs) == 0 {
		return nil
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.requests <- docs:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting work and waits until pending requests are ingested or
// ctx is done.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.requests)
	}
	q.mu.Unlock()

	if !q.started.Load() {
		return nil
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
