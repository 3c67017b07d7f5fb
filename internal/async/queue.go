// Package async is the in-process work queue feeding the ingest pipeline
// from the daemon's inbox watcher and the upload endpoint.
package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vinodex/invoice-reconciler/internal/ingest"
)

// Job is one file to ingest.
type Job struct {
	Path        string
	SubmittedAt time.Time
}

// Queue is the behavior the server and watcher depend on.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// IngestQueue runs a fixed worker pool over an ingestor.
type IngestQueue struct {
	ing     *ingest.DirectoryIngestor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.Mutex
	closed  bool
	senders sync.WaitGroup
}

type Option func(*IngestQueue)

func WithWorkers(n int) Option {
	return func(q *IngestQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *IngestQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(q *IngestQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewIngestQueue(ing *ingest.DirectoryIngestor, logger *slog.Logger, opts ...Option) *IngestQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &IngestQueue{
		ing:     ing,
		logger:  logger,
		workers: 2,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *IngestQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					res := q.ing.IngestFile(ctx, job.Path)
					cancel()

					if res.Outcome == ingest.OutcomeFailed {
						q.logger.Error("ingest failed",
							"worker_id", workerID, "path", job.Path, "err", res.Err)
					} else {
						q.logger.Info("file ingested",
							"worker_id", workerID,
							"path", job.Path,
							"outcome", res.Outcome,
							"document_id", res.DocumentID)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue submits a job, blocking on a full queue until a worker frees a
// slot or ctx is cancelled. The mutex only covers the closed check so a
// blocked sender never stalls Shutdown.
func (q *IngestQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return nil
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	select {
	case q.ch <- job:
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for in-flight senders and the pool
// to drain, bounded by ctx.
func (q *IngestQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.senders.Wait()
		close(q.ch)
		q.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
