package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"markscan/internal/entity"
)

// Job is one sheet queued for processing.
type Job struct {
	Path string
}

// Queue fans sheets out to a fixed pool of workers and collects the
// results. Sheets are independent, so order of execution is free;
// Results sorts by path to keep batch output deterministic.
type Queue struct {
	proc    *Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// sendMu guards ch against being closed while a send is in flight:
	// Enqueue sends under the read lock, Shutdown closes under the
	// write lock. Workers never take it, so a send parked on a full
	// buffer cannot deadlock the drain.
	sendMu sync.RWMutex
	closed bool

	mu      sync.Mutex
	results []*entity.Sheet
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithSheetTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewQueue(proc *Processor, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					sheet := q.proc.ProcessSheet(ctx, job.Path)
					cancel()

					q.mu.Lock()
					q.results = append(q.results, sheet)
					q.mu.Unlock()
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue queues one sheet. A full channel blocks, applying
// backpressure to the producer. Safe against a concurrent Shutdown:
// late jobs are dropped with a warning instead of hitting a closed
// channel.
func (q *Queue) Enqueue(_ context.Context, job Job) {
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return
	}
	q.ch <- job
}

// Shutdown stops intake and waits for the workers to drain, or for ctx.
func (q *Queue) Shutdown(ctx context.Context) {
	q.sendMu.Lock()
	if q.closed {
		q.sendMu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.sendMu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}

// Results returns the collected sheets sorted by source path. Call
// after Shutdown.
func (q *Queue) Results() []*entity.Sheet {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := append([]*entity.Sheet(nil), q.results...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
