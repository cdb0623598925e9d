package ingest

import (
	"context"
	"sync"
)

// Job runs one collaborator batch. It reports its outcome on its own result
// channel.
type Job func(ctx context.Context)

// Pool abstracts the worker pool so tests can inject failing implementations.
type Pool interface {
	Start(ctx context.Context)
	// Submit enqueues job, blocking while the queue is full. It returns
	// ErrPoolClosed once Close has begun and ctx.Err() if ctx ends first.
	Submit(ctx context.Context, job Job) error
	Close()
}

// WorkerPool caps the number of collaborator batches in flight.
type WorkerPool struct {
	workers int
	jobs    chan Job
	wg      sync.WaitGroup

	// stop releases blocked submitters; inflight counts them so Close only
	// closes jobs once no Submit can still send on it.
	stop     chan struct{}
	inflight sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewWorkerPool returns a pool of workers goroutines with a job queue of
// the given capacity.
func NewWorkerPool(workers, queue int) *WorkerPool {
	workers = max(workers, 1)
	if queue <= 0 {
		queue = workers * 2
	}
	return &WorkerPool{
		workers: workers,
		jobs:    make(chan Job, queue),
		stop:    make(chan struct{}),
	}
}

// Start launches the workers. They run until ctx ends or the queue is
// closed and drained.
func (p *WorkerPool) Start(ctx context.Context) {
	p.wg.Add(p.workers)
	for range p.workers {
		go p.work(ctx)
	}
}

func (p *WorkerPool) work(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			job(ctx)
		}
	}
}

// Submit implements Pool.
func (p *WorkerPool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.inflight.Add(1)
	p.mu.RUnlock()
	defer p.inflight.Done()

	select {
	case p.jobs <- job:
		return nil
	case <-p.stop:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for the workers to finish what is
// queued. It is safe to call more than once.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.stop)
	p.mu.Unlock()

	p.inflight.Wait()
	close(p.jobs)
	p.wg.Wait()
}

// ErrPoolClosed is returned by Submit once the pool is closing.
var ErrPoolClosed = &PoolError{"worker pool closed"}

// PoolError is the typed error for pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }
