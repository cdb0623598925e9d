// Package ingest runs the batched collaborator passes (tagging and
// translation) over the accepted sentence set, persisting progress so an
// interrupted run resumes where it stopped.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
)

// Default batch settings.
const (
	DefaultBatchSize = 32
	DefaultFeedSize  = 480
	DefaultWorkers   = 4
)

// Runner holds the settings shared by the collaborator passes.
type Runner struct {
	// DB is the progress log. nil disables persistence and resume.
	DB        *sql.DB
	BatchSize int
	// FeedSize is how many sentences are dispatched between progress reports.
	FeedSize int
	Workers  int
	// Logger is used for informational messages (e.g. resume status). nil means slog.Default().
	Logger *slog.Logger
	// OnProgress is called after each batch with the number of processed sentences and the total.
	OnProgress func(current, total int)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) Pool
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) batchSize() int {
	if r.BatchSize > 0 {
		return r.BatchSize
	}
	return DefaultBatchSize
}

func (r *Runner) feedSize() int {
	if r.FeedSize >= r.batchSize() {
		return r.FeedSize
	}
	return max(DefaultFeedSize, r.batchSize())
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return DefaultWorkers
}

func (r *Runner) newPool() Pool {
	if r.PoolFactory != nil {
		return r.PoolFactory(r.workers(), r.workers()*2)
	}
	return NewWorkerPool(r.workers(), r.workers()*2)
}

func (r *Runner) newWriter(pass string) *ProgressWriter {
	if r.DB == nil {
		return nil
	}
	w := NewProgressWriter(r.DB, pass, 2)
	w.OnError = func(err error) {
		r.logger().Warn("progress write failed", "pass", pass, "error", err)
	}
	return w
}

// batchResult is the collaborator output for one batch of texts.
type batchResult[T any] struct {
	Index int
	Texts []string
	Out   T
	Err   error
}

func chunk(texts []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(texts); start += size {
		out = append(out, texts[start:min(start+size, len(texts))])
	}
	return out
}

// dispatch feeds texts to work in batches on the worker pool and hands every
// result to consume on a single goroutine. consume returning an error stops
// the run.
func dispatch[T any](ctx context.Context, r *Runner, texts []string,
	work func(context.Context, []string) (T, error),
	consume func(batchResult[T]) error,
) error {
	total := len(texts)
	processed := 0
	feed := r.feedSize()
	for start := 0; start < total; start += feed {
		window := texts[start:min(start+feed, total)]
		n, err := dispatchWindow(ctx, r, window, work, consume, func(done int) {
			if r.OnProgress != nil {
				r.OnProgress(processed+done, total)
			}
		})
		processed += n
		if err != nil {
			return err
		}
		r.logger().Debug("feed dispatched", "processed", processed, "total", total)
	}
	return nil
}

func dispatchWindow[T any](ctx context.Context, r *Runner, texts []string,
	work func(context.Context, []string) (T, error),
	consume func(batchResult[T]) error,
	progress func(done int),
) (int, error) {
	batches := chunk(texts, r.batchSize())
	if len(batches) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp := r.newPool()
	wp.Start(ctx)

	resultCh := make(chan batchResult[T], r.workers()*2)
	doneCh := make(chan error, 1)
	processed := 0

	go func() {
		var consumeErr error
		for res := range resultCh {
			if consumeErr != nil {
				// Keep draining so workers never block on a full channel.
				continue
			}
			if err := consume(res); err != nil {
				consumeErr = err
				cancel()
				continue
			}
			processed += len(res.Texts)
			progress(processed)
		}
		doneCh <- consumeErr
	}()

	var submitErr error
	for i, batch := range batches {
		idx, batch := i, batch
		job := func(ctx context.Context) {
			out, err := work(ctx, batch)
			resultCh <- batchResult[T]{Index: idx, Texts: batch, Out: out, Err: err}
		}
		if err := wp.Submit(ctx, job); err != nil {
			if !errors.Is(err, ErrPoolClosed) && !errors.Is(err, context.Canceled) {
				submitErr = err
			}
			break
		}
	}

	// No job runs after Close returns, so closing resultCh is safe.
	wp.Close()
	close(resultCh)
	consumerErr := <-doneCh

	switch {
	case submitErr != nil:
		return processed, submitErr
	case consumerErr != nil:
		return processed, consumerErr
	}
	return processed, ctx.Err()
}
