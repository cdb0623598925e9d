package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// progressBatch is the progress log rows of one collaborator batch.
type progressBatch struct {
	texts []string
	write func(tx *sql.Tx) error
}

// ProgressWriter commits progress batches on a background goroutine, one
// transaction per batch, so a failing batch never touches earlier commits.
type ProgressWriter struct {
	// Pass names the pass in errors.
	Pass    string
	OnError func(error)

	db    *sql.DB
	queue chan progressBatch
	done  chan struct{}

	mu     sync.Mutex
	closed bool

	// errMu guards firstErr and committed.
	errMu     sync.Mutex
	firstErr  error
	committed int
}

// NewProgressWriter starts a writer over conn. depth is the number of
// batches that may wait for the committer before Write blocks.
func NewProgressWriter(conn *sql.DB, pass string, depth int) *ProgressWriter {
	if depth <= 0 {
		depth = 2
	}
	w := &ProgressWriter{
		Pass:  pass,
		db:    conn,
		queue: make(chan progressBatch, depth),
		done:  make(chan struct{}),
	}
	go w.committer()
	return w
}

// Write queues the rows for texts. It blocks while the queue is full; if
// ctx ends first the batch is dropped and reported. Accepted batches are
// committed even after ctx ends.
func (w *ProgressWriter) Write(ctx context.Context, texts []string, write func(tx *sql.Tx) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrProgressWriterClosed
	}

	b := progressBatch{texts: texts, write: write}
	select {
	case w.queue <- b:
		return nil
	default:
	}
	select {
	case w.queue <- b:
		return nil
	case <-ctx.Done():
		err := fmt.Errorf("%s progress: dropping batch of %d sentences: %w", w.Pass, len(texts), ctx.Err())
		w.fail(err)
		return err
	}
}

func (w *ProgressWriter) fail(err error) {
	w.errMu.Lock()
	if w.firstErr == nil {
		w.firstErr = err
	}
	w.errMu.Unlock()
	if w.OnError != nil {
		w.OnError(err)
	}
}

func (w *ProgressWriter) committer() {
	defer close(w.done)
	for b := range w.queue {
		if err := w.commit(b); err != nil {
			w.fail(err)
			continue
		}
		w.errMu.Lock()
		w.committed += len(b.texts)
		w.errMu.Unlock()
	}
}

func (w *ProgressWriter) commit(b progressBatch) error {
	tx, err := w.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("%s progress: begin tx: %w", w.Pass, err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	if err := b.write(tx); err != nil {
		return fmt.Errorf("%s progress: %w", w.Pass, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s progress: commit batch of %d sentences: %w", w.Pass, len(b.texts), err)
	}
	return nil
}

// Committed returns the number of sentences whose progress is committed.
func (w *ProgressWriter) Committed() int {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.committed
}

// Close stops accepting batches, waits for the queued ones to commit and
// returns the first error seen, if any.
func (w *ProgressWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrProgressWriterClosed
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	<-w.done

	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.firstErr
}

// ErrProgressWriterClosed is returned by operations on a closed ProgressWriter.
var ErrProgressWriterClosed = &ProgressWriterError{"progress writer closed"}

// ProgressWriterError is the typed error for ProgressWriter operations.
type ProgressWriterError struct{ msg string }

func (e *ProgressWriterError) Error() string { return e.msg }
