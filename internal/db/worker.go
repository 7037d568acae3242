package db

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

var ErrWorkerClosed = errors.New("db: writer closed")

type TxFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

// Worker runs write transactions one at a time on a single goroutine.
// SQLite allows one writer; funnelling every write through Do also makes
// read-then-write sequences inside a TxFn atomic with respect to each
// other, which the session store relies on.
//
// Sends to jobs happen under mu's read lock and Close flips closed under
// the write lock, so once the loop starts draining no new job can land
// in the buffer behind it.
type Worker struct {
	db      *sql.DB
	jobs    chan job
	closing chan struct{}
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewWorker(db *sql.DB) *Worker {
	w := &Worker{
		db:      db,
		jobs:    make(chan job, 256),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w
}

// Close stops accepting jobs, finishes the queued ones and waits for the
// loop to exit. It is safe to call more than once.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.closing)
	}
	w.mu.Unlock()
	<-w.done
}

// Do runs fn inside a transaction on the writer goroutine. fn's error
// rolls the transaction back; otherwise it is committed. If ctx ends
// first Do returns ctx.Err(), but a job already dequeued still runs to
// completion.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)
	if err := w.enqueue(ctx, job{ctx: ctx, fn: fn, ch: ch}); err != nil {
		return err
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) enqueue(ctx context.Context, j job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrWorkerClosed
	}
	select {
	case w.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for {
		select {
		case j := <-w.jobs:
			j.ch <- w.run(j)
		case <-w.closing:
			for {
				select {
				case j := <-w.jobs:
					j.ch <- w.run(j)
				default:
					return
				}
			}
		}
	}
}

func (w *Worker) run(j job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	tx, err := w.db.BeginTx(j.ctx, nil)
	if err != nil {
		return err
	}
	if err := j.fn(j.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
