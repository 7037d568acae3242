package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SweepFunc performs one maintenance pass and reports how many rows it
// touched.
type SweepFunc func(ctx context.Context, now time.Time) (int64, error)

// Sweeper runs a SweepFunc in the background: once on Start, then every
// interval until the context is cancelled or Stop is called. An interval
// of 0 disables it.
type Sweeper struct {
	name     string
	sweep    SweepFunc
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(name string, interval time.Duration, fn SweepFunc, logger *slog.Logger, opts ...Option) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		name:     name,
		sweep:    fn,
		interval: interval,
		now:      buildOptions(opts).now,
		logger:   logger.With("sweeper", name),
	}
}

// Start begins the loop. Calling it more than once has no effect.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return
	}
	s.done = make(chan struct{})

	if s.interval <= 0 {
		s.logger.Info("sweeper disabled")
		close(s.done)
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)

	s.logger.Info("sweeper started", "interval", s.interval.String())
}

// Stop signals the loop to exit and waits for it. Safe to call more than
// once, and before Start.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass synchronously.
func (s *Sweeper) RunOnce(ctx context.Context) {
	n, err := s.sweep(ctx, s.now().UTC())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("sweep failed", "err", err)
		}
		return
	}
	if n > 0 {
		s.logger.Info("sweep complete", "affected", n)
	}
}
