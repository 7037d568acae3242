package service

import (
	"context"
	"strings"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

// TerminalRegistry tracks which capture terminals are commissioned and
// when each was last heard from. With enforcement on, requests from
// terminals that are not commissioned are refused.
type TerminalRegistry struct {
	store   store.TerminalStore
	enforce bool
	now     func() time.Time
}

func NewTerminalRegistry(st store.TerminalStore, enforce bool, opts ...Option) *TerminalRegistry {
	return &TerminalRegistry{store: st, enforce: enforce, now: buildOptions(opts).now}
}

func (r *TerminalRegistry) Enforcing() bool { return r.enforce }

// Commission marks every id as a known terminal. Blank ids are skipped.
func (r *TerminalRegistry) Commission(ctx context.Context, ids ...string) error {
	at := r.now().UTC()
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := r.store.Commission(ctx, id, at); err != nil {
			return unavailable("commission terminal "+id, err)
		}
	}
	return nil
}

func (r *TerminalRegistry) IsKnown(ctx context.Context, terminalID string) (bool, error) {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return false, nil
	}
	return r.store.IsKnown(ctx, terminalID)
}

func (r *TerminalRegistry) NoteSeen(ctx context.Context, terminalID string) error {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return nil
	}
	return r.store.MarkSeen(ctx, terminalID, r.now().UTC())
}

// Admit reports whether a request from terminalID may proceed, noting the
// terminal as seen along the way. Without enforcement everything is
// admitted, including requests that carry no terminal id.
func (r *TerminalRegistry) Admit(ctx context.Context, terminalID string) (bool, error) {
	known, err := r.IsKnown(ctx, terminalID)
	if err != nil {
		return false, unavailable("lookup terminal", err)
	}
	_ = r.NoteSeen(ctx, terminalID)
	return known || !r.enforce, nil
}
