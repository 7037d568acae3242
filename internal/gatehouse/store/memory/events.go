package memory

import (
	"context"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

func (s *Store) RecordEvent(_ context.Context, rec store.AccessEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, rec)
	return nil
}

// Events returns a copy of all recorded events.  Test-only helper.
func (s *Store) Events() []store.AccessEventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.AccessEventRecord, len(s.events))
	copy(out, s.events)
	return out
}
