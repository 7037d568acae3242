package memory

import (
	"context"
	"strings"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

func (s *Store) Commission(_ context.Context, terminalID string, at time.Time) error {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.terminals[terminalID]
	t.known = true
	s.terminals[terminalID] = t
	return nil
}

func (s *Store) IsKnown(_ context.Context, terminalID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.terminals[terminalID].known, nil
}

func (s *Store) MarkSeen(_ context.Context, terminalID string, at time.Time) error {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.terminals[terminalID]
	t.lastSeen = at
	s.terminals[terminalID] = t
	return nil
}

// LastSeen reports when terminalID was last marked seen.  Test-only helper.
func (s *Store) LastSeen(terminalID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.terminals[terminalID]
	return t.lastSeen, ok && !t.lastSeen.IsZero()
}

func (s *Store) RecordHeartbeat(_ context.Context, terminalID string, rec store.HeartbeatRecord) error {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return nil
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats = append(s.heartbeats, heartbeat{terminalID: terminalID, rec: rec})
	return nil
}

func (s *Store) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.heartbeats[:0]
	var n int64
	for _, hb := range s.heartbeats {
		if hb.rec.ReceivedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, hb)
	}
	s.heartbeats = kept
	return n, nil
}

// HeartbeatCount returns the number of retained heartbeats.  Test-only helper.
func (s *Store) HeartbeatCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.heartbeats)
}
