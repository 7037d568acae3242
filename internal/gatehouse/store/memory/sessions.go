package memory

import (
	"context"
	"sort"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

func (s *Store) FindOpenSession(_ context.Context, dni string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.openIndex(model.NormalizeDNI(dni)); i >= 0 {
		out := s.sessions[i]
		return &out, nil
	}
	return nil, nil
}

// openIndex returns the index of the latest open session of dni, or -1.
// Callers hold s.mu.
func (s *Store) openIndex(dni string) int {
	best := -1
	for i, sess := range s.sessions {
		if sess.DNI != dni || !sess.Open() {
			continue
		}
		if best < 0 || !sess.EntryTime.Before(s.sessions[best].EntryTime) {
			best = i
		}
	}
	return best
}

func (s *Store) CreateSession(_ context.Context, sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.DNI = model.NormalizeDNI(sess.DNI)
	if s.openIndex(sess.DNI) >= 0 {
		return store.ErrOpenSessionExists
	}
	s.sessions = append(s.sessions, sess)
	return nil
}

func (s *Store) CloseSession(_ context.Context, id string, exit time.Time, outcome string, severity model.Severity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].ID != id {
			continue
		}
		if !s.sessions[i].Open() {
			return store.ErrSessionClosed
		}
		t := exit
		s.sessions[i].ExitTime = &t
		s.sessions[i].Outcome = outcome
		s.sessions[i].Severity = severity
		return nil
	}
	return store.ErrNotFound
}

func (s *Store) ListSessions(_ context.Context, f store.SessionFilter) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dni := model.NormalizeDNI(f.DNI)
	out := make([]model.Session, 0)
	for _, sess := range s.sessions {
		if dni != "" && sess.DNI != dni {
			continue
		}
		if !f.From.IsZero() && sess.EntryTime.Before(f.From) {
			continue
		}
		if !f.Until.IsZero() && !sess.EntryTime.Before(f.Until) {
			continue
		}
		out = append(out, sess)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
