package memory

import (
	"context"
	"sort"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

func (s *Store) FindActivePass(_ context.Context, dni string, at time.Time) (*model.TemporaryPass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dni = model.NormalizeDNI(dni)
	var best *model.TemporaryPass
	for _, p := range s.passes {
		if p.DNI != dni || !p.Covers(at) {
			continue
		}
		if best == nil || p.ValidUntil.After(best.ValidUntil) {
			cp := p
			best = &cp
		}
	}
	return best, nil
}

func (s *Store) CreatePass(_ context.Context, pass model.TemporaryPass) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pass.DNI = model.NormalizeDNI(pass.DNI)
	s.passes[pass.ID] = pass
	return nil
}

func (s *Store) GetPass(_ context.Context, id string) (*model.TemporaryPass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.passes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) RevokePass(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.passes[id]
	if !ok {
		return store.ErrNotFound
	}
	if p.Status != model.PassActive {
		return nil
	}
	t := at
	p.Status = model.PassRevoked
	p.RevokedAt = &t
	p.UpdatedAt = at
	s.passes[id] = p
	return nil
}

func (s *Store) ListPasses(_ context.Context, dni string) ([]model.TemporaryPass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dni = model.NormalizeDNI(dni)
	out := make([]model.TemporaryPass, 0)
	for _, p := range s.passes {
		if dni != "" && p.DNI != dni {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ExpirePasses(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, p := range s.passes {
		if p.Status == model.PassActive && p.ValidUntil.Before(now) {
			p.Status = model.PassExpired
			p.UpdatedAt = now
			s.passes[id] = p
			n++
		}
	}
	return n, nil
}
