package memory

import (
	"context"
	"sort"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

func (s *Store) FindGallery(_ context.Context) ([]model.GalleryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type row struct {
		entry model.GalleryEntry
		at    time.Time
	}
	rows := make([]row, 0, len(s.signatures))
	for dni, es := range s.signatures {
		id, ok := s.identities[dni]
		if !ok {
			continue
		}
		sig := make(model.Signature, len(es.sig))
		copy(sig, es.sig)
		rows = append(rows, row{entry: model.GalleryEntry{Identity: id, Signature: sig}, at: es.enrolledAt})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].at.Equal(rows[j].at) {
			return rows[i].at.Before(rows[j].at)
		}
		return rows[i].entry.Identity.DNI < rows[j].entry.Identity.DNI
	})

	out := make([]model.GalleryEntry, len(rows))
	for i, r := range rows {
		out[i] = r.entry
	}
	return out, nil
}

func (s *Store) FindIdentity(_ context.Context, dni string) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.identities[model.NormalizeDNI(dni)]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (s *Store) ListIdentities(_ context.Context, category model.Category) ([]model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Identity, 0, len(s.identities))
	for _, id := range s.identities {
		if category != 0 && id.Category() != category {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DNI < out[j].DNI })
	return out, nil
}

func (s *Store) SetStatus(_ context.Context, dni string, status model.IdentityStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dni = model.NormalizeDNI(dni)
	id, ok := s.identities[dni]
	if !ok {
		return store.ErrNotFound
	}
	id.Status = status
	id.UpdatedAt = at
	s.identities[dni] = id
	return nil
}

func (s *Store) SaveIdentity(_ context.Context, identity model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity.DNI = model.NormalizeDNI(identity.DNI)
	if prev, ok := s.identities[identity.DNI]; ok && !prev.CreatedAt.IsZero() {
		identity.CreatedAt = prev.CreatedAt
	}
	s.identities[identity.DNI] = identity
	return nil
}

func (s *Store) EnrollSignature(_ context.Context, dni string, sig model.Signature, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dni = model.NormalizeDNI(dni)
	if _, ok := s.identities[dni]; !ok {
		return store.ErrNotFound
	}
	if prev, ok := s.signatures[dni]; ok {
		s.retired[dni] = append(s.retired[dni], prev)
	}
	cp := make(model.Signature, len(sig))
	copy(cp, sig)
	s.signatures[dni] = enrolledSignature{sig: cp, enrolledAt: at}
	return nil
}

func (s *Store) StampVisit(_ context.Context, dni string, action model.Action, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dni = model.NormalizeDNI(dni)
	id, ok := s.identities[dni]
	if !ok {
		return store.ErrNotFound
	}
	prof, ok := id.Profile.(model.VisitorProfile)
	if !ok {
		return nil
	}
	t := at
	switch action {
	case model.ActionEntry:
		prof.ActualEntry = &t
	case model.ActionExit:
		prof.ActualExit = &t
	default:
		return model.ErrUnknownAction
	}
	id.Profile = prof
	id.UpdatedAt = at
	s.identities[dni] = id
	return nil
}

func (s *Store) ListScheduledExits(_ context.Context, from, until time.Time) ([]model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Identity
	for _, id := range s.identities {
		if id.Status != model.StatusActive {
			continue
		}
		prof, ok := id.Profile.(model.VisitorProfile)
		if !ok || prof.ScheduledExit == nil {
			continue
		}
		if prof.ScheduledExit.Before(from) || prof.ScheduledExit.After(until) {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		a := out[i].Profile.(model.VisitorProfile).ScheduledExit
		b := out[j].Profile.(model.VisitorProfile).ScheduledExit
		if !a.Equal(*b) {
			return a.Before(*b)
		}
		return out[i].DNI < out[j].DNI
	})
	return out, nil
}

// SignatureHistory returns how many superseded signatures dni has.
// Test-only helper.
func (s *Store) SignatureHistory(dni string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.retired[model.NormalizeDNI(dni)])
}
