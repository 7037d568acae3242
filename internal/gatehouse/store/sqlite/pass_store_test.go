package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

func pass(id, dni string, from, until time.Time) model.TemporaryPass {
	return model.TemporaryPass{
		ID:         id,
		DNI:        dni,
		ValidFrom:  from,
		ValidUntil: until,
		Status:     model.PassActive,
		Reason:     "late shift",
		IssuedBy:   "supervisor",
		CreatedAt:  from,
		UpdatedAt:  from,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// FindActivePass
// ═══════════════════════════════════════════════════════════════════════════

func TestPassStore_FindActivePass_Bounds(t *testing.T) {
	_, s := newTestStores(t)
	ctx := context.Background()

	if err := s.Passes.CreatePass(ctx, pass("p1", "e1", base, base.Add(time.Hour))); err != nil {
		t.Fatalf("CreatePass: %v", err)
	}

	cases := []struct {
		at    time.Time
		found bool
	}{
		{base.Add(-time.Second), false},
		{base, true},
		{base.Add(30 * time.Minute), true},
		{base.Add(time.Hour), true},
		{base.Add(time.Hour + time.Second), false},
	}
	for _, tc := range cases {
		got, err := s.Passes.FindActivePass(ctx, "E1", tc.at)
		if err != nil {
			t.Fatalf("FindActivePass: %v", err)
		}
		if (got != nil) != tc.found {
			t.Errorf("at %s: found=%v, want %v", tc.at.Format(time.TimeOnly), got != nil, tc.found)
		}
	}
}

func TestPassStore_RevokedPassIgnored(t *testing.T) {
	_, s := newTestStores(t)
	ctx := context.Background()

	if err := s.Passes.CreatePass(ctx, pass("p1", "E1", base, base.Add(time.Hour))); err != nil {
		t.Fatalf("CreatePass: %v", err)
	}
	if err := s.Passes.RevokePass(ctx, "p1", base.Add(time.Minute)); err != nil {
		t.Fatalf("RevokePass: %v", err)
	}
	if err := s.Passes.RevokePass(ctx, "p1", base.Add(2*time.Minute)); err != nil {
		t.Fatalf("second RevokePass should be a no-op: %v", err)
	}

	got, err := s.Passes.FindActivePass(ctx, "E1", base.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("FindActivePass: %v", err)
	}
	if got != nil {
		t.Errorf("expected revoked pass to be ignored, got %+v", got)
	}

	p, err := s.Passes.GetPass(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPass: %v", err)
	}
	if p.Status != model.PassRevoked || p.RevokedAt == nil || !p.RevokedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("expected revoked at first revocation, got %+v", p)
	}
}

func TestPassStore_GetPass_NotFound(t *testing.T) {
	_, s := newTestStores(t)

	if _, err := s.Passes.GetPass(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Passes.RevokePass(context.Background(), "nope", base); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on revoke, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ExpirePasses / ListPasses
// ═══════════════════════════════════════════════════════════════════════════

func TestPassStore_ExpirePasses(t *testing.T) {
	_, s := newTestStores(t)
	ctx := context.Background()

	seed := []model.TemporaryPass{
		pass("old", "E1", base.Add(-3*time.Hour), base.Add(-time.Hour)),
		pass("live", "E1", base.Add(-time.Hour), base.Add(time.Hour)),
		pass("other", "E2", base.Add(-3*time.Hour), base.Add(-2*time.Hour)),
	}
	for _, p := range seed {
		if err := s.Passes.CreatePass(ctx, p); err != nil {
			t.Fatalf("CreatePass %s: %v", p.ID, err)
		}
	}

	n, err := s.Passes.ExpirePasses(ctx, base)
	if err != nil {
		t.Fatalf("ExpirePasses: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 expired, got %d", n)
	}

	list, err := s.Passes.ListPasses(ctx, "E1")
	if err != nil {
		t.Fatalf("ListPasses: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 passes for E1, got %d", len(list))
	}
	if list[0].ID != "live" || list[0].Status != model.PassActive {
		t.Errorf("expected live pass first and active, got %+v", list[0])
	}
	if list[1].Status != model.PassExpired {
		t.Errorf("expected old pass expired, got %s", list[1].Status)
	}

	all, _ := s.Passes.ListPasses(ctx, "")
	if len(all) != 3 {
		t.Errorf("expected 3 passes in total, got %d", len(all))
	}
}
