package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/types"
)

// PassService administers temporary passes, the overrides consulted by
// the admission policy when an entry falls outside its window.
type PassService struct {
	passes     store.PassStore
	identities store.IdentityStore
	loc        *time.Location
	now        func() time.Time
}

func NewPassService(passes store.PassStore, identities store.IdentityStore, loc *time.Location, opts ...Option) *PassService {
	if loc == nil {
		loc = time.Local
	}
	return &PassService{passes: passes, identities: identities, loc: loc, now: buildOptions(opts).now}
}

func (s *PassService) Issue(ctx context.Context, req types.PassRequest) (types.PassView, error) {
	dni := model.NormalizeDNI(req.DNI)
	if dni == "" {
		return types.PassView{}, ErrInvalidDNI
	}
	from, err := parseInstant(req.ValidFrom, s.loc)
	if err != nil {
		return types.PassView{}, invalid(ErrInvalidPass, "valid_from: %v", err)
	}
	until, err := parseInstant(req.ValidUntil, s.loc)
	if err != nil {
		return types.PassView{}, invalid(ErrInvalidPass, "valid_until: %v", err)
	}
	if !until.After(from) {
		return types.PassView{}, invalid(ErrInvalidPass, "valid_until must be after valid_from")
	}

	identity, err := s.identities.FindIdentity(ctx, dni)
	if err != nil {
		return types.PassView{}, unavailable("find identity", err)
	}
	if identity == nil {
		return types.PassView{}, fmt.Errorf("%w: %s", ErrUnknownIdentity, dni)
	}

	now := s.now().UTC()
	pass := model.TemporaryPass{
		ID:         uuid.NewString(),
		DNI:        dni,
		ValidFrom:  from.UTC(),
		ValidUntil: until.UTC(),
		Status:     model.PassActive,
		Reason:     strings.TrimSpace(req.Reason),
		IssuedBy:   strings.TrimSpace(req.IssuedBy),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.passes.CreatePass(ctx, pass); err != nil {
		return types.PassView{}, unavailable("create pass", err)
	}
	return passView(pass, s.loc), nil
}

// Revoke ends a pass early. Revoking a pass that is no longer active
// returns it unchanged.
func (s *PassService) Revoke(ctx context.Context, id string) (types.PassView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.PassView{}, ErrPassNotFound
	}
	if err := s.passes.RevokePass(ctx, id, s.now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.PassView{}, ErrPassNotFound
		}
		return types.PassView{}, unavailable("revoke pass", err)
	}
	pass, err := s.passes.GetPass(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.PassView{}, ErrPassNotFound
		}
		return types.PassView{}, unavailable("get pass", err)
	}
	return passView(*pass, s.loc), nil
}

func (s *PassService) List(ctx context.Context, dni string) (types.PassList, error) {
	passes, err := s.passes.ListPasses(ctx, model.NormalizeDNI(dni))
	if err != nil {
		return types.PassList{}, unavailable("list passes", err)
	}
	out := types.PassList{Passes: make([]types.PassView, 0, len(passes))}
	for _, p := range passes {
		out.Passes = append(out.Passes, passView(p, s.loc))
	}
	return out, nil
}

// ExpireDue marks passes whose validity has ended. It has the SweepFunc
// signature so a Sweeper can drive it.
func (s *PassService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	return s.passes.ExpirePasses(ctx, now)
}

// parseInstant accepts RFC 3339 or a local "2006-01-02T15:04" value as
// sent by datetime-local inputs.
func parseInstant(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("required")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a timestamp", v)
}
