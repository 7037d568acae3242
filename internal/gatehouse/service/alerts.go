package service

import (
	"context"
	"sort"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/types"
)

const DefaultExitLookahead = 10 * time.Minute

// AlertService warns the gate about visitors whose scheduled exit is
// close.
type AlertService struct {
	identities store.IdentityStore
	lookahead  time.Duration
	loc        *time.Location
	now        func() time.Time
}

func NewAlertService(identities store.IdentityStore, lookahead time.Duration, loc *time.Location, opts ...Option) *AlertService {
	if lookahead <= 0 {
		lookahead = DefaultExitLookahead
	}
	if loc == nil {
		loc = time.Local
	}
	return &AlertService{identities: identities, lookahead: lookahead, loc: loc, now: buildOptions(opts).now}
}

// UpcomingExits lists active visitors whose scheduled exit falls within
// the lookahead, soonest first.
func (s *AlertService) UpcomingExits(ctx context.Context) (types.ExitAlertList, error) {
	now := s.now().In(s.loc)
	ids, err := s.identities.ListScheduledExits(ctx, now, now.Add(s.lookahead))
	if err != nil {
		return types.ExitAlertList{}, unavailable("list scheduled exits", err)
	}

	out := types.ExitAlertList{Alerts: make([]types.ExitAlert, 0, len(ids))}
	for _, id := range ids {
		prof, ok := id.Profile.(model.VisitorProfile)
		if !ok || prof.ScheduledExit == nil || id.Status != model.StatusActive {
			continue
		}
		out.Alerts = append(out.Alerts, types.ExitAlert{
			DNI:              id.DNI,
			FullName:         id.FullName,
			Category:         id.Category().String(),
			Company:          prof.Company,
			ScheduledExit:    formatTime(*prof.ScheduledExit, s.loc),
			MinutesRemaining: int(prof.ScheduledExit.Sub(now) / time.Minute),
		})
	}
	sort.SliceStable(out.Alerts, func(i, j int) bool {
		return out.Alerts[i].MinutesRemaining < out.Alerts[j].MinutesRemaining
	})
	return out, nil
}
