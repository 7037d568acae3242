package service

import (
	"context"
	"strings"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/types"
)

type HeartbeatService struct {
	heartbeatStore store.HeartbeatStore
	registry       *TerminalRegistry
	now            func() time.Time
}

func NewHeartbeatService(hs store.HeartbeatStore, reg *TerminalRegistry, opts ...Option) *HeartbeatService {
	return &HeartbeatService{heartbeatStore: hs, registry: reg, now: buildOptions(opts).now}
}

// Record stores a liveness report. Unknown terminals are still recorded
// and answered with Known=false so they can be commissioned later.
func (s *HeartbeatService) Record(ctx context.Context, req types.HeartbeatRequest) (types.HeartbeatResponse, error) {
	terminalID := strings.TrimSpace(req.TerminalID)
	if terminalID == "" {
		return types.HeartbeatResponse{}, ErrInvalidTerminalID
	}

	known, err := s.registry.IsKnown(ctx, terminalID)
	if err != nil {
		return types.HeartbeatResponse{}, unavailable("lookup terminal", err)
	}
	_ = s.registry.NoteSeen(ctx, terminalID)

	now := s.now().UTC()
	rec := store.HeartbeatRecord{
		ReceivedAt:    now,
		CameraOK:      req.CameraOK,
		Firmware:      strings.TrimSpace(req.FirmwareVersion),
		UptimeSeconds: req.UptimeSeconds,
		IP:            strings.TrimSpace(req.IP),
	}
	if err := s.heartbeatStore.RecordHeartbeat(ctx, terminalID, rec); err != nil {
		return types.HeartbeatResponse{}, unavailable("record heartbeat", err)
	}

	return types.HeartbeatResponse{
		OK:         true,
		Known:      known,
		TerminalID: terminalID,
		ServerTime: now.Format(time.RFC3339Nano),
	}, nil
}

// HeartbeatPruneFunc returns a SweepFunc that deletes heartbeats older
// than retention.
func HeartbeatPruneFunc(hs store.HeartbeatStore, retention time.Duration) SweepFunc {
	return func(ctx context.Context, now time.Time) (int64, error) {
		return hs.PruneOlderThan(ctx, now.Add(-retention))
	}
}
