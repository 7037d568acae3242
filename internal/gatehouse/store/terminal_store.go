package store

import (
	"context"
	"time"
)

// TerminalStore tracks the capture terminals that talk to the gate.
type TerminalStore interface {
	// Commission marks a terminal as known and enabled.
	Commission(ctx context.Context, terminalID string, at time.Time) error
	IsKnown(ctx context.Context, terminalID string) (bool, error)
	MarkSeen(ctx context.Context, terminalID string, t time.Time) error
}

// HeartbeatRecord is one liveness report from a terminal.
type HeartbeatRecord struct {
	ReceivedAt    time.Time
	CameraOK      *bool
	Firmware      string
	UptimeSeconds uint32
	IP            string
}

type HeartbeatStore interface {
	RecordHeartbeat(ctx context.Context, terminalID string, rec HeartbeatRecord) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
