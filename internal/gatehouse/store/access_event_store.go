package store

import (
	"context"
	"time"
)

// AccessEventRecord captures a single identify or recordAction decision
// for the audit log. Action is "identify", "entry" or "exit".
type AccessEventRecord struct {
	ID         string
	DNI        string // empty when the sample matched nobody
	Action     string
	TerminalID string
	Granted    bool
	Reason     string
	Distance   *float64
	DecidedAt  time.Time
}

// AccessEventStore persists decisions as an append-only audit log.
type AccessEventStore interface {
	RecordEvent(ctx context.Context, rec AccessEventRecord) error
}
