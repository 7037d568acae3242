package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
)

// SessionFilter narrows ListSessions. Zero fields do not filter.
// From and Until bound EntryTime as [From, Until).
type SessionFilter struct {
	DNI   string
	From  time.Time
	Until time.Time
	Limit int
}

type SessionStore interface {
	// FindOpenSession returns the most recent session of dni without an
	// exit, or nil.
	FindOpenSession(ctx context.Context, dni string) (*model.Session, error)

	// CreateSession writes a new open session. It fails with
	// ErrOpenSessionExists when dni already has one.
	CreateSession(ctx context.Context, s model.Session) error

	// CloseSession stamps the exit of an open session. It fails with
	// ErrNotFound for an unknown id and ErrSessionClosed when the session
	// already has an exit.
	CloseSession(ctx context.Context, id string, exit time.Time, outcome string, severity model.Severity) error

	// ListSessions returns sessions newest entry first.
	ListSessions(ctx context.Context, f SessionFilter) ([]model.Session, error)
}
