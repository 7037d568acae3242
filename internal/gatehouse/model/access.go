package model

import (
	"errors"
	"strings"
	"time"
)

var ErrUnknownAction = errors.New("action must be entry or exit")

// Action is the direction a person is passing the gate.
type Action string

const (
	ActionEntry Action = "entry"
	ActionExit  Action = "exit"
)

// ParseAction accepts entry/exit and the front-end labels Entrada/Salida.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "entry", "entrada", "in":
		return ActionEntry, nil
	case "exit", "salida", "out":
		return ActionExit, nil
	default:
		return "", ErrUnknownAction
	}
}

// Outcome statuses written on sessions.
const (
	OutcomeApproved        = "Approved"
	OutcomeWithPass        = "Out-of-window — with pass"
	OutcomeExitOutOfWindow = "Exit out of window"
	OutcomeDenied          = "Denied"
)

// Severity mirrors how the gate UI colours a session row.
type Severity string

const (
	SeveritySuccess  Severity = "success"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Session is one entry/exit pair for a DNI. ExitTime is nil while the
// person is inside.
type Session struct {
	ID        string
	DNI       string
	FullName  string
	Role      string
	Category  Category
	Terminal  string
	EntryTime time.Time
	ExitTime  *time.Time
	Outcome   string
	Severity  Severity
}

// Open reports whether the session has no exit yet.
func (s Session) Open() bool { return s.ExitTime == nil }

// PassStatus is the lifecycle state of a temporary pass.
type PassStatus string

const (
	PassActive  PassStatus = "active"
	PassRevoked PassStatus = "revoked"
	PassExpired PassStatus = "expired"
)

// TemporaryPass overrides an out-of-window entry denial while it covers
// the attempt instant.
type TemporaryPass struct {
	ID         string
	DNI        string
	ValidFrom  time.Time
	ValidUntil time.Time
	Status     PassStatus
	Reason     string
	IssuedBy   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RevokedAt  *time.Time
}

// Covers reports whether the pass is active and at lies within
// [ValidFrom, ValidUntil].
func (p TemporaryPass) Covers(at time.Time) bool {
	if p.Status != PassActive {
		return false
	}
	return !at.Before(p.ValidFrom) && !at.After(p.ValidUntil)
}
