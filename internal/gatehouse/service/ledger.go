package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/policy"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

var (
	ErrSessionAlreadyOpen = errors.New("an open session already exists")
	ErrExitWithoutEntry   = errors.New("no open session to close")
)

// Ledger owns the entry/exit session log. For every DNI it holds a lock
// across "find open session, then write", and the store's uniqueness
// check backs that up across processes.
type Ledger struct {
	sessions   store.SessionStore
	identities store.IdentityStore
	locks      *keyedMutex
	logger     *slog.Logger
}

func NewLedger(sessions store.SessionStore, identities store.IdentityStore, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		sessions:   sessions,
		identities: identities,
		locks:      newKeyedMutex(),
		logger:     logger,
	}
}

// Entry opens a session for an allowed entry verdict. It fails with
// ErrSessionAlreadyOpen when the identity is already inside.
func (l *Ledger) Entry(ctx context.Context, identity model.Identity, terminal string, v policy.Verdict, now time.Time) (model.Session, error) {
	if !v.Allowed {
		return model.Session{}, fmt.Errorf("entry with denied verdict %q", v.Reason)
	}
	unlock := l.locks.Lock(identity.DNI)
	defer unlock()

	open, err := l.sessions.FindOpenSession(ctx, identity.DNI)
	if err != nil {
		return model.Session{}, unavailable("find open session", err)
	}
	if open != nil {
		return *open, ErrSessionAlreadyOpen
	}

	sess := model.Session{
		ID:        uuid.NewString(),
		DNI:       identity.DNI,
		FullName:  identity.FullName,
		Role:      identity.Role,
		Category:  identity.Category(),
		Terminal:  terminal,
		EntryTime: now,
		Outcome:   v.Status,
		Severity:  v.Severity,
	}
	if err := l.sessions.CreateSession(ctx, sess); err != nil {
		if errors.Is(err, store.ErrOpenSessionExists) {
			return model.Session{}, ErrSessionAlreadyOpen
		}
		return model.Session{}, unavailable("create session", err)
	}

	l.stampVisit(ctx, identity, model.ActionEntry, now)
	return sess, nil
}

// Exit closes the most recent open session. An exit outside its window
// overrides the session outcome; otherwise the entry outcome is kept.
func (l *Ledger) Exit(ctx context.Context, identity model.Identity, v policy.Verdict, now time.Time) (model.Session, error) {
	unlock := l.locks.Lock(identity.DNI)
	defer unlock()

	open, err := l.sessions.FindOpenSession(ctx, identity.DNI)
	if err != nil {
		return model.Session{}, unavailable("find open session", err)
	}
	if open == nil {
		return model.Session{}, ErrExitWithoutEntry
	}

	sess := *open
	if v.Reason == policy.ReasonExitOutOfWindow {
		sess.Outcome = model.OutcomeExitOutOfWindow
		sess.Severity = model.SeverityWarning
	}
	if err := l.sessions.CloseSession(ctx, sess.ID, now, sess.Outcome, sess.Severity); err != nil {
		if errors.Is(err, store.ErrSessionClosed) || errors.Is(err, store.ErrNotFound) {
			return model.Session{}, ErrExitWithoutEntry
		}
		return model.Session{}, unavailable("close session", err)
	}
	exit := now
	sess.ExitTime = &exit

	l.stampVisit(ctx, identity, model.ActionExit, now)
	return sess, nil
}

// stampVisit records actual entry/exit on visitor identities. The session
// is already committed, so a failure here is only logged.
func (l *Ledger) stampVisit(ctx context.Context, identity model.Identity, action model.Action, at time.Time) {
	if !identity.IsVisitor() {
		return
	}
	if err := l.identities.StampVisit(ctx, identity.DNI, action, at); err != nil {
		l.logger.Warn("stamp visit failed",
			"dni", identity.DNI,
			"action", string(action),
			"err", err,
		)
	}
}
