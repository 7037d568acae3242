package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/gatehouse/internal/db"
)

type TerminalStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewTerminalStore(db *sql.DB, writer *dbpkg.Worker) *TerminalStore {
	return &TerminalStore{db: db, writer: writer}
}

// ensureTerminal guarantees a terminals row exists so heartbeats can
// reference it. New rows start disabled and uncommissioned.
//
// Must be called inside an existing transaction.
func ensureTerminal(ctx context.Context, tx *sql.Tx, terminalID string, nowMs int64) error {
	if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO terminals(terminal_id, enabled, created_at_ms, updated_at_ms)
VALUES (?, 0, ?, ?);
`, terminalID, nowMs, nowMs); err != nil {
		return fmt.Errorf("ensureTerminal %s: %w", terminalID, err)
	}
	return nil
}

func (s *TerminalStore) Commission(ctx context.Context, terminalID string, at time.Time) error {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return nil
	}
	ms := toMs(at)

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO terminals(terminal_id, enabled, commissioned_at_ms, created_at_ms, updated_at_ms)
VALUES (?, 1, ?, ?, ?)
ON CONFLICT(terminal_id) DO UPDATE SET
  enabled = 1,
  commissioned_at_ms = COALESCE(terminals.commissioned_at_ms, excluded.commissioned_at_ms),
  updated_at_ms = excluded.updated_at_ms;
`, terminalID, ms, ms, ms); err != nil {
			return fmt.Errorf("Commission %s: %w", terminalID, err)
		}
		return nil
	})
}

// IsKnown treats "known" as enabled and commissioned.
func (s *TerminalStore) IsKnown(ctx context.Context, terminalID string) (bool, error) {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return false, nil
	}

	var enabled int
	var commissioned sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
SELECT enabled, commissioned_at_ms FROM terminals WHERE terminal_id = ?;
`, terminalID).Scan(&enabled, &commissioned)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("IsKnown query: %w", err)
	}
	return enabled == 1 && commissioned.Valid, nil
}

func (s *TerminalStore) MarkSeen(ctx context.Context, terminalID string, t time.Time) error {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := toMs(t)

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureTerminal(ctx, tx, terminalID, ms); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE terminals
SET last_seen_at_ms = ?,
    updated_at_ms   = ?
WHERE terminal_id = ?;
`, ms, ms, terminalID); err != nil {
			return fmt.Errorf("MarkSeen update: %w", err)
		}
		return nil
	})
}
