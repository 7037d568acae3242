package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/gatehouse/internal/db"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

type HeartbeatStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewHeartbeatStore(db *sql.DB, writer *dbpkg.Worker) *HeartbeatStore {
	return &HeartbeatStore{db: db, writer: writer}
}

// RecordHeartbeat appends the heartbeat and refreshes the terminal's
// last-seen snapshot in one transaction.
func (s *HeartbeatStore) RecordHeartbeat(ctx context.Context, terminalID string, rec store.HeartbeatRecord) error {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return nil
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	recvMs := toMs(rec.ReceivedAt)

	var cameraOK any
	if rec.CameraOK != nil {
		cameraOK = boolInt(*rec.CameraOK)
	}
	var uptimeMs any
	if rec.UptimeSeconds != 0 {
		uptimeMs = int64(rec.UptimeSeconds) * 1000
	}
	fw := strings.TrimSpace(rec.Firmware)
	ip := strings.TrimSpace(rec.IP)

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureTerminal(ctx, tx, terminalID, recvMs); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO terminal_heartbeats(
  terminal_id, received_at_ms, camera_ok, uptime_ms, fw_version, ip
) VALUES (?, ?, ?, ?, ?, ?);
`, terminalID, recvMs, cameraOK, uptimeMs, fw, ip); err != nil {
			return fmt.Errorf("RecordHeartbeat insert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE terminals
SET last_seen_at_ms = ?,
    last_ip         = ?,
    last_fw_version = ?,
    updated_at_ms   = ?
WHERE terminal_id = ?;
`, recvMs, ip, fw, recvMs, terminalID); err != nil {
			return fmt.Errorf("RecordHeartbeat update terminal: %w", err)
		}
		return nil
	})
}

// PruneOlderThan deletes heartbeats received before cutoff and returns the
// number of rows removed.
func (s *HeartbeatStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := toMs(cutoff)

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM terminal_heartbeats
WHERE received_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
