package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

type TerminalsRepo struct {
	db *sql.DB
}

func NewTerminalsRepo(db *sql.DB) *TerminalsRepo {
	return &TerminalsRepo{db: db}
}

func (r *TerminalsRepo) Commission(ctx context.Context, terminalID string, at time.Time) error {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO terminals (terminal_id, enabled, commissioned_at, created_at, updated_at)
		VALUES ($1, TRUE, $2, $2, $2)
		ON CONFLICT (terminal_id) DO UPDATE SET
			enabled = TRUE,
			commissioned_at = COALESCE(terminals.commissioned_at, EXCLUDED.commissioned_at),
			updated_at = EXCLUDED.updated_at
	`, terminalID, at.UTC())
	if err != nil {
		return fmt.Errorf("Commission %s: %w", terminalID, err)
	}
	return nil
}

func (r *TerminalsRepo) IsKnown(ctx context.Context, terminalID string) (bool, error) {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return false, nil
	}

	var enabled bool
	var commissioned sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT enabled, commissioned_at FROM terminals WHERE terminal_id = $1
	`, terminalID).Scan(&enabled, &commissioned)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("IsKnown query: %w", err)
	}
	return enabled && commissioned.Valid, nil
}

func (r *TerminalsRepo) MarkSeen(ctx context.Context, terminalID string, t time.Time) error {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO terminals (terminal_id, enabled, last_seen_at, created_at, updated_at)
		VALUES ($1, FALSE, $2, $2, $2)
		ON CONFLICT (terminal_id) DO UPDATE SET
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at = EXCLUDED.updated_at
	`, terminalID, t.UTC())
	if err != nil {
		return fmt.Errorf("MarkSeen %s: %w", terminalID, err)
	}
	return nil
}

type HeartbeatsRepo struct {
	db *sql.DB
}

func NewHeartbeatsRepo(db *sql.DB) *HeartbeatsRepo {
	return &HeartbeatsRepo{db: db}
}

func (r *HeartbeatsRepo) RecordHeartbeat(ctx context.Context, terminalID string, rec store.HeartbeatRecord) error {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return nil
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	var cameraOK sql.NullBool
	if rec.CameraOK != nil {
		cameraOK = sql.NullBool{Bool: *rec.CameraOK, Valid: true}
	}
	var uptimeMs sql.NullInt64
	if rec.UptimeSeconds != 0 {
		uptimeMs = sql.NullInt64{Int64: int64(rec.UptimeSeconds) * 1000, Valid: true}
	}
	fw := strings.TrimSpace(rec.Firmware)
	ip := strings.TrimSpace(rec.IP)
	at := rec.ReceivedAt.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("RecordHeartbeat begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO terminals (terminal_id, enabled, last_seen_at, last_ip, last_fw_version, created_at, updated_at)
		VALUES ($1, FALSE, $2, $3, $4, $2, $2)
		ON CONFLICT (terminal_id) DO UPDATE SET
			last_seen_at = EXCLUDED.last_seen_at,
			last_ip = EXCLUDED.last_ip,
			last_fw_version = EXCLUDED.last_fw_version,
			updated_at = EXCLUDED.updated_at
	`, terminalID, at, ip, fw); err != nil {
		return fmt.Errorf("RecordHeartbeat terminal snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO terminal_heartbeats (terminal_id, received_at, camera_ok, uptime_ms, fw_version, ip)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, terminalID, at, cameraOK, uptimeMs, fw, ip); err != nil {
		return fmt.Errorf("RecordHeartbeat insert: %w", err)
	}
	return tx.Commit()
}

func (r *HeartbeatsRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM terminal_heartbeats WHERE received_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("PruneOlderThan: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
