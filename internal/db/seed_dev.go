package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/codec"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
)

type SeedDevOptions struct {
	// Terminals to commission. Defaults to "gate-dev".
	Terminals []string
	// SignatureLength of the demo identity's signature.
	SignatureLength int
}

// DevIdentityDNI is the demo employee created by SeedDev. Its signature is
// all zeros, so a zero sample identifies it.
const DevIdentityDNI = "DEV00001"

// SeedDev creates a commissioned terminal and a demo employee working
// 08:00-17:45. It is safe to run on every start.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	terminals := opt.Terminals
	if len(terminals) == 0 {
		terminals = []string{"gate-dev"}
	}
	for _, tid := range terminals {
		tid = strings.TrimSpace(tid)
		if tid == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, `
INSERT INTO terminals(terminal_id, enabled, commissioned_at_ms, created_at_ms, updated_at_ms)
VALUES (?, 1, ?, ?, ?)
ON CONFLICT(terminal_id) DO UPDATE SET
  enabled = 1,
  commissioned_at_ms = COALESCE(terminals.commissioned_at_ms, excluded.commissioned_at_ms),
  updated_at_ms = excluded.updated_at_ms;
`, tid, now, now, now); err != nil {
			return fmt.Errorf("seed terminal %s: %w", tid, err)
		}
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO identities(
  dni, full_name, role, category, status,
  work_start_min, work_end_min, created_at_ms, updated_at_ms
) VALUES (?, 'Dev Employee', 'Operator', 'employee', 'active', ?, ?, ?, ?);
`, DevIdentityDNI, model.MustClock("08:00").Minutes(), model.MustClock("17:45").Minutes(), now, now); err != nil {
		return fmt.Errorf("seed identity: %w", err)
	}

	length := opt.SignatureLength
	if length <= 0 {
		length = model.DefaultSignatureLength
	}
	blob, err := codec.EncodeSignature(make(model.Signature, length))
	if err != nil {
		return fmt.Errorf("seed signature: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
INSERT INTO face_signatures(dni, signature, dims, active, enrolled_at_ms)
SELECT ?, ?, ?, 1, ?
WHERE NOT EXISTS (SELECT 1 FROM face_signatures WHERE dni = ? AND active = 1);
`, DevIdentityDNI, blob, length, now, DevIdentityDNI); err != nil {
		return fmt.Errorf("seed signature: %w", err)
	}

	return nil
}
