package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/BrandonDHaskell/gatehouse/internal/db"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

type AccessEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessEventStore(db *sql.DB, writer *dbpkg.Worker) *AccessEventStore {
	return &AccessEventStore{db: db, writer: writer}
}

func (s *AccessEventStore) RecordEvent(ctx context.Context, rec store.AccessEventRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.DecidedAt.IsZero() {
		rec.DecidedAt = time.Now().UTC()
	}

	var dni, terminal, distance any
	if d := strings.TrimSpace(rec.DNI); d != "" {
		dni = d
	}
	if t := strings.TrimSpace(rec.TerminalID); t != "" {
		terminal = t
	}
	if rec.Distance != nil {
		distance = *rec.Distance
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_events(
  id, dni, action, terminal_id, granted, reason, distance, decided_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.ID, dni, rec.Action, terminal, boolInt(rec.Granted), rec.Reason, distance, toMs(rec.DecidedAt),
		); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}
		return nil
	})
}
