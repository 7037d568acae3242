package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

type EventsRepo struct {
	db *sql.DB
}

func NewEventsRepo(db *sql.DB) *EventsRepo {
	return &EventsRepo{db: db}
}

func (r *EventsRepo) RecordEvent(ctx context.Context, rec store.AccessEventRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.DecidedAt.IsZero() {
		rec.DecidedAt = time.Now().UTC()
	}

	var dni, terminal sql.NullString
	if d := strings.TrimSpace(rec.DNI); d != "" {
		dni = sql.NullString{String: d, Valid: true}
	}
	if t := strings.TrimSpace(rec.TerminalID); t != "" {
		terminal = sql.NullString{String: t, Valid: true}
	}
	var distance sql.NullFloat64
	if rec.Distance != nil {
		distance = sql.NullFloat64{Float64: *rec.Distance, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_events (
			id, dni, action, terminal_id, granted, reason, distance, decided_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, rec.ID, dni, rec.Action, terminal, rec.Granted, rec.Reason, distance, rec.DecidedAt.UTC())
	if err != nil {
		return fmt.Errorf("RecordEvent insert: %w", err)
	}
	return nil
}
