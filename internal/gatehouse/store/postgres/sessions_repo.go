package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

type SessionsRepo struct {
	db *sql.DB
}

func NewSessionsRepo(db *sql.DB) *SessionsRepo {
	return &SessionsRepo{db: db}
}

const sessionColumns = `
	id, dni, full_name, role, category, terminal_id,
	entry_time, exit_time, outcome, severity`

func scanSession(r rowScanner) (model.Session, error) {
	var s model.Session
	var category, severity string
	var terminal sql.NullString
	var exit sql.NullTime

	if err := r.Scan(
		&s.ID, &s.DNI, &s.FullName, &s.Role, &category, &terminal,
		&s.EntryTime, &exit, &s.Outcome, &severity,
	); err != nil {
		return model.Session{}, err
	}
	if c, err := model.ParseCategory(category); err == nil {
		s.Category = c
	}
	s.Terminal = terminal.String
	s.EntryTime = s.EntryTime.UTC()
	s.ExitTime = fromNullTime(exit)
	s.Severity = model.Severity(severity)
	return s, nil
}

func (r *SessionsRepo) FindOpenSession(ctx context.Context, dni string) (*model.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `
		SELECT`+sessionColumns+`
		FROM access_sessions
		WHERE dni = $1 AND exit_time IS NULL
		ORDER BY entry_time DESC
		LIMIT 1
	`, model.NormalizeDNI(dni)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindOpenSession: %w", err)
	}
	return &s, nil
}

// CreateSession relies on idx_sessions_open: a concurrent second open
// session for the same DNI fails with a unique violation.
func (r *SessionsRepo) CreateSession(ctx context.Context, s model.Session) error {
	var terminal sql.NullString
	if t := strings.TrimSpace(s.Terminal); t != "" {
		terminal = sql.NullString{String: t, Valid: true}
	}
	var category string
	if s.Category != 0 {
		category = s.Category.String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_sessions (`+sessionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		s.ID, model.NormalizeDNI(s.DNI), s.FullName, s.Role, category, terminal,
		s.EntryTime.UTC(), toNullTime(s.ExitTime), s.Outcome, string(s.Severity),
	)
	if isUniqueViolation(err, "idx_sessions_open") {
		return store.ErrOpenSessionExists
	}
	if err != nil {
		return fmt.Errorf("CreateSession insert: %w", err)
	}
	return nil
}

func (r *SessionsRepo) CloseSession(ctx context.Context, id string, exit time.Time, outcome string, severity model.Severity) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_sessions
		SET exit_time = $2, outcome = $3, severity = $4
		WHERE id = $1 AND exit_time IS NULL
	`, id, exit.UTC(), outcome, string(severity))
	if err != nil {
		return fmt.Errorf("CloseSession update: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var existing sql.NullTime
	err = r.db.QueryRowContext(ctx, `SELECT exit_time FROM access_sessions WHERE id = $1`, id).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("CloseSession lookup: %w", err)
	}
	return store.ErrSessionClosed
}

func (r *SessionsRepo) ListSessions(ctx context.Context, f store.SessionFilter) ([]model.Session, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if dni := model.NormalizeDNI(f.DNI); dni != "" {
		where = append(where, "dni = "+arg(dni))
	}
	if !f.From.IsZero() {
		where = append(where, "entry_time >= "+arg(f.From.UTC()))
	}
	if !f.Until.IsZero() {
		where = append(where, "entry_time < "+arg(f.Until.UTC()))
	}

	q := "SELECT" + sessionColumns + "\n\t\tFROM access_sessions"
	if len(where) > 0 {
		q += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	q += "\n\t\tORDER BY entry_time DESC, id DESC"
	if f.Limit > 0 {
		q += "\n\t\tLIMIT " + arg(f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListSessions query: %w", err)
	}
	defer rows.Close()

	out := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("ListSessions scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
