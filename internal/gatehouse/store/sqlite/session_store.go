package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/gatehouse/internal/db"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

type SessionStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewSessionStore(db *sql.DB, writer *dbpkg.Worker) *SessionStore {
	return &SessionStore{db: db, writer: writer}
}

const sessionColumns = `
  id, dni, full_name, role, category, terminal_id,
  entry_time_ms, exit_time_ms, outcome, severity`

func scanSession(r rowScanner) (model.Session, error) {
	var (
		sess     model.Session
		category string
		terminal sql.NullString
		entryMs  int64
		exit     sql.NullInt64
		severity string
	)
	if err := r.Scan(
		&sess.ID, &sess.DNI, &sess.FullName, &sess.Role, &category, &terminal,
		&entryMs, &exit, &sess.Outcome, &severity,
	); err != nil {
		return model.Session{}, err
	}
	if c, err := model.ParseCategory(category); err == nil {
		sess.Category = c
	}
	sess.Terminal = terminal.String
	sess.EntryTime = fromMs(entryMs)
	sess.ExitTime = timePtr(exit)
	sess.Severity = model.Severity(severity)
	return sess, nil
}

func (s *SessionStore) FindOpenSession(ctx context.Context, dni string) (*model.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx, `
SELECT`+sessionColumns+`
FROM access_sessions
WHERE dni = ? AND exit_time_ms IS NULL
ORDER BY entry_time_ms DESC
LIMIT 1;
`, model.NormalizeDNI(dni)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindOpenSession: %w", err)
	}
	return &sess, nil
}

// CreateSession checks for an open session and inserts inside one writer
// transaction. The partial unique index idx_sessions_open backs the check.
func (s *SessionStore) CreateSession(ctx context.Context, sess model.Session) error {
	dni := model.NormalizeDNI(sess.DNI)

	var terminal any
	if t := strings.TrimSpace(sess.Terminal); t != "" {
		terminal = t
	}
	var category string
	if sess.Category != 0 {
		category = sess.Category.String()
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var open int
		if err := tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM access_sessions WHERE dni = ? AND exit_time_ms IS NULL;
`, dni).Scan(&open); err != nil {
			return fmt.Errorf("CreateSession check open: %w", err)
		}
		if open > 0 {
			return store.ErrOpenSessionExists
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_sessions(`+sessionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			sess.ID, dni, sess.FullName, sess.Role, category, terminal,
			toMs(sess.EntryTime), msOrNil(sess.ExitTime), sess.Outcome, string(sess.Severity),
		); err != nil {
			return fmt.Errorf("CreateSession insert: %w", err)
		}
		return nil
	})
}

func (s *SessionStore) CloseSession(ctx context.Context, id string, exit time.Time, outcome string, severity model.Severity) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var existing sql.NullInt64
		err := tx.QueryRowContext(ctx, `SELECT exit_time_ms FROM access_sessions WHERE id = ?;`, id).Scan(&existing)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("CloseSession lookup: %w", err)
		}
		if existing.Valid {
			return store.ErrSessionClosed
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE access_sessions
SET exit_time_ms = ?,
    outcome      = ?,
    severity     = ?
WHERE id = ?;
`, toMs(exit), outcome, string(severity), id); err != nil {
			return fmt.Errorf("CloseSession update: %w", err)
		}
		return nil
	})
}

func (s *SessionStore) ListSessions(ctx context.Context, f store.SessionFilter) ([]model.Session, error) {
	var (
		where []string
		args  []any
	)
	if dni := model.NormalizeDNI(f.DNI); dni != "" {
		where = append(where, "dni = ?")
		args = append(args, dni)
	}
	if !f.From.IsZero() {
		where = append(where, "entry_time_ms >= ?")
		args = append(args, toMs(f.From))
	}
	if !f.Until.IsZero() {
		where = append(where, "entry_time_ms < ?")
		args = append(args, toMs(f.Until))
	}

	q := "SELECT" + sessionColumns + "\nFROM access_sessions"
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY entry_time_ms DESC, rowid DESC"
	if f.Limit > 0 {
		q += "\nLIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListSessions query: %w", err)
	}
	defer rows.Close()

	out := make([]model.Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("ListSessions scan: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}
