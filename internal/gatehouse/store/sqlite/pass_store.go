package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/gatehouse/internal/db"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

type PassStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewPassStore(db *sql.DB, writer *dbpkg.Worker) *PassStore {
	return &PassStore{db: db, writer: writer}
}

const passColumns = `
  id, dni, valid_from_ms, valid_until_ms, status, reason, issued_by,
  created_at_ms, updated_at_ms, revoked_at_ms`

func scanPass(r rowScanner) (model.TemporaryPass, error) {
	var (
		p                    model.TemporaryPass
		status               string
		fromMsV, untilMsV    int64
		createdMs, updatedMs int64
		revoked              sql.NullInt64
	)
	if err := r.Scan(
		&p.ID, &p.DNI, &fromMsV, &untilMsV, &status, &p.Reason, &p.IssuedBy,
		&createdMs, &updatedMs, &revoked,
	); err != nil {
		return model.TemporaryPass{}, err
	}
	p.ValidFrom = fromMs(fromMsV)
	p.ValidUntil = fromMs(untilMsV)
	p.Status = model.PassStatus(status)
	p.CreatedAt = fromMs(createdMs)
	p.UpdatedAt = fromMs(updatedMs)
	p.RevokedAt = timePtr(revoked)
	return p, nil
}

func (s *PassStore) FindActivePass(ctx context.Context, dni string, at time.Time) (*model.TemporaryPass, error) {
	ms := toMs(at)
	p, err := scanPass(s.db.QueryRowContext(ctx, `
SELECT`+passColumns+`
FROM temporary_passes
WHERE dni = ?
  AND status = 'active'
  AND valid_from_ms <= ?
  AND valid_until_ms >= ?
ORDER BY valid_until_ms DESC
LIMIT 1;
`, model.NormalizeDNI(dni), ms, ms))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindActivePass: %w", err)
	}
	return &p, nil
}

func (s *PassStore) CreatePass(ctx context.Context, p model.TemporaryPass) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO temporary_passes(`+passColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			p.ID, model.NormalizeDNI(p.DNI), toMs(p.ValidFrom), toMs(p.ValidUntil), string(p.Status),
			p.Reason, p.IssuedBy, toMs(p.CreatedAt), toMs(p.UpdatedAt), msOrNil(p.RevokedAt),
		); err != nil {
			return fmt.Errorf("CreatePass insert: %w", err)
		}
		return nil
	})
}

func (s *PassStore) GetPass(ctx context.Context, id string) (*model.TemporaryPass, error) {
	p, err := scanPass(s.db.QueryRowContext(ctx, `
SELECT`+passColumns+`
FROM temporary_passes
WHERE id = ?;
`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetPass: %w", err)
	}
	return &p, nil
}

func (s *PassStore) RevokePass(ctx context.Context, id string, at time.Time) error {
	ms := toMs(at)
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM temporary_passes WHERE id = ?;`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("RevokePass lookup: %w", err)
		}
		if model.PassStatus(status) != model.PassActive {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE temporary_passes
SET status = 'revoked',
    revoked_at_ms = ?,
    updated_at_ms = ?
WHERE id = ?;
`, ms, ms, id); err != nil {
			return fmt.Errorf("RevokePass update: %w", err)
		}
		return nil
	})
}

func (s *PassStore) ListPasses(ctx context.Context, dni string) ([]model.TemporaryPass, error) {
	dni = model.NormalizeDNI(dni)
	rows, err := s.db.QueryContext(ctx, `
SELECT`+passColumns+`
FROM temporary_passes
WHERE (? = '' OR dni = ?)
ORDER BY created_at_ms DESC, id ASC;
`, dni, dni)
	if err != nil {
		return nil, fmt.Errorf("ListPasses query: %w", err)
	}
	defer rows.Close()

	out := make([]model.TemporaryPass, 0)
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPasses scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PassStore) ExpirePasses(ctx context.Context, now time.Time) (int64, error) {
	ms := toMs(now)

	var changed int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE temporary_passes
SET status = 'expired',
    updated_at_ms = ?
WHERE status = 'active'
  AND valid_until_ms < ?;
`, ms, ms)
		if err != nil {
			return fmt.Errorf("ExpirePasses: %w", err)
		}
		changed, _ = res.RowsAffected()
		return nil
	})
	return changed, err
}
