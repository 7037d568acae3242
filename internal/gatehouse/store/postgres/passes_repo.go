package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

type PassesRepo struct {
	db *sql.DB
}

func NewPassesRepo(db *sql.DB) *PassesRepo {
	return &PassesRepo{db: db}
}

const passColumns = `
	id, dni, valid_from, valid_until, status, reason, issued_by,
	created_at, updated_at, revoked_at`

func scanPass(r rowScanner) (model.TemporaryPass, error) {
	var p model.TemporaryPass
	var status string
	var revokedAt sql.NullTime

	if err := r.Scan(
		&p.ID, &p.DNI, &p.ValidFrom, &p.ValidUntil, &status, &p.Reason, &p.IssuedBy,
		&p.CreatedAt, &p.UpdatedAt, &revokedAt,
	); err != nil {
		return model.TemporaryPass{}, err
	}
	p.Status = model.PassStatus(status)
	p.ValidFrom = p.ValidFrom.UTC()
	p.ValidUntil = p.ValidUntil.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	p.RevokedAt = fromNullTime(revokedAt)
	return p, nil
}

func (r *PassesRepo) FindActivePass(ctx context.Context, dni string, at time.Time) (*model.TemporaryPass, error) {
	p, err := scanPass(r.db.QueryRowContext(ctx, `
		SELECT`+passColumns+`
		FROM temporary_passes
		WHERE dni = $1
		  AND status = 'active'
		  AND valid_from <= $2
		  AND valid_until >= $2
		ORDER BY valid_until DESC
		LIMIT 1
	`, model.NormalizeDNI(dni), at.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindActivePass: %w", err)
	}
	return &p, nil
}

func (r *PassesRepo) CreatePass(ctx context.Context, p model.TemporaryPass) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO temporary_passes (`+passColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		p.ID, model.NormalizeDNI(p.DNI), p.ValidFrom.UTC(), p.ValidUntil.UTC(), string(p.Status),
		p.Reason, p.IssuedBy, p.CreatedAt.UTC(), p.UpdatedAt.UTC(), toNullTime(p.RevokedAt),
	)
	if err != nil {
		return fmt.Errorf("CreatePass insert: %w", err)
	}
	return nil
}

func (r *PassesRepo) GetPass(ctx context.Context, id string) (*model.TemporaryPass, error) {
	p, err := scanPass(r.db.QueryRowContext(ctx, `
		SELECT`+passColumns+`
		FROM temporary_passes
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetPass: %w", err)
	}
	return &p, nil
}

func (r *PassesRepo) RevokePass(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE temporary_passes
		SET status = 'revoked', revoked_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'active'
	`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("RevokePass update: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.GetPass(ctx, id); err != nil {
		return err
	}
	return nil
}

func (r *PassesRepo) ListPasses(ctx context.Context, dni string) ([]model.TemporaryPass, error) {
	dni = model.NormalizeDNI(dni)
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+passColumns+`
		FROM temporary_passes
		WHERE ($1 = '' OR dni = $1)
		ORDER BY created_at DESC, id ASC
	`, dni)
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

func (r *PassesRepo) ExpirePasses(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE temporary_passes
		SET status = 'expired', updated_at = $1
		WHERE status = 'active' AND valid_until < $1
	`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("ExpirePasses: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
