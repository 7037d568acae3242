package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/codec"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

type IdentitiesRepo struct {
	db *sql.DB
}

func NewIdentitiesRepo(db *sql.DB) *IdentitiesRepo {
	return &IdentitiesRepo{db: db}
}

const identityColumns = `
	i.dni, i.full_name, i.role, i.category, i.status, i.company,
	i.work_start_min, i.work_end_min,
	i.scheduled_entry, i.scheduled_exit, i.actual_entry, i.actual_exit,
	i.contract_expiry, i.created_at, i.updated_at`

func scanIdentity(r rowScanner, extra ...any) (model.Identity, error) {
	var (
		id                        model.Identity
		category, status, company string
		workStart, workEnd        sql.NullInt64
		schedEntry, schedExit     sql.NullTime
		actualEntry, actualExit   sql.NullTime
		contract                  sql.NullTime
	)
	dest := []any{
		&id.DNI, &id.FullName, &id.Role, &category, &status, &company,
		&workStart, &workEnd,
		&schedEntry, &schedExit, &actualEntry, &actualExit,
		&contract, &id.CreatedAt, &id.UpdatedAt,
	}
	if err := r.Scan(append(dest, extra...)...); err != nil {
		return model.Identity{}, err
	}

	cat, err := model.ParseCategory(category)
	if err != nil {
		return model.Identity{}, fmt.Errorf("identity %s: %w", id.DNI, err)
	}
	id.Status = model.IdentityStatus(status)
	id.CreatedAt = id.CreatedAt.UTC()
	id.UpdatedAt = id.UpdatedAt.UTC()
	if contract.Valid {
		y, m, d := contract.Time.Date()
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		id.ContractExpiry = &t
	}

	if cat == model.CategoryEmployee {
		var prof model.EmployeeProfile
		if workStart.Valid {
			prof.WorkStart = model.ClockPtr(model.ClockTime(workStart.Int64))
		}
		if workEnd.Valid {
			prof.WorkEnd = model.ClockPtr(model.ClockTime(workEnd.Int64))
		}
		id.Profile = prof
	} else {
		id.Profile = model.VisitorProfile{
			Kind:           cat,
			Company:        company,
			ScheduledEntry: fromNullTime(schedEntry),
			ScheduledExit:  fromNullTime(schedExit),
			ActualEntry:    fromNullTime(actualEntry),
			ActualExit:     fromNullTime(actualExit),
		}
	}
	return id, nil
}

func (r *IdentitiesRepo) FindGallery(ctx context.Context) ([]model.GalleryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+identityColumns+`, f.signature
		FROM face_signatures f
		JOIN identities i ON i.dni = f.dni
		WHERE f.active
		ORDER BY f.enrolled_at ASC, f.dni ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("FindGallery query: %w", err)
	}
	defer rows.Close()

	var out []model.GalleryEntry
	for rows.Next() {
		var blob []byte
		id, err := scanIdentity(rows, &blob)
		if err != nil {
			return nil, fmt.Errorf("FindGallery scan: %w", err)
		}
		sig, err := codec.DecodeSignature(blob)
		if err != nil {
			return nil, fmt.Errorf("FindGallery signature %s: %w", id.DNI, err)
		}
		out = append(out, model.GalleryEntry{Identity: id, Signature: sig})
	}
	return out, rows.Err()
}

func (r *IdentitiesRepo) FindIdentity(ctx context.Context, dni string) (*model.Identity, error) {
	dni = model.NormalizeDNI(dni)
	if dni == "" {
		return nil, nil
	}

	id, err := scanIdentity(r.db.QueryRowContext(ctx, `
		SELECT`+identityColumns+`
		FROM identities i
		WHERE i.dni = $1
	`, dni))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindIdentity: %w", err)
	}
	return &id, nil
}

func (r *IdentitiesRepo) ListIdentities(ctx context.Context, category model.Category) ([]model.Identity, error) {
	query := `SELECT` + identityColumns + ` FROM identities i`
	var args []any
	if category != 0 {
		query += ` WHERE i.category = $1`
		args = append(args, category.String())
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY i.dni ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("ListIdentities query: %w", err)
	}
	defer rows.Close()

	out := make([]model.Identity, 0)
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("ListIdentities scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *IdentitiesRepo) SetStatus(ctx context.Context, dni string, status model.IdentityStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET status = $1, updated_at = $2 WHERE dni = $3`,
		string(status), at.UTC(), model.NormalizeDNI(dni),
	)
	if err != nil {
		return fmt.Errorf("SetStatus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetStatus rows: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *IdentitiesRepo) SaveIdentity(ctx context.Context, identity model.Identity) error {
	identity.DNI = model.NormalizeDNI(identity.DNI)
	now := time.Now().UTC()
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = now
	}
	if identity.UpdatedAt.IsZero() {
		identity.UpdatedAt = now
	}
	if identity.Status == "" {
		identity.Status = model.StatusActive
	}

	var (
		workStart, workEnd      sql.NullInt64
		schedEntry, schedExit   sql.NullTime
		actualEntry, actualExit sql.NullTime
		company                 string
		contract                sql.NullTime
	)
	switch prof := identity.Profile.(type) {
	case model.EmployeeProfile:
		if prof.WorkStart != nil {
			workStart = sql.NullInt64{Int64: int64(prof.WorkStart.Minutes()), Valid: true}
		}
		if prof.WorkEnd != nil {
			workEnd = sql.NullInt64{Int64: int64(prof.WorkEnd.Minutes()), Valid: true}
		}
	case model.VisitorProfile:
		company = strings.TrimSpace(prof.Company)
		schedEntry, schedExit = toNullTime(prof.ScheduledEntry), toNullTime(prof.ScheduledExit)
		actualEntry, actualExit = toNullTime(prof.ActualEntry), toNullTime(prof.ActualExit)
	default:
		return fmt.Errorf("SaveIdentity %s: unsupported profile %T", identity.DNI, prof)
	}
	if identity.ContractExpiry != nil {
		y, m, d := identity.ContractExpiry.Date()
		contract = sql.NullTime{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (
			dni, full_name, role, category, status, company,
			work_start_min, work_end_min,
			scheduled_entry, scheduled_exit, actual_entry, actual_exit,
			contract_expiry, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (dni) DO UPDATE SET
			full_name       = EXCLUDED.full_name,
			role            = EXCLUDED.role,
			category        = EXCLUDED.category,
			status          = EXCLUDED.status,
			company         = EXCLUDED.company,
			work_start_min  = EXCLUDED.work_start_min,
			work_end_min    = EXCLUDED.work_end_min,
			scheduled_entry = EXCLUDED.scheduled_entry,
			scheduled_exit  = EXCLUDED.scheduled_exit,
			actual_entry    = EXCLUDED.actual_entry,
			actual_exit     = EXCLUDED.actual_exit,
			contract_expiry = EXCLUDED.contract_expiry,
			updated_at      = EXCLUDED.updated_at
	`,
		identity.DNI, identity.FullName, identity.Role, identity.Category().String(), string(identity.Status), company,
		workStart, workEnd,
		schedEntry, schedExit, actualEntry, actualExit,
		contract, identity.CreatedAt, identity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("SaveIdentity upsert: %w", err)
	}
	return nil
}

func (r *IdentitiesRepo) EnrollSignature(ctx context.Context, dni string, sig model.Signature, at time.Time) error {
	dni = model.NormalizeDNI(dni)
	blob, err := codec.EncodeSignature(sig)
	if err != nil {
		return fmt.Errorf("EnrollSignature encode: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("EnrollSignature begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Row lock serialises concurrent enrollments of the same DNI.
	var locked string
	err = tx.QueryRowContext(ctx, `SELECT dni FROM identities WHERE dni = $1 FOR UPDATE`, dni).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("EnrollSignature lookup: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE face_signatures SET active = FALSE WHERE dni = $1 AND active
	`, dni); err != nil {
		return fmt.Errorf("EnrollSignature supersede: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO face_signatures (dni, signature, dims, active, enrolled_at)
		VALUES ($1, $2, $3, TRUE, $4)
	`, dni, blob, len(sig), at.UTC()); err != nil {
		return fmt.Errorf("EnrollSignature insert: %w", err)
	}
	return tx.Commit()
}

func (r *IdentitiesRepo) StampVisit(ctx context.Context, dni string, action model.Action, at time.Time) error {
	var column string
	switch action {
	case model.ActionEntry:
		column = "actual_entry"
	case model.ActionExit:
		column = "actual_exit"
	default:
		return model.ErrUnknownAction
	}
	dni = model.NormalizeDNI(dni)

	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET `+column+` = $2, updated_at = $2 WHERE dni = $1 AND category <> 'employee'`,
		dni, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("StampVisit update: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM identities WHERE dni = $1`, dni).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("StampVisit lookup: %w", err)
	}
	return nil
}

func (r *IdentitiesRepo) ListScheduledExits(ctx context.Context, from, until time.Time) ([]model.Identity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+identityColumns+`
		FROM identities i
		WHERE i.status = 'active'
		  AND i.category IN ('transport', 'provider')
		  AND i.scheduled_exit BETWEEN $1 AND $2
		ORDER BY i.scheduled_exit ASC, i.dni ASC
	`, from.UTC(), until.UTC())
	if err != nil {
		return nil, fmt.Errorf("ListScheduledExits query: %w", err)
	}
	defer rows.Close()

	var out []model.Identity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("ListScheduledExits scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
