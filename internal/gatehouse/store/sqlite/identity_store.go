package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/codec"
	dbpkg "github.com/BrandonDHaskell/gatehouse/internal/db"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

type IdentityStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewIdentityStore(db *sql.DB, writer *dbpkg.Worker) *IdentityStore {
	return &IdentityStore{db: db, writer: writer}
}

const identityColumns = `
  i.dni, i.full_name, i.role, i.category, i.status, i.company,
  i.work_start_min, i.work_end_min,
  i.scheduled_entry_ms, i.scheduled_exit_ms, i.actual_entry_ms, i.actual_exit_ms,
  i.contract_expiry, i.created_at_ms, i.updated_at_ms`

// scanIdentity reads identityColumns followed by any extra destinations.
func scanIdentity(r rowScanner, extra ...any) (model.Identity, error) {
	var (
		id                        model.Identity
		category, status, company string
		workStart, workEnd        sql.NullInt64
		schedEntry, schedExit     sql.NullInt64
		actualEntry, actualExit   sql.NullInt64
		contract                  sql.NullString
		createdMs, updatedMs      int64
	)
	dest := []any{
		&id.DNI, &id.FullName, &id.Role, &category, &status, &company,
		&workStart, &workEnd,
		&schedEntry, &schedExit, &actualEntry, &actualExit,
		&contract, &createdMs, &updatedMs,
	}
	if err := r.Scan(append(dest, extra...)...); err != nil {
		return model.Identity{}, err
	}

	cat, err := model.ParseCategory(category)
	if err != nil {
		return model.Identity{}, fmt.Errorf("identity %s: %w", id.DNI, err)
	}
	id.Status = model.IdentityStatus(status)
	id.CreatedAt = fromMs(createdMs)
	id.UpdatedAt = fromMs(updatedMs)

	if contract.Valid && contract.String != "" {
		t, err := time.Parse(dateLayout, contract.String)
		if err != nil {
			return model.Identity{}, fmt.Errorf("identity %s contract_expiry: %w", id.DNI, err)
		}
		id.ContractExpiry = &t
	}

	if cat == model.CategoryEmployee {
		id.Profile = model.EmployeeProfile{WorkStart: clockPtr(workStart), WorkEnd: clockPtr(workEnd)}
	} else {
		id.Profile = model.VisitorProfile{
			Kind:           cat,
			Company:        company,
			ScheduledEntry: timePtr(schedEntry),
			ScheduledExit:  timePtr(schedExit),
			ActualEntry:    timePtr(actualEntry),
			ActualExit:     timePtr(actualExit),
		}
	}
	return id, nil
}

func (s *IdentityStore) FindGallery(ctx context.Context) ([]model.GalleryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT`+identityColumns+`, f.signature
FROM face_signatures f
JOIN identities i ON i.dni = f.dni
WHERE f.active = 1
ORDER BY f.enrolled_at_ms ASC, f.dni ASC;
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

func (s *IdentityStore) FindIdentity(ctx context.Context, dni string) (*model.Identity, error) {
	dni = model.NormalizeDNI(dni)
	if dni == "" {
		return nil, nil
	}

	id, err := scanIdentity(s.db.QueryRowContext(ctx, `
SELECT`+identityColumns+`
FROM identities i
WHERE i.dni = ?;
`, dni))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindIdentity: %w", err)
	}
	return &id, nil
}

func (s *IdentityStore) ListIdentities(ctx context.Context, category model.Category) ([]model.Identity, error) {
	query := `SELECT` + identityColumns + ` FROM identities i`
	var args []any
	if category != 0 {
		query += ` WHERE i.category = ?`
		args = append(args, category.String())
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY i.dni ASC;`, args...)
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

func (s *IdentityStore) SetStatus(ctx context.Context, dni string, status model.IdentityStatus, at time.Time) error {
	dni = model.NormalizeDNI(dni)
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE identities SET status = ?, updated_at_ms = ? WHERE dni = ?;`,
			string(status), toMs(at), dni,
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
	})
}

func (s *IdentityStore) SaveIdentity(ctx context.Context, identity model.Identity) error {
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
		workStart, workEnd      any
		schedEntry, schedExit   any
		actualEntry, actualExit any
		company                 string
		contract                any
	)
	switch prof := identity.Profile.(type) {
	case model.EmployeeProfile:
		workStart, workEnd = clockOrNil(prof.WorkStart), clockOrNil(prof.WorkEnd)
	case model.VisitorProfile:
		company = strings.TrimSpace(prof.Company)
		schedEntry, schedExit = msOrNil(prof.ScheduledEntry), msOrNil(prof.ScheduledExit)
		actualEntry, actualExit = msOrNil(prof.ActualEntry), msOrNil(prof.ActualExit)
	default:
		return fmt.Errorf("SaveIdentity %s: unsupported profile %T", identity.DNI, prof)
	}
	if identity.ContractExpiry != nil {
		contract = identity.ContractExpiry.Format(dateLayout)
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO identities(
  dni, full_name, role, category, status, company,
  work_start_min, work_end_min,
  scheduled_entry_ms, scheduled_exit_ms, actual_entry_ms, actual_exit_ms,
  contract_expiry, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(dni) DO UPDATE SET
  full_name          = excluded.full_name,
  role               = excluded.role,
  category           = excluded.category,
  status             = excluded.status,
  company            = excluded.company,
  work_start_min     = excluded.work_start_min,
  work_end_min       = excluded.work_end_min,
  scheduled_entry_ms = excluded.scheduled_entry_ms,
  scheduled_exit_ms  = excluded.scheduled_exit_ms,
  actual_entry_ms    = excluded.actual_entry_ms,
  actual_exit_ms     = excluded.actual_exit_ms,
  contract_expiry    = excluded.contract_expiry,
  updated_at_ms      = excluded.updated_at_ms;
`,
			identity.DNI, identity.FullName, identity.Role, identity.Category().String(), string(identity.Status), company,
			workStart, workEnd,
			schedEntry, schedExit, actualEntry, actualExit,
			contract, toMs(identity.CreatedAt), toMs(identity.UpdatedAt),
		); err != nil {
			return fmt.Errorf("SaveIdentity upsert: %w", err)
		}
		return nil
	})
}

func (s *IdentityStore) EnrollSignature(ctx context.Context, dni string, sig model.Signature, at time.Time) error {
	dni = model.NormalizeDNI(dni)
	blob, err := codec.EncodeSignature(sig)
	if err != nil {
		return fmt.Errorf("EnrollSignature encode: %w", err)
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM identities WHERE dni = ?;`, dni).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("EnrollSignature lookup: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE face_signatures SET active = 0 WHERE dni = ? AND active = 1;
`, dni); err != nil {
			return fmt.Errorf("EnrollSignature supersede: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO face_signatures(dni, signature, dims, active, enrolled_at_ms)
VALUES (?, ?, ?, 1, ?);
`, dni, blob, len(sig), toMs(at)); err != nil {
			return fmt.Errorf("EnrollSignature insert: %w", err)
		}
		return nil
	})
}

func (s *IdentityStore) StampVisit(ctx context.Context, dni string, action model.Action, at time.Time) error {
	var column string
	switch action {
	case model.ActionEntry:
		column = "actual_entry_ms"
	case model.ActionExit:
		column = "actual_exit_ms"
	default:
		return model.ErrUnknownAction
	}
	dni = model.NormalizeDNI(dni)
	ms := toMs(at)

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var category string
		err := tx.QueryRowContext(ctx, `SELECT category FROM identities WHERE dni = ?;`, dni).Scan(&category)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("StampVisit lookup: %w", err)
		}
		if category == model.CategoryEmployee.String() {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE identities SET `+column+` = ?, updated_at_ms = ? WHERE dni = ?;`,
			ms, ms, dni,
		); err != nil {
			return fmt.Errorf("StampVisit update: %w", err)
		}
		return nil
	})
}

func (s *IdentityStore) ListScheduledExits(ctx context.Context, from, until time.Time) ([]model.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT`+identityColumns+`
FROM identities i
WHERE i.status = 'active'
  AND i.category IN ('transport', 'provider')
  AND i.scheduled_exit_ms BETWEEN ? AND ?
ORDER BY i.scheduled_exit_ms ASC, i.dni ASC;
`, toMs(from), toMs(until))
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
