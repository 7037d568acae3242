package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migration struct {
	version int
	name    string
	body    string
}

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version       INTEGER PRIMARY KEY,
  name          TEXT NOT NULL DEFAULT '',
  applied_at_ms INTEGER NOT NULL
);`

// Migrate brings the schema up to the newest embedded migration. Pending
// files run in version order, one transaction each, and are recorded in
// schema_migrations so a restart skips them.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	pending, err := embeddedMigrations()
	if err != nil {
		return err
	}
	done, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if done[m.version] {
			continue
		}
		if err := runMigration(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for an empty
// database.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations;`).Scan(&v); err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return int(v.Int64), nil
}

func embeddedMigrations() ([]migration, error) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	out := make([]migration, 0, len(names))
	byVersion := make(map[int]string, len(names))
	for _, p := range names {
		name := path.Base(p)
		v, err := versionOf(name)
		if err != nil {
			return nil, err
		}
		if other, ok := byVersion[v]; ok {
			return nil, fmt.Errorf("migration version %d used by both %s and %s", v, other, name)
		}
		byVersion[v] = name

		body, err := migrationsFS.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		out = append(out, migration{version: v, name: name, body: string(body)})
	}

	slices.SortFunc(out, func(a, b migration) int { return a.version - b.version })
	return out, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations;`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

func runMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %s: begin: %w", m.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.body); err != nil {
		return fmt.Errorf("migration %s: %w", m.name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations(version, name, applied_at_ms) VALUES (?, ?, ?);`,
		m.version, m.name, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("migration %s: record: %w", m.name, err)
	}
	return tx.Commit()
}

// versionOf parses the numeric prefix of a file such as 0001_init.sql.
func versionOf(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("migration %s: expected NNNN_name.sql", name)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("migration %s: bad version: %w", name, err)
	}
	return v, nil
}
