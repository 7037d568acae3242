package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/db"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
	sqlitestore "github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store/sqlite"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production. The connection is closed when the test ends.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// The shared-cache URI keeps the database alive across the pool's
	// connection churn; the name isolates it from other tests.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		name,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}
	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn, closed when the test
// ends.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

func newTestStores(t *testing.T) (*sql.DB, store.Stores) {
	t.Helper()
	conn := openTestDB(t)
	return conn, sqlitestore.NewStores(conn, newTestWriter(t, conn))
}

var base = time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

func employee(dni string) model.Identity {
	return model.Identity{
		DNI:      dni,
		FullName: "Employee " + dni,
		Role:     "Operator",
		Status:   model.StatusActive,
		Profile: model.EmployeeProfile{
			WorkStart: model.ClockPtr(model.MustClock("08:00")),
			WorkEnd:   model.ClockPtr(model.MustClock("17:45")),
		},
	}
}

func provider(dni string, scheduledExit time.Time) model.Identity {
	entry := scheduledExit.Add(-4 * time.Hour)
	return model.Identity{
		DNI:      dni,
		FullName: "Provider " + dni,
		Status:   model.StatusActive,
		Profile: model.VisitorProfile{
			Kind:           model.CategoryProvider,
			Company:        "ACME",
			ScheduledEntry: &entry,
			ScheduledExit:  &scheduledExit,
		},
	}
}
