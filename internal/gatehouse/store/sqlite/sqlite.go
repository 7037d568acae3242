// Package sqlite implements the store interfaces on modernc.org/sqlite.
//
// Reads go straight to the *sql.DB; every write runs inside a db.Worker
// transaction. Instants are stored as UTC unix milliseconds, clock times
// as minutes since midnight and contract expiry as a YYYY-MM-DD date.
package sqlite

import (
	"database/sql"
	"time"

	dbpkg "github.com/BrandonDHaskell/gatehouse/internal/db"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

const dateLayout = "2006-01-02"

// NewStores wires every sqlite store onto conn and writer.
func NewStores(conn *sql.DB, writer *dbpkg.Worker) store.Stores {
	return store.Stores{
		Identities: NewIdentityStore(conn, writer),
		Passes:     NewPassStore(conn, writer),
		Sessions:   NewSessionStore(conn, writer),
		Events:     NewAccessEventStore(conn, writer),
		Terminals:  NewTerminalStore(conn, writer),
		Heartbeats: NewHeartbeatStore(conn, writer),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func toMs(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMs(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func msOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMs(*t)
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMs(v.Int64)
	return &t
}

func clockOrNil(c *model.ClockTime) any {
	if c == nil {
		return nil
	}
	return c.Minutes()
}

func clockPtr(v sql.NullInt64) *model.ClockTime {
	if !v.Valid {
		return nil
	}
	return model.ClockPtr(model.ClockTime(v.Int64))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
