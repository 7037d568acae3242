package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

// ═══════════════════════════════════════════════════════════════════════════
// Terminals
// ═══════════════════════════════════════════════════════════════════════════

func TestTerminalStore_SeenIsNotKnown(t *testing.T) {
	_, s := newTestStores(t)
	ctx := context.Background()

	if err := s.Terminals.MarkSeen(ctx, "gate-9", base); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	known, err := s.Terminals.IsKnown(ctx, "gate-9")
	if err != nil {
		t.Fatalf("IsKnown: %v", err)
	}
	if known {
		t.Error("a merely seen terminal must not be known")
	}

	if err := s.Terminals.Commission(ctx, "gate-9", base); err != nil {
		t.Fatalf("Commission: %v", err)
	}
	known, _ = s.Terminals.IsKnown(ctx, "gate-9")
	if !known {
		t.Error("expected commissioned terminal to be known")
	}
}

func TestTerminalStore_IsKnown_Empty(t *testing.T) {
	_, s := newTestStores(t)
	known, err := s.Terminals.IsKnown(context.Background(), "  ")
	if err != nil || known {
		t.Errorf("expected unknown without error, got %v, %v", known, err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Heartbeats
// ═══════════════════════════════════════════════════════════════════════════

func TestHeartbeatStore_AppendsAndSnapshots(t *testing.T) {
	conn, s := newTestStores(t)
	ctx := context.Background()
	cameraOK := true

	for i := 0; i < 3; i++ {
		err := s.Heartbeats.RecordHeartbeat(ctx, "gate-1", store.HeartbeatRecord{
			ReceivedAt:    base.Add(time.Duration(i) * 10 * time.Second),
			CameraOK:      &cameraOK,
			Firmware:      "1.2.0",
			UptimeSeconds: uint32(i * 10),
			IP:            "10.0.0.7",
		})
		if err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
	}

	var count int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM terminal_heartbeats WHERE terminal_id = 'gate-1'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 heartbeat rows, got %d", count)
	}

	var lastSeen sql.NullInt64
	var lastIP, lastFW sql.NullString
	if err := conn.QueryRowContext(ctx, `
SELECT last_seen_at_ms, last_ip, last_fw_version FROM terminals WHERE terminal_id = 'gate-1'`,
	).Scan(&lastSeen, &lastIP, &lastFW); err != nil {
		t.Fatalf("terminal snapshot: %v", err)
	}
	if want := base.Add(20 * time.Second).UnixMilli(); lastSeen.Int64 != want {
		t.Errorf("expected last_seen_at_ms=%d, got %d", want, lastSeen.Int64)
	}
	if lastIP.String != "10.0.0.7" || lastFW.String != "1.2.0" {
		t.Errorf("unexpected snapshot ip=%q fw=%q", lastIP.String, lastFW.String)
	}
}

func TestHeartbeatStore_PruneOlderThan(t *testing.T) {
	_, s := newTestStores(t)
	ctx := context.Background()

	for i, age := range []time.Duration{48 * time.Hour, 25 * time.Hour, time.Hour} {
		if err := s.Heartbeats.RecordHeartbeat(ctx, "gate-1", store.HeartbeatRecord{ReceivedAt: base.Add(-age)}); err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
	}

	n, err := s.Heartbeats.PruneOlderThan(ctx, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 pruned, got %d", n)
	}

	n, _ = s.Heartbeats.PruneOlderThan(ctx, base.Add(-24*time.Hour))
	if n != 0 {
		t.Errorf("expected second prune to delete nothing, got %d", n)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Access events
// ═══════════════════════════════════════════════════════════════════════════

func TestAccessEventStore_RecordEvent_ColumnsCorrect(t *testing.T) {
	conn, s := newTestStores(t)
	ctx := context.Background()
	distance := 0.42

	err := s.Events.RecordEvent(ctx, store.AccessEventRecord{
		DNI:        "E1",
		Action:     "entry",
		TerminalID: "gate-1",
		Granted:    false,
		Reason:     "out_of_window_no_pass",
		Distance:   &distance,
		DecidedAt:  base,
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := s.Events.RecordEvent(ctx, store.AccessEventRecord{Action: "identify", Reason: "no_match", DecidedAt: base}); err != nil {
		t.Fatalf("RecordEvent without DNI: %v", err)
	}

	var (
		id       string
		granted  int
		reason   string
		dist     sql.NullFloat64
		decided  int64
		terminal sql.NullString
	)
	if err := conn.QueryRowContext(ctx, `
SELECT id, granted, reason, distance, decided_at_ms, terminal_id
FROM access_events WHERE dni = 'E1'`,
	).Scan(&id, &granted, &reason, &dist, &decided, &terminal); err != nil {
		t.Fatalf("query: %v", err)
	}
	if id == "" {
		t.Error("expected a generated event id")
	}
	if granted != 0 || reason != "out_of_window_no_pass" {
		t.Errorf("unexpected decision %d/%q", granted, reason)
	}
	if !dist.Valid || dist.Float64 != distance {
		t.Errorf("expected distance %v, got %v", distance, dist)
	}
	if decided != base.UnixMilli() || terminal.String != "gate-1" {
		t.Errorf("unexpected decided_at_ms=%d terminal=%q", decided, terminal.String)
	}

	var nullDNI int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM access_events WHERE dni IS NULL`).Scan(&nullDNI); err != nil {
		t.Fatalf("count: %v", err)
	}
	if nullDNI != 1 {
		t.Errorf("expected the unmatched event stored with NULL dni, got %d", nullDNI)
	}
}
