package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store/memory"
)

const sigLen = 8

// facility is UTC-3, so 10:50Z is 07:50 at the gate.
var facility = time.FixedZone("GATE", -3*60*60)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// clock is a settable time source for the services under test.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func (c *clock) set(hh, mm int) {
	c.t = time.Date(2026, 3, 2, hh, mm, 0, 0, facility)
}

func newClock(hh, mm int) *clock {
	c := &clock{}
	c.set(hh, mm)
	return c
}

type gateFixture struct {
	svc   *service.GateService
	mem   *memory.Store
	clock *clock
}

// newTestGate builds a GateService on an in-memory store with terminal
// enforcement off and the clock at 08:00 local.
func newTestGate(t *testing.T) *gateFixture {
	t.Helper()
	return newTestGateWith(t, memory.New(), false)
}

func newTestGateWith(t *testing.T, mem *memory.Store, enforce bool, known ...string) *gateFixture {
	t.Helper()
	st := mem.Stores()
	clk := newClock(8, 0)
	reg := service.NewTerminalRegistry(st.Terminals, enforce, service.WithClock(clk.Now))
	if err := reg.Commission(context.Background(), known...); err != nil {
		t.Fatalf("Commission: %v", err)
	}
	svc, err := service.NewGateService(st, reg, service.GateConfig{
		SignatureLength: sigLen,
		Location:        facility,
		Now:             clk.Now,
		Logger:          silentLogger(),
	})
	if err != nil {
		t.Fatalf("NewGateService: %v", err)
	}
	return &gateFixture{svc: svc, mem: mem, clock: clk}
}

// signature returns a vector with x in the first component and zeros
// elsewhere, so distances between signatures are easy to reason about.
func signature(x float64) []float64 {
	s := make([]float64, sigLen)
	s[0] = x
	return s
}

func enroll(t *testing.T, mem *memory.Store, id model.Identity, sig []float64) {
	t.Helper()
	ctx := context.Background()
	if id.Status == "" {
		id.Status = model.StatusActive
	}
	if err := mem.SaveIdentity(ctx, id); err != nil {
		t.Fatalf("SaveIdentity: %v", err)
	}
	if sig != nil {
		if err := mem.EnrollSignature(ctx, id.DNI, sig, time.Now().UTC()); err != nil {
			t.Fatalf("EnrollSignature: %v", err)
		}
	}
}

func employee(dni, start, end string) model.Identity {
	prof := model.EmployeeProfile{}
	if start != "" {
		prof.WorkStart = model.ClockPtr(model.MustClock(start))
	}
	if end != "" {
		prof.WorkEnd = model.ClockPtr(model.MustClock(end))
	}
	return model.Identity{DNI: dni, FullName: "Employee " + dni, Role: "operator", Profile: prof}
}

func transport(dni string, entry time.Time) model.Identity {
	return model.Identity{
		DNI:      dni,
		FullName: "Driver " + dni,
		Profile: model.VisitorProfile{
			Kind:           model.CategoryTransport,
			Company:        "Acme Freight",
			ScheduledEntry: &entry,
		},
	}
}

// failingIdentities fails every gallery and identity read.
type failingIdentities struct {
	store.IdentityStore
}

var errBackendDown = errors.New("backend down")

func (failingIdentities) FindGallery(context.Context) ([]model.GalleryEntry, error) {
	return nil, errBackendDown
}

func (failingIdentities) FindIdentity(context.Context, string) (*model.Identity, error) {
	return nil, errBackendDown
}

// failingEvents fails every audit write.
type failingEvents struct{}

func (failingEvents) RecordEvent(context.Context, store.AccessEventRecord) error {
	return errBackendDown
}
