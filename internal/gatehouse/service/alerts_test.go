package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store/memory"
)

func visitorLeavingIn(dni string, d time.Duration) model.Identity {
	exit := time.Now().Add(d)
	return model.Identity{
		DNI:      dni,
		FullName: "Visitor " + dni,
		Profile:  model.VisitorProfile{Kind: model.CategoryProvider, Company: "CleanCo", ScheduledExit: &exit},
	}
}

func TestUpcomingExits_WithinLookaheadSoonestFirst(t *testing.T) {
	mem := memory.New()
	enroll(t, mem, visitorLeavingIn("LATER", 8*time.Minute+30*time.Second), nil)
	enroll(t, mem, visitorLeavingIn("SOON", 3*time.Minute+30*time.Second), nil)
	enroll(t, mem, visitorLeavingIn("FAR", time.Hour), nil)
	enroll(t, mem, visitorLeavingIn("GONE", -5*time.Minute), nil)
	enroll(t, mem, employee("E1", "08:00", "17:00"), nil)

	svc := service.NewAlertService(mem, 10*time.Minute, facility)
	list, err := svc.UpcomingExits(context.Background())
	if err != nil {
		t.Fatalf("UpcomingExits: %v", err)
	}
	if len(list.Alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %+v", list.Alerts)
	}
	if list.Alerts[0].DNI != "SOON" || list.Alerts[1].DNI != "LATER" {
		t.Errorf("expected SOON then LATER, got %s then %s", list.Alerts[0].DNI, list.Alerts[1].DNI)
	}
	if list.Alerts[0].MinutesRemaining != 3 {
		t.Errorf("expected 3 minutes remaining, got %d", list.Alerts[0].MinutesRemaining)
	}
	if list.Alerts[0].Company != "CleanCo" || list.Alerts[0].Category != "provider" {
		t.Errorf("unexpected alert %+v", list.Alerts[0])
	}
}

func TestUpcomingExits_IgnoresInactive(t *testing.T) {
	mem := memory.New()
	id := visitorLeavingIn("OFF", 5*time.Minute)
	id.Status = model.StatusInactive
	enroll(t, mem, id, nil)

	list, err := service.NewAlertService(mem, 0, nil).UpcomingExits(context.Background())
	if err != nil {
		t.Fatalf("UpcomingExits: %v", err)
	}
	if len(list.Alerts) != 0 {
		t.Errorf("expected no alerts, got %+v", list.Alerts)
	}
}
