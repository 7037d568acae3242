package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store/memory"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/gatehouse/internal/httpapi"
	"github.com/BrandonDHaskell/gatehouse/internal/wire"
)

const sigLen = 4

type fixture struct {
	url string
	mem *memory.Store
	now *atomic.Pointer[time.Time]
}

// newTestServer wires the full dependency graph on an in-memory store
// with the gate clock pinned to 2026-03-02 08:00 UTC.
func newTestServer(t *testing.T, enforce bool, known ...string) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := memory.New()
	st := mem.Stores()

	now := &atomic.Pointer[time.Time]{}
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	now.Store(&start)
	clock := func() time.Time { return *now.Load() }
	withClock := service.WithClock(clock)

	registry := service.NewTerminalRegistry(st.Terminals, enforce, withClock)
	if err := registry.Commission(context.Background(), known...); err != nil {
		t.Fatalf("Commission: %v", err)
	}

	gate, err := service.NewGateService(st, registry, service.GateConfig{
		SignatureLength: sigLen,
		Location:        time.UTC,
		Now:             clock,
		Logger:          logger,
	})
	if err != nil {
		t.Fatalf("NewGateService: %v", err)
	}

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:            logger,
		Addr:              ":0",
		GateService:       gate,
		EnrollmentService: service.NewEnrollmentService(st.Identities, sigLen, time.UTC, withClock),
		PassService:       service.NewPassService(st.Passes, st.Identities, time.UTC, withClock),
		AlertService:      service.NewAlertService(st.Identities, 10*time.Minute, time.UTC, withClock),
		HeartbeatService:  service.NewHeartbeatService(st.Heartbeats, registry, withClock),
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{url: ts.URL, mem: mem, now: now}
}

func (f *fixture) at(hh, mm int) {
	t := time.Date(2026, 3, 2, hh, mm, 0, 0, time.UTC)
	f.now.Store(&t)
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func enrollEmployee(t *testing.T, f *fixture, dni string, sig []float64) {
	t.Helper()
	status := postJSON(t, f.url+"/v1/identities", types.EnrollRequest{
		DNI:           dni,
		FullName:      "Employee " + dni,
		Category:      "employee",
		WorkStartTime: "08:00",
		WorkEndTime:   "17:45",
		Signature:     sig,
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("enroll %s: expected 200, got %d", dni, status)
	}
}

// ── Health ───────────────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	f := newTestServer(t, false)
	if status := getJSON(t, f.url+"/healthz", nil); status != http.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
}

// ── Identify ─────────────────────────────────────────────────────────────────

func TestIdentify_MatchAndNoMatch(t *testing.T) {
	f := newTestServer(t, false)
	enrollEmployee(t, f, "A100", []float64{0, 0, 0, 0})

	var resp types.IdentifyResponse
	status := postJSON(t, f.url+"/v1/identify", types.IdentifyRequest{Signature: []float64{0.1, 0, 0, 0}}, &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !resp.Authorized || resp.DNI != "A100" {
		t.Errorf("expected A100 authorized, got %+v", resp)
	}

	status = postJSON(t, f.url+"/v1/identify", types.IdentifyRequest{Signature: []float64{1, 1, 0, 0}}, &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for a denial, got %d", status)
	}
	if resp.Authorized || resp.Reason != types.ReasonNoMatch {
		t.Errorf("expected no_match, got %+v", resp)
	}
}

func TestIdentify_BadSignatureIs400(t *testing.T) {
	f := newTestServer(t, false)

	var body map[string]string
	status := postJSON(t, f.url+"/v1/identify", types.IdentifyRequest{Signature: []float64{1}}, &body)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if body["error"] != "invalid_signature" {
		t.Errorf("expected invalid_signature, got %q", body["error"])
	}
}

func TestIdentify_UnknownTerminalIs403(t *testing.T) {
	f := newTestServer(t, true, "gate-1")

	var resp types.IdentifyResponse
	status := postJSON(t, f.url+"/v1/identify", types.IdentifyRequest{TerminalID: "rogue", Signature: []float64{0, 0, 0, 0}}, &resp)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}
	if resp.Reason != types.ReasonUnknownTerminal {
		t.Errorf("expected unknown_terminal, got %q", resp.Reason)
	}
}

func TestIdentify_UnknownFieldsRejected(t *testing.T) {
	f := newTestServer(t, false)

	resp, err := http.Post(f.url+"/v1/identify", "application/json", bytes.NewReader([]byte(`{"signature":[],"card_id":"x"}`)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

// ── Access ───────────────────────────────────────────────────────────────────

func TestAccess_StatusMapping(t *testing.T) {
	f := newTestServer(t, false)
	enrollEmployee(t, f, "A100", []float64{0, 0, 0, 0})

	f.at(7, 30)
	var denied types.AccessResponse
	status := postJSON(t, f.url+"/v1/access", types.AccessRequest{DNI: "A100", Action: "entry"}, &denied)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for out-of-window entry, got %d", status)
	}
	if denied.AllowedWindow != "07:50 - 17:45" || denied.WorkStartTime != "08:00" {
		t.Errorf("expected window and schedule in payload, got %+v", denied)
	}

	f.at(7, 50)
	var ok types.AccessResponse
	if status := postJSON(t, f.url+"/v1/access", types.AccessRequest{DNI: "A100", Action: "Entrada"}, &ok); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !ok.Success || ok.Status != model.OutcomeApproved || ok.Session == nil {
		t.Errorf("unexpected response %+v", ok)
	}

	var dup types.AccessResponse
	if status := postJSON(t, f.url+"/v1/access", types.AccessRequest{DNI: "A100", Action: "entry"}, &dup); status != http.StatusConflict {
		t.Fatalf("expected 409 for a second entry, got %d", status)
	}
	if dup.Reason != types.ReasonSessionAlreadyOpen {
		t.Errorf("expected session_already_open, got %q", dup.Reason)
	}
}

func TestAccess_ExitWithoutEntryIs403(t *testing.T) {
	f := newTestServer(t, false)
	enrollEmployee(t, f, "A100", []float64{0, 0, 0, 0})

	var resp types.AccessResponse
	status := postJSON(t, f.url+"/v1/access", types.AccessRequest{DNI: "A100", Action: "exit"}, &resp)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}
	if resp.Reason != types.ReasonExitWithoutEntry {
		t.Errorf("expected exit_without_entry, got %q", resp.Reason)
	}
}

func TestAccess_ErrorStatuses(t *testing.T) {
	f := newTestServer(t, false)

	cases := []struct {
		name string
		req  types.AccessRequest
		want int
		code string
	}{
		{"unknown identity", types.AccessRequest{DNI: "NOPE", Action: "entry"}, http.StatusNotFound, "unknown_identity"},
		{"missing dni", types.AccessRequest{Action: "entry"}, http.StatusBadRequest, "invalid_dni"},
		{"bad action", types.AccessRequest{DNI: "A1", Action: "jump"}, http.StatusBadRequest, "invalid_action"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body map[string]string
			if status := postJSON(t, f.url+"/v1/access", tc.req, &body); status != tc.want {
				t.Errorf("expected %d, got %d", tc.want, status)
			}
			if body["error"] != tc.code {
				t.Errorf("expected code %q, got %q", tc.code, body["error"])
			}
		})
	}
}

func TestSessions_Query(t *testing.T) {
	f := newTestServer(t, false)
	enrollEmployee(t, f, "A100", []float64{0, 0, 0, 0})
	postJSON(t, f.url+"/v1/access", types.AccessRequest{DNI: "A100", Action: "entry"}, nil)

	var list types.SessionList
	if status := getJSON(t, f.url+"/v1/sessions?dni=a100&date=2026-03-02", &list); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(list.Sessions) != 1 {
		t.Errorf("expected 1 session, got %d", len(list.Sessions))
	}

	if status := getJSON(t, f.url+"/v1/sessions?limit=abc", nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", status)
	}
	if status := getJSON(t, f.url+"/v1/sessions?date=yesterday", nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", status)
	}
}

// ── Identities & passes ──────────────────────────────────────────────────────

func TestIdentities_GetAndNotFound(t *testing.T) {
	f := newTestServer(t, false)
	enrollEmployee(t, f, "A100", []float64{0, 0, 0, 0})

	var view types.IdentityView
	if status := getJSON(t, f.url+"/v1/identities/a100", &view); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if view.DNI != "A100" || view.WorkEndTime != "17:45" {
		t.Errorf("unexpected view %+v", view)
	}

	if status := getJSON(t, f.url+"/v1/identities/NOPE", nil); status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestIdentities_SuspendAndList(t *testing.T) {
	f := newTestServer(t, false)
	enrollEmployee(t, f, "A100", []float64{0, 0, 0, 0})
	enrollEmployee(t, f, "A200", []float64{3, 0, 0, 0})

	var view types.IdentityView
	status := postJSON(t, f.url+"/v1/identities/a100/status", types.StatusRequest{Status: "suspended"}, &view)
	if status != http.StatusOK || view.Status != "suspended" || view.WorkStartTime != "08:00" {
		t.Fatalf("expected suspended with shift kept, got %d %+v", status, view)
	}

	var idResp types.IdentifyResponse
	postJSON(t, f.url+"/v1/identify", types.IdentifyRequest{Signature: []float64{0, 0, 0, 0}}, &idResp)
	if idResp.Authorized || idResp.Reason != types.ReasonIdentityInactive {
		t.Errorf("expected identity_inactive after suspension, got %+v", idResp)
	}

	if status := postJSON(t, f.url+"/v1/identities/A100/status", types.StatusRequest{Status: "actve"}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown status, got %d", status)
	}
	if status := postJSON(t, f.url+"/v1/identities/NOPE/status", types.StatusRequest{Status: "active"}, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown identity, got %d", status)
	}

	var list types.IdentityList
	if status := getJSON(t, f.url+"/v1/identities?category=employee", &list); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(list.Identities) != 2 || list.Identities[0].DNI != "A100" || list.Identities[1].DNI != "A200" {
		t.Errorf("unexpected list %+v", list)
	}
	if status := getJSON(t, f.url+"/v1/identities?category=transport", &list); status != http.StatusOK || len(list.Identities) != 0 {
		t.Errorf("expected no transport identities, got %d %+v", status, list)
	}
	if status := getJSON(t, f.url+"/v1/identities?category=alien", nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown category, got %d", status)
	}
}

func TestPasses_IssueOverridesDenialAndRevoke(t *testing.T) {
	f := newTestServer(t, false)
	enrollEmployee(t, f, "A100", []float64{0, 0, 0, 0})

	var pass types.PassView
	status := postJSON(t, f.url+"/v1/passes", types.PassRequest{
		DNI:        "A100",
		ValidFrom:  "2026-03-02T07:00:00Z",
		ValidUntil: "2026-03-02T08:00:00Z",
		Reason:     "early delivery",
	}, &pass)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}

	f.at(7, 30)
	var resp types.AccessResponse
	if status := postJSON(t, f.url+"/v1/access", types.AccessRequest{DNI: "A100", Action: "entry"}, &resp); status != http.StatusOK {
		t.Fatalf("expected pass to allow entry, got %d", status)
	}
	if resp.Status != model.OutcomeWithPass {
		t.Errorf("expected with-pass status, got %q", resp.Status)
	}

	var revoked types.PassView
	if status := postJSON(t, f.url+"/v1/passes/"+pass.ID+"/revoke", struct{}{}, &revoked); status != http.StatusOK {
		t.Fatalf("expected 200 on revoke, got %d", status)
	}
	if revoked.Status != string(model.PassRevoked) {
		t.Errorf("expected revoked, got %q", revoked.Status)
	}

	var list types.PassList
	getJSON(t, f.url+"/v1/passes?dni=A100", &list)
	if len(list.Passes) != 1 {
		t.Errorf("expected 1 pass listed, got %d", len(list.Passes))
	}

	if status := postJSON(t, f.url+"/v1/passes/missing/revoke", struct{}{}, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for unknown pass, got %d", status)
	}
}

func TestExitAlerts_Empty(t *testing.T) {
	f := newTestServer(t, false)

	var list types.ExitAlertList
	if status := getJSON(t, f.url+"/v1/alerts/exits", &list); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if list.Alerts == nil || len(list.Alerts) != 0 {
		t.Errorf("expected an empty alert list, got %+v", list.Alerts)
	}
}

// ── Heartbeat ────────────────────────────────────────────────────────────────

func TestHeartbeat_KnownTerminal_OK(t *testing.T) {
	f := newTestServer(t, true, "gate-1")

	var hb types.HeartbeatResponse
	status := postJSON(t, f.url+"/v1/terminals/heartbeat", map[string]any{"terminal_id": "gate-1", "uptime_s": 42}, &hb)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !hb.OK || !hb.Known || hb.TerminalID != "gate-1" {
		t.Errorf("unexpected response %+v", hb)
	}
}

func TestHeartbeat_MissingTerminalIs400(t *testing.T) {
	f := newTestServer(t, false)

	if status := postJSON(t, f.url+"/v1/terminals/heartbeat", map[string]any{"uptime_s": 1}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

// ── Protobuf ─────────────────────────────────────────────────────────────────

func TestIdentify_ProtobufStruct(t *testing.T) {
	f := newTestServer(t, false)
	enrollEmployee(t, f, "A100", []float64{0, 0, 0, 0})

	reqStruct, err := wire.ToStruct(types.IdentifyRequest{Signature: []float64{0, 0, 0.2, 0}})
	if err != nil {
		t.Fatalf("ToStruct: %v", err)
	}
	body, err := proto.Marshal(reqStruct)
	if err != nil {
		t.Fatalf("proto.Marshal: %v", err)
	}

	resp, err := http.Post(f.url+"/v1/identify", "application/x-protobuf", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-protobuf" {
		t.Fatalf("expected protobuf response, got %q", ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := &structpb.Struct{}
	if err := proto.Unmarshal(data, out); err != nil {
		t.Fatalf("proto.Unmarshal: %v", err)
	}
	var got types.IdentifyResponse
	if err := wire.FromStruct(out, &got); err != nil {
		t.Fatalf("FromStruct: %v", err)
	}
	if !got.Authorized || got.DNI != "A100" {
		t.Errorf("expected A100 authorized, got %+v", got)
	}
}
