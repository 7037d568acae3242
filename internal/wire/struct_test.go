package wire_test

import (
	"strings"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/gatehouse/internal/wire"
)

func TestStruct_CarriesSignatureAndOptionalFields(t *testing.T) {
	cameraOK := false
	in := types.HeartbeatRequest{TerminalID: "gate-1", UptimeSeconds: 3600, CameraOK: &cameraOK}

	s, err := wire.ToStruct(in)
	if err != nil {
		t.Fatalf("ToStruct: %v", err)
	}
	if got := s.Fields["terminal_id"].GetStringValue(); got != "gate-1" {
		t.Errorf("expected terminal_id field, got %q", got)
	}
	if _, ok := s.Fields["ip"]; ok {
		t.Error("omitempty fields must not appear")
	}

	var out types.HeartbeatRequest
	if err := wire.FromStruct(s, &out); err != nil {
		t.Fatalf("FromStruct: %v", err)
	}
	if out.UptimeSeconds != 3600 || out.CameraOK == nil || *out.CameraOK {
		t.Errorf("unexpected decode %+v", out)
	}

	sample := types.IdentifyRequest{Signature: []float64{0.125, -0.5, 1e-3}}
	s, err = wire.ToStruct(sample)
	if err != nil {
		t.Fatalf("ToStruct: %v", err)
	}
	var back types.IdentifyRequest
	if err := wire.FromStruct(s, &back); err != nil {
		t.Fatalf("FromStruct: %v", err)
	}
	if len(back.Signature) != 3 || back.Signature[1] != -0.5 {
		t.Errorf("signature not preserved: %v", back.Signature)
	}
}

func TestFromStruct_RejectsUnknownFields(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"dni": "A1", "card_id": "X"})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	var req types.AccessRequest
	if err := wire.FromStruct(s, &req); err == nil || !strings.Contains(err.Error(), "card_id") {
		t.Errorf("expected unknown field error, got %v", err)
	}
}

func TestToStruct_RejectsNonObjects(t *testing.T) {
	if _, err := wire.ToStruct([]int{1, 2}); err == nil {
		t.Error("expected error for a non-object value")
	}
}
