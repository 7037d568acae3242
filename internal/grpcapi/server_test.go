package grpcapi_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store/memory"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/gatehouse/internal/grpcapi"
	"github.com/BrandonDHaskell/gatehouse/internal/wire"
)

const sigLen = 4

// newTestClient starts a Server on an in-memory listener and returns a
// connection to it. The gate clock is pinned to 08:00 UTC.
func newTestClient(t *testing.T) (*grpc.ClientConn, *memory.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := memory.New()
	gate, err := service.NewGateService(mem.Stores(), nil, service.GateConfig{
		SignatureLength: sigLen,
		Location:        time.UTC,
		Now:             func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) },
		Logger:          logger,
	})
	if err != nil {
		t.Fatalf("NewGateService: %v", err)
	}

	srv := grpcapi.NewServer(grpcapi.Dependencies{Logger: logger, GateService: gate})
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, mem
}

func seedEmployee(t *testing.T, mem *memory.Store, dni string) {
	t.Helper()
	ctx := context.Background()
	id := model.Identity{
		DNI:      dni,
		FullName: "Employee " + dni,
		Status:   model.StatusActive,
		Profile: model.EmployeeProfile{
			WorkStart: model.ClockPtr(model.MustClock("08:00")),
			WorkEnd:   model.ClockPtr(model.MustClock("17:45")),
		},
	}
	if err := mem.SaveIdentity(ctx, id); err != nil {
		t.Fatalf("SaveIdentity: %v", err)
	}
	if err := mem.EnrollSignature(ctx, dni, model.Signature{0, 0, 0, 0}, time.Now()); err != nil {
		t.Fatalf("EnrollSignature: %v", err)
	}
}

func mustStruct(t *testing.T, v any) *structpb.Struct {
	t.Helper()
	s, err := wire.ToStruct(v)
	if err != nil {
		t.Fatalf("ToStruct: %v", err)
	}
	return s
}

func TestGate_IdentifyThenRecordAction(t *testing.T) {
	conn, mem := newTestClient(t)
	seedEmployee(t, mem, "A100")
	client := grpcapi.NewGateClient(conn)
	ctx := context.Background()

	out, err := client.Identify(ctx, mustStruct(t, types.IdentifyRequest{Signature: []float64{0.1, 0, 0, 0}}))
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	var ident types.IdentifyResponse
	if err := wire.FromStruct(out, &ident); err != nil {
		t.Fatalf("FromStruct: %v", err)
	}
	if !ident.Authorized || ident.DNI != "A100" {
		t.Fatalf("expected A100 authorized, got %+v", ident)
	}

	out, err = client.RecordAction(ctx, mustStruct(t, types.AccessRequest{DNI: ident.DNI, Action: "entry"}))
	if err != nil {
		t.Fatalf("RecordAction: %v", err)
	}
	var access types.AccessResponse
	if err := wire.FromStruct(out, &access); err != nil {
		t.Fatalf("FromStruct: %v", err)
	}
	if !access.Success || access.Status != model.OutcomeApproved {
		t.Errorf("expected approved entry, got %+v", access)
	}

	out, err = client.RecordAction(ctx, mustStruct(t, types.AccessRequest{DNI: ident.DNI, Action: "entry"}))
	if err != nil {
		t.Fatalf("RecordAction: %v", err)
	}
	if err := wire.FromStruct(out, &access); err != nil {
		t.Fatalf("FromStruct: %v", err)
	}
	if access.Success || access.Reason != types.ReasonSessionAlreadyOpen {
		t.Errorf("expected session_already_open as a reply, got %+v", access)
	}
}

func TestGate_ErrorCodes(t *testing.T) {
	conn, _ := newTestClient(t)
	client := grpcapi.NewGateClient(conn)
	ctx := context.Background()

	_, err := client.RecordAction(ctx, mustStruct(t, types.AccessRequest{DNI: "NOPE", Action: "entry"}))
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}

	_, err = client.Identify(ctx, mustStruct(t, types.IdentifyRequest{Signature: []float64{1}}))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument for short signature, got %v", err)
	}

	bogus, _ := structpb.NewStruct(map[string]any{"card_id": "x"})
	_, err = client.Identify(ctx, bogus)
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument for unknown field, got %v", err)
	}
}

func TestHealth_Serving(t *testing.T) {
	conn, _ := newTestClient(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: grpcapi.ServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %s", resp.GetStatus())
	}
}
