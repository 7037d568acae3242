package grpcapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/gatehouse/internal/wire"
)

type Dependencies struct {
	Logger      *slog.Logger
	Addr        string
	GateService *service.GateService
}

// Server hosts the Gate service and the standard health service.
type Server struct {
	addr   string
	logger *slog.Logger
	gate   *service.GateService
	grpc   *grpc.Server
	health *health.Server
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:   d.Addr,
		logger: logger,
		gate:   d.GateService,
		health: health.NewServer(),
	}

	s.grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(s.logUnary))
	RegisterGateServer(s.grpc, s)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return s
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	err := s.grpc.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Shutdown marks the server not serving and stops it gracefully, forcing
// the stop if ctx ends first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.grpc.Stop()
		return ctx.Err()
	}
}

func (s *Server) Identify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req types.IdentifyRequest
	if err := wire.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := s.gate.Identify(ctx, req)
	if err != nil {
		return nil, s.toStatus("identify", err)
	}
	return s.reply(resp)
}

// RecordAction returns denials as a normal reply with success=false, the
// same way the HTTP body carries them.
func (s *Server) RecordAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req types.AccessRequest
	if err := wire.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := s.gate.RecordAction(ctx, req)
	if err != nil {
		return nil, s.toStatus("record action", err)
	}
	return s.reply(resp)
}

func (s *Server) reply(v any) (*structpb.Struct, error) {
	out, err := wire.ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) toStatus(op string, err error) error {
	switch {
	case errors.Is(err, service.ErrStoreUnavailable):
		s.logger.Error(op+" failed", "err", err)
		return status.Error(codes.Unavailable, "the access store is unavailable, try again")
	case errors.Is(err, service.ErrUnknownIdentity):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInvalidDNI),
		errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, service.ErrInvalidIdentity),
		errors.Is(err, service.ErrInvalidTerminalID),
		errors.Is(err, model.ErrUnknownAction):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		s.logger.Error(op+" failed", "err", err)
		return status.Error(codes.Internal, "unexpected server error")
	}
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info("grpc request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"dur", time.Since(start).String(),
	)
	return resp, err
}
