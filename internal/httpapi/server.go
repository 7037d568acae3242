// Package httpapi serves the gate over HTTP. Bodies are JSON by default;
// requests sent as application/x-protobuf carry a google.protobuf.Struct
// with the same field names and are answered in kind.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/service"
)

type Dependencies struct {
	Logger            *slog.Logger
	Addr              string
	GateService       *service.GateService
	EnrollmentService *service.EnrollmentService
	PassService       *service.PassService
	AlertService      *service.AlertService
	HeartbeatService  *service.HeartbeatService
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	gate       *service.GateService
	enrollment *service.EnrollmentService
	passes     *service.PassService
	alerts     *service.AlertService
	heartbeats *service.HeartbeatService
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		logger:     logger,
		gate:       d.GateService,
		enrollment: d.EnrollmentService,
		passes:     d.PassService,
		alerts:     d.AlertService,
		heartbeats: d.HeartbeatService,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/identify", s.handleIdentify)
		r.Post("/access", s.handleAccess)
		r.Get("/sessions", s.handleListSessions)

		r.Post("/identities", s.handleEnroll)
		r.Get("/identities", s.handleListIdentities)
		r.Get("/identities/{dni}", s.handleGetIdentity)
		r.Post("/identities/{dni}/status", s.handleSetStatus)

		r.Post("/passes", s.handleIssuePass)
		r.Get("/passes", s.handleListPasses)
		r.Post("/passes/{id}/revoke", s.handleRevokePass)

		r.Get("/alerts/exits", s.handleExitAlerts)
		r.Post("/terminals/heartbeat", s.handleHeartbeat)
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start serves until Shutdown, which is not reported as an error.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
