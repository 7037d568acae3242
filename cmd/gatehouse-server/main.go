package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/BrandonDHaskell/gatehouse/internal/config"
	"github.com/BrandonDHaskell/gatehouse/internal/db"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/matcher"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/policy"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store/memory"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store/postgres"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store/sqlite"
	"github.com/BrandonDHaskell/gatehouse/internal/grpcapi"
	"github.com/BrandonDHaskell/gatehouse/internal/httpapi"
	"github.com/BrandonDHaskell/gatehouse/internal/logging"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gatehouse-server: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath string
		httpAddr   string
		grpcAddr   string
		driver     string
		logLevel   string
	)
	flags := pflag.NewFlagSet("gatehouse-server", pflag.ContinueOnError)
	flags.StringVarP(&configPath, "config", "c", "", "path to the YAML config file (default $GATEHOUSE_CONFIG or ./gatehouse.yaml)")
	flags.StringVar(&httpAddr, "http-addr", "", "HTTP listen address, overrides the config")
	flags.StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address, overrides the config")
	flags.StringVar(&driver, "store", "", "store driver: sqlite, postgres or memory")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if grpcAddr != "" {
		cfg.GRPCAddr = grpcAddr
	}
	if driver != "" {
		cfg.Store.Driver = driver
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	registry := service.NewTerminalRegistry(stores.Terminals, cfg.Terminals.Enforce)
	if err := registry.Commission(ctx, cfg.Terminals.Known...); err != nil {
		return err
	}

	m, err := matcher.New(cfg.Match.Threshold)
	if err != nil {
		return fmt.Errorf("matcher: %w", err)
	}
	pol, err := policy.New(policy.Config{
		EntryLead:  cfg.EntryLead(),
		ExitGrace:  cfg.ExitGrace(),
		VisitGrace: cfg.VisitGrace(),
	})
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	gateSvc, err := service.NewGateService(stores, registry, service.GateConfig{
		Matcher:         m,
		Policy:          pol,
		SignatureLength: cfg.Match.SignatureLength,
		Location:        loc,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	enrollSvc := service.NewEnrollmentService(stores.Identities, cfg.Match.SignatureLength, loc)
	passSvc := service.NewPassService(stores.Passes, stores.Identities, loc)
	alertSvc := service.NewAlertService(stores.Identities, cfg.ExitLookahead(), loc)
	heartbeatSvc := service.NewHeartbeatService(stores.Heartbeats, registry)

	sweepers := []*service.Sweeper{
		service.NewSweeper("pass-expiry", cfg.PassSweepInterval(), passSvc.ExpireDue, logger),
		service.NewSweeper("heartbeat-prune", cfg.HeartbeatPruneInterval(),
			service.HeartbeatPruneFunc(stores.Heartbeats, cfg.HeartbeatRetention()), logger),
	}
	for _, s := range sweepers {
		s.Start(ctx)
	}
	defer func() {
		for _, s := range sweepers {
			s.Stop()
		}
	}()

	httpSrv := httpapi.NewServer(httpapi.Dependencies{
		Logger:            logger,
		Addr:              cfg.HTTPAddr,
		GateService:       gateSvc,
		EnrollmentService: enrollSvc,
		PassService:       passSvc,
		AlertService:      alertSvc,
		HeartbeatService:  heartbeatSvc,
	})
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.Start(); err != nil {
			logger.Error("http server", "err", err)
			stop()
		}
	}()

	var grpcSrv *grpcapi.Server
	if cfg.GRPCAddr != "" {
		grpcSrv = grpcapi.NewServer(grpcapi.Dependencies{
			Logger:      logger,
			Addr:        cfg.GRPCAddr,
			GateService: gateSvc,
		})
		go func() {
			logger.Info("grpc listening", "addr", cfg.GRPCAddr)
			if err := grpcSrv.Start(); err != nil {
				logger.Error("grpc server", "err", err)
				stop()
			}
		}()
	}

	logger.Info("gatehouse started",
		"env", cfg.Env,
		"store", cfg.Store.Driver,
		"timezone", loc.String(),
		"enforce_terminals", registry.Enforcing(),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	if grpcSrv != nil {
		if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("grpc shutdown", "err", err)
		}
	}
	return nil
}

// openStores selects the persistence backend. The returned func releases
// it and must be called once the servers have stopped.
func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Stores, func(), error) {
	switch cfg.Store.Driver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on exit")
		return memory.New().Stores(), func() {}, nil

	case "postgres":
		conn, err := postgres.Open(ctx, cfg.Store.DSN)
		if err != nil {
			return store.Stores{}, nil, err
		}
		if err := postgres.Migrate(ctx, conn); err != nil {
			_ = conn.Close()
			return store.Stores{}, nil, err
		}
		return postgres.NewStores(conn), func() { _ = conn.Close() }, nil

	default:
		conn, err := db.Open(ctx, db.Config{Path: cfg.Store.Path, Env: cfg.Env})
		if err != nil {
			return store.Stores{}, nil, err
		}
		if v, err := db.SchemaVersion(ctx, conn); err == nil {
			logger.Info("sqlite ready", "path", cfg.Store.Path, "schema_version", v)
		}
		if cfg.Env == "dev" {
			if err := db.SeedDev(ctx, conn, db.SeedDevOptions{
				Terminals:       cfg.Terminals.Known,
				SignatureLength: cfg.Match.SignatureLength,
			}); err != nil {
				_ = conn.Close()
				return store.Stores{}, nil, err
			}
			logger.Info("seeded dev data", "dni", db.DevIdentityDNI)
		}
		writer := db.NewWorker(conn)
		return sqlite.NewStores(conn, writer), func() {
			writer.Close()
			_ = conn.Close()
		}, nil
	}
}
