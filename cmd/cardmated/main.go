package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/cardmate/internal/async"
	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/export"
	"github.com/joseph-ayodele/cardmate/internal/extract"
	"github.com/joseph-ayodele/cardmate/internal/ingest"
	repo "github.com/joseph-ayodele/cardmate/internal/repository"
	svc "github.com/joseph-ayodele/cardmate/internal/server"
	"github.com/joseph-ayodele/cardmate/internal/services/auth"
	"github.com/joseph-ayodele/cardmate/internal/services/cards"
	ingestsvc "github.com/joseph-ayodele/cardmate/internal/services/ingest"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := svc.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err, "driver", cfg.Database.Driver)
		os.Exit(1)
	}
	defer db.Close(logger)

	if err := svc.PingDB(ctx, db, logger, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	engine, err := extract.NewEngineFromConfig(cfg.OCR, logger)
	if err != nil {
		logger.Error("failed to build extraction engine", "error", err)
		os.Exit(1)
	}

	usersRepo := repo.NewUserRepository(db, logger)
	cardsRepo := repo.NewCardRepository(db, logger)
	jobsRepo := repo.NewScanJobRepository(db, logger)

	authService := auth.NewService(usersRepo, cfg.Auth.Secret, cfg.Auth.TokenTTL, logger)
	cardService, err := cards.NewService(engine, cardsRepo, jobsRepo, logger)
	if err != nil {
		logger.Error("failed to build card service", "error", err)
		os.Exit(1)
	}
	exportService := export.NewService(cardsRepo, logger)

	queue := async.NewScanQueue(func(ctx context.Context, job async.Job) error {
		_, err := cardService.Scan(ctx, job.UserID, job.Path, cards.ScanOptions{SkipDuplicates: !job.Force})
		return err
	}, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(cfg.Server.ScanTimeout),
	)

	if cfg.Ingest.WatchDir != "" {
		ingestService := ingestsvc.NewService(ingest.NewFSIngestor(jobsRepo, logger), usersRepo, queue, logger)
		go func() {
			err := ingestService.Watch(ctx, ingestsvc.WatchRequest{
				UserEmail:   cfg.Ingest.WatchEmail,
				Root:        cfg.Ingest.WatchDir,
				Debounce:    cfg.Ingest.Debounce,
				InitialScan: true,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watch folder stopped", "dir", cfg.Ingest.WatchDir, "error", err)
			}
		}()
	}

	deps := svc.Deps{Auth: authService, Cards: cardService, Export: exportService, DB: db}

	var httpServer *http.Server
	if cfg.Server.HTTPAddr != "" {
		api := svc.NewHTTPServer(deps, svc.HTTPConfig{
			MaxUploadBytes:   cfg.Server.MaxUploadBytes,
			MaxConcurrentOCR: cfg.Server.MaxConcurrentOCR,
			RateEvery:        cfg.Server.RateEvery,
			RateBurst:        cfg.Server.RateBurst,
			ScanTimeout:      cfg.Server.ScanTimeout,
		}, logger)
		go api.CleanupLimiters(ctx, 5*time.Minute)

		httpServer = &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
			MaxHeaderBytes:    1 << 20,
		}
		logger.Info("cardmate http listening", "addr", cfg.Server.HTTPAddr)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http serve error", "error", err)
				os.Exit(1)
			}
		}()
	}

	var grpcServer *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(
			svc.LoggingInterceptor(logger),
			svc.AuthInterceptor(authService, logger),
		))
		svc.RegisterCardServiceServer(grpcServer, svc.NewCardService(cardService, "", logger))

		// Register gRPC health service
		healthServer := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		// Reflection for grpcurl
		reflection.Register(grpcServer)

		logger.Info("cardmate grpc listening", "addr", cfg.Server.GRPCAddr)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC serve error", "error", err)
				os.Exit(1)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
