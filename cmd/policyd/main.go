package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/policy-intake/internal/bootstrap"
	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/export"
	"github.com/joseph-ayodele/policy-intake/internal/ingest"
	"github.com/joseph-ayodele/policy-intake/internal/pipeline"
	repo "github.com/joseph-ayodele/policy-intake/internal/repository"
	"github.com/joseph-ayodele/policy-intake/internal/server"
	"github.com/joseph-ayodele/policy-intake/internal/submit"
)

func main() {
	configPath := flag.String("config", os.Getenv("POLICY_CONFIG"), "optional YAML config file")
	jsonLogs := flag.Bool("json", false, "log as JSON")
	flag.Parse()

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if *jsonLogs {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	velneoClient := bootstrap.VelneoClient(cfg.Velneo, logger)
	masterCache := bootstrap.MasterDataCache(ctx, cfg.Redis, logger)
	if masterCache != nil {
		defer func() { _ = masterCache.Close() }()
	}
	loader, err := bootstrap.Loader(cfg, velneoClient, masterCache, logger)
	if err != nil {
		logger.Error("failed to configure master data", "error", err)
		os.Exit(2)
	}
	loadCtx, cancel := context.WithTimeout(ctx, time.Minute)
	vocab, err := loader.Load(loadCtx)
	cancel()
	if err != nil {
		logger.Error("failed to load master data", "error", err)
		os.Exit(1)
	}
	core := bootstrap.NewCore(vocab, cfg.Validation, logger)

	sessionsRepo := repo.NewSessionRepository(store.Driver, logger)
	documentsRepo := repo.NewDocumentRepository(store.Driver, logger)
	submissionsRepo := repo.NewSubmissionRepository(store.Driver, logger)

	ingestor := ingest.NewIngestor(documentsRepo, ingest.DirStore{Root: cfg.Upload.Dir}, ingest.Limits{
		MaxBytes: cfg.Upload.MaxBytes,
		MaxPages: cfg.Upload.MaxPages,
	}, logger)
	processor := pipeline.NewProcessor(bootstrap.DocAIClient(cfg.DocAI, logger), core.Reconciler, documentsRepo, ingestor, logger)

	registry := server.NewRegistry(core.Machine, sessionsRepo, cfg.Server.SessionTTL, logger)
	go registry.RunEvictor(ctx, 10*time.Minute)

	svc := server.NewWizardService(server.Deps{
		Machine:    core.Machine,
		Reconciler: core.Reconciler,
		Sessions:   registry,
		Directory:  velneoClient,
		Uploads:    ingestor,
		Processor:  processor,
		Submitter:  submit.NewService(velneoClient, submissionsRepo, logger),
		Exporter:   export.NewService(submissionsRepo, logger),
	}, logger)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(server.UnaryInterceptor(logger)))
	healthServer := server.Register(grpcServer, svc)
	reflection.Register(grpcServer)

	logger.Info("policyd listening", "addr", addr)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	healthServer.Shutdown()
	grpcServer.GracefulStop()
	logger.Info("policyd stopped")
}
