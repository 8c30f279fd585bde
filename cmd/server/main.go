package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/civicdesk/caseflow/internal/application/dispatcher"
	"github.com/civicdesk/caseflow/internal/application/engine"
	"github.com/civicdesk/caseflow/internal/application/service"
	"github.com/civicdesk/caseflow/internal/config"
	"github.com/civicdesk/caseflow/internal/infrastructure/definition"
	"github.com/civicdesk/caseflow/internal/infrastructure/persistence/repository"
	httpadapter "github.com/civicdesk/caseflow/internal/interfaces/http"
	"github.com/civicdesk/caseflow/internal/report"
	"github.com/civicdesk/caseflow/internal/worker"
	"github.com/civicdesk/caseflow/pkg/database"
	"github.com/civicdesk/caseflow/pkg/logging"
)

func main() {
	// Local overrides from .env, ignored when absent.
	_ = gotenv.Load()

	configPath := os.Getenv("CASEFLOW_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting caseflow service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("Failed to create data directory", zap.Error(err))
		}
	}

	db, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Workflow definitions are authored YAML, loaded once at startup.
	loader := definition.NewLoader()
	defs, err := loader.LoadAll(cfg.Workflow.DefinitionsDir)
	if err != nil {
		logger.Fatal("Failed to load workflow definitions", zap.Error(err))
	}
	registry, err := definition.NewRegistry(defs)
	if err != nil {
		logger.Fatal("Failed to index workflow definitions", zap.Error(err))
	}
	logger.Info("workflow definitions loaded", zap.Int("count", len(defs)))

	// Repositories
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	historyRepo := repository.NewHistoryRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	txManager := repository.NewTxManager(db)

	kv := logging.NewKV(logger)

	// Domain events stay in-process; subscribers attach here.
	events := dispatcher.New(kv)
	defer events.Close()

	// Application services
	eng := engine.New(registry, requestRepo, historyRepo, userRepo, txManager, kv,
		engine.WithDispatcher(events))
	queries := service.NewTaskQueryService(requestRepo, historyRepo, kv)
	exporter := report.NewRegisterExporter(requestRepo, registry, logger)

	// Background jobs
	scanner := worker.NewOverdueScanner(requestRepo, registry, events,
		cfg.Scheduler.OverdueScanSchedule, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := scanner.Start(ctx); err != nil {
		logger.Fatal("Failed to start overdue scanner", zap.Error(err))
	}
	defer scanner.Stop()

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, eng, queries, userRepo, exporter, kv)

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
