package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/config"
	httpapi "github.com/Shady-Akhrass/rasras-plastic-sub001/internal/interfaces/http"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/repository"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/worker"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/workflow"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/pkg/database"
	"github.com/Shady-Akhrass/rasras-plastic-sub001/pkg/utils"
)

func main() {
	// Environment overrides from .env, if present
	gotenv.Load()

	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Approval Workflow Engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	workflowRepo := repository.NewWorkflowRepository(db.DB, logger)
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	actionRepo := repository.NewActionRepository(db.DB, logger)
	limitRepo := repository.NewLimitRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)

	// Initialize workflow engine
	engine := workflow.NewEngine(
		db,
		workflowRepo,
		requestRepo,
		actionRepo,
		userRepo,
		workflow.Options{
			IncludeInProgressPending: cfg.Approval.IncludeInProgressPending,
		},
		logger,
	)

	authority := workflow.NewAuthorityValidator(limitRepo, logger)

	// Start escalation scanner
	var scanner *worker.EscalationScanner
	if cfg.Approval.Escalation.Enabled {
		scanner = worker.NewEscalationScanner(
			requestRepo,
			workflowRepo,
			engine,
			workflow.SystemClock(),
			cfg.Approval.Escalation.ScanInterval,
			cfg.Approval.Escalation.BatchSize,
			logger,
		)
		if err := scanner.Start(context.Background()); err != nil {
			logger.Fatal("Failed to start escalation scanner", zap.Error(err))
		}
	}

	// Set Gin mode based on logger level
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers := httpapi.NewHandlers(engine, authority, workflowRepo, limitRepo, logger)
	router := httpapi.NewRouter(handlers, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if scanner != nil {
		scanner.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
