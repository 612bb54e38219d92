package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/deskflow/request-portal/internal/api/http"
	"github.com/deskflow/request-portal/internal/api/http/handlers"
	"github.com/deskflow/request-portal/internal/auth"
	"github.com/deskflow/request-portal/internal/config"
	"github.com/deskflow/request-portal/internal/events"
	"github.com/deskflow/request-portal/internal/observability"
	"github.com/deskflow/request-portal/internal/persistence"
	"github.com/deskflow/request-portal/internal/repository"
	"github.com/deskflow/request-portal/internal/service"
	"github.com/deskflow/request-portal/internal/worker"
	"github.com/deskflow/request-portal/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	dependencies := map[string]handlers.Pinger{}
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pool)
		dependencies["postgres"] = pg
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		store = repository.NewMemoryStore()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	dependencies["redis"] = redis

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, redis, logger, cfg.Notification)
	worker.StartNotificationWorker(dispatcher, notificationService, metrics, logger)

	deps := service.Dependencies{
		Store:      store,
		Machine:    workflow.NewMachine(),
		Dispatcher: dispatcher,
		Logger:     logger,
	}
	projectService := service.NewProjectService(deps)
	requestService := service.NewRequestService(deps, projectService)
	ticketService := service.NewTicketService(deps)
	transferService := service.NewTransferService(deps, cfg.Workflow.TransferTitleFormat)
	commentService := service.NewCommentService(deps, cfg.Workflow.ResponseTokenTTL())

	users := store.Repos().Users
	authService := service.NewAuthService(cfg.Auth, users, logger)
	if err := authService.EnsureBootstrapUser(ctx, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPassword); err != nil {
		logger.Fatal("failed to bootstrap management account", zap.Error(err))
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), users)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, dependencies),
		Auth:           handlers.NewAuthHandler(authService),
		Requests:       handlers.NewRequestsHandler(requestService, projectService, transferService),
		Tickets:        handlers.NewTicketsHandler(ticketService, transferService),
		Projects:       handlers.NewProjectsHandler(projectService),
		Comments:       handlers.NewCommentsHandler(commentService),
		Transfers:      handlers.NewTransfersHandler(transferService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
