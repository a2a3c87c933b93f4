package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/equiply/workflow-service/internal/api/http"
	"github.com/equiply/workflow-service/internal/api/http/handlers"
	"github.com/equiply/workflow-service/internal/auth"
	"github.com/equiply/workflow-service/internal/config"
	"github.com/equiply/workflow-service/internal/events"
	"github.com/equiply/workflow-service/internal/observability"
	"github.com/equiply/workflow-service/internal/persistence"
	"github.com/equiply/workflow-service/internal/repository"
	"github.com/equiply/workflow-service/internal/repository/memory"
	"github.com/equiply/workflow-service/internal/service"
	"github.com/equiply/workflow-service/internal/worker"
	"github.com/equiply/workflow-service/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var store repository.Store
	if pool := pg.PoolHandle(); pool != nil {
		store = repository.NewPostgresStore(pool)
	} else {
		store = memory.NewStore()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventStatusChanged, metrics.TransitionRecorder())

	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Publisher:  redis.Client,
		Logger:     logger.Named("notifications"),
		Config:     cfg.Notification,
		Channel:    cfg.Workflow.EventsChannel,
	})
	workerDone := worker.StartNotificationWorker(ctx, notifications, logger)

	authService := service.NewAuthService(cfg.Auth, store.Repositories().Users, logger)
	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		Store:        store,
		Dispatcher:   dispatcher,
		Logger:       logger.Named("workflow"),
		ManagerScope: cfg.Workflow.ManagerScope,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Store:      store,
		Workflow:   workflowService,
		Dispatcher: dispatcher,
		Logger:     logger.Named("assignments"),
	})
	requestService := service.NewServiceRequestService(service.ServiceRequestDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger.Named("service_requests"),
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:            handlers.NewAuthHandler(authService),
		Workflow:        handlers.NewWorkflowHandler(workflowService),
		ServiceRequests: handlers.NewServiceRequestsHandler(requestService, workflowService, assignmentService),
		AuthMiddleware:  auth.NewAuthMiddleware(authService.TokenManager(), store.Repositories().Users),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-workerDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
