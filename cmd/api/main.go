package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/evolution-fly/flight-service/internal/api/http"
	"github.com/evolution-fly/flight-service/internal/api/http/handlers"
	"github.com/evolution-fly/flight-service/internal/auth"
	"github.com/evolution-fly/flight-service/internal/config"
	"github.com/evolution-fly/flight-service/internal/events"
	"github.com/evolution-fly/flight-service/internal/observability"
	"github.com/evolution-fly/flight-service/internal/persistence"
	"github.com/evolution-fly/flight-service/internal/repository"
	"github.com/evolution-fly/flight-service/internal/service"
	"github.com/evolution-fly/flight-service/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	destinationRepo := repository.NewDestinationRepository(pool)
	requestRepo := repository.NewFlightRequestRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)
	denylist := service.NewTokenDenylist(redis.Client)
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(cfg.Auth, userRepo, denylist)
	destinationService := service.NewDestinationService(destinationRepo, redis.Client, logger)
	requestService := service.NewFlightRequestService(service.FlightRequestDependencies{
		RequestRepo:     requestRepo,
		DestinationRepo: destinationRepo,
		Dispatcher:      dispatcher,
		Metrics:         metrics,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	reminderWorker := worker.NewReminderWorker(requestService, cfg.Notification, logger)
	go reminderWorker.Run(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, denylist)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Destinations:   handlers.NewDestinationsHandler(destinationService),
		FlightRequests: handlers.NewFlightRequestsHandler(requestService),
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
