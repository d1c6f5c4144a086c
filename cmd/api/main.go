package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/kuiporro/pgf-fleet-workshop/internal/api/http"
	"github.com/kuiporro/pgf-fleet-workshop/internal/api/http/handlers"
	"github.com/kuiporro/pgf-fleet-workshop/internal/auth"
	"github.com/kuiporro/pgf-fleet-workshop/internal/config"
	"github.com/kuiporro/pgf-fleet-workshop/internal/events"
	"github.com/kuiporro/pgf-fleet-workshop/internal/observability"
	"github.com/kuiporro/pgf-fleet-workshop/internal/persistence"
	"github.com/kuiporro/pgf-fleet-workshop/internal/repository"
	"github.com/kuiporro/pgf-fleet-workshop/internal/service"
	"github.com/kuiporro/pgf-fleet-workshop/internal/worker"
	"github.com/kuiporro/pgf-fleet-workshop/internal/workshop"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	orderRepo := repository.NewWorkOrderRepository(pool)
	statusRepo := repository.NewStatusEventRepository(pool)
	pauseRepo := repository.NewPauseRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	evidenceRepo := repository.NewEvidenceRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	machine := workshop.NewStateMachine(workshop.StateMachineDependencies{
		WorkOrderRepo:   orderRepo,
		StatusEventRepo: statusRepo,
		PauseRepo:       pauseRepo,
		Tx:              repository.NewTxRunner(pool),
		Dispatcher:      dispatcher,
		Logger:          logger,
	})
	pauseLedger := workshop.NewPauseLedger(machine, pauseRepo)
	qaCycle := workshop.NewQAReviewCycle(machine, orderRepo)
	timelines := workshop.NewTimelineAggregator(workshop.TimelineDependencies{
		WorkOrderRepo:   orderRepo,
		StatusEventRepo: statusRepo,
		PauseRepo:       pauseRepo,
		CommentRepo:     commentRepo,
		EvidenceRepo:    evidenceRepo,
		Cache:           redis.Client,
		CacheTTL:        cfg.Timeline.CacheTTL(),
		SourceTimeout:   cfg.Timeline.SourceTimeout(),
		Logger:          logger,
	})

	notifications := service.NewNotificationService(dispatcher, timelines, logger, cfg.Notification)
	worker.StartNotificationWorker(notifications)

	authMiddleware := auth.NewMiddleware(auth.NewTokenManager(cfg.Auth.JWTSecret))

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		WorkOrders:     handlers.NewWorkOrdersHandler(machine, pauseLedger, qaCycle),
		Timeline:       handlers.NewTimelineHandler(timelines),
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
