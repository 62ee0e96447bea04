package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-triage/internal/api/http"
	"github.com/spec-kit/ticket-triage/internal/api/http/handlers"
	"github.com/spec-kit/ticket-triage/internal/classifier"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/observability"
	"github.com/spec-kit/ticket-triage/internal/persistence"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/service"
	"github.com/spec-kit/ticket-triage/internal/worker"
)

func newServeCommand() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return fmt.Errorf("failed to connect postgres: %w", err)
			}
			defer pg.Close()

			if cfg.Postgres.RunMigrations {
				if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
					return fmt.Errorf("failed to run migrations: %w", err)
				}
			}

			redis := persistence.NewRedis(cfg.Redis, logger)
			defer redis.Close()

			var tickets repository.TicketRepository
			if pg.Enabled() {
				tickets = repository.NewTicketRepository(pg.PoolHandle())
			} else {
				tickets = repository.NewMemoryTicketRepository()
			}

			metrics := observability.NewMetrics()

			ticketClassifier, err := classifier.New(cfg.Classifier, logger, metrics)
			if err != nil {
				return err
			}

			dispatcher := events.NewInMemoryDispatcher()
			var publisher service.EventPublisher
			if redis.Enabled() {
				publisher = redis.Client
			}
			service.NewNotificationService(dispatcher, publisher, cfg.Redis.EventsChannel, logger).RegisterHandlers()

			statsLoc, err := time.LoadLocation(cfg.App.StatsTimezone)
			if err != nil {
				return fmt.Errorf("invalid stats timezone: %w", err)
			}
			ticketService := service.NewTicketService(service.TicketDependencies{
				TicketRepo:    tickets,
				Dispatcher:    dispatcher,
				Classifier:    ticketClassifier,
				StatsLocation: statsLoc,
				Logger:        logger,
			})

			reporter := worker.NewStatsReporter(ticketService, metrics, logger)
			if err := reporter.Start(cfg.Worker.StatsCron); err != nil {
				return err
			}
			defer reporter.Stop()

			app := fiber.New(fiber.Config{
				AppName:               cfg.App.Name,
				DisableStartupMessage: true,
			})
			httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
			httptransport.RegisterRoutes(app, httptransport.RouteConfig{
				Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
				Tickets: handlers.NewTicketsHandler(ticketService),
				Metrics: metrics,
			})

			listenErr := make(chan error, 1)
			go func() {
				logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
				listenErr <- app.Listen(cfg.App.Addr())
			}()

			select {
			case err := <-listenErr:
				return fmt.Errorf("fiber listen: %w", err)
			case sig := <-shutdownSignal():
				logger.Info("shutting down", zap.String("signal", sig.String()))
			}

			return app.ShutdownWithTimeout(shutdownTimeout)
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "Maximum time to wait for graceful shutdown")
	return cmd
}

func shutdownSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
