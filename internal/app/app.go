package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/perkwell/payout/internal/adapter/provider"
	"github.com/perkwell/payout/internal/config"
	"github.com/perkwell/payout/internal/dispatcher"
	"github.com/perkwell/payout/internal/domain/repository"
	"github.com/perkwell/payout/internal/feed"
	"github.com/perkwell/payout/internal/metrics"
	"github.com/perkwell/payout/internal/scheduler"
	"github.com/perkwell/payout/internal/storage/postgres"
	"github.com/perkwell/payout/internal/usecase"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		newFacade,
		newPublisher,
		NewStatsTracker,
		newHTTPServer,
		newMetricsServer,
		newDispatcher,
		newScheduler,
		newFeed,
	),
	fx.Invoke(registerLifecycle),
)

type facadeParams struct {
	fx.In

	Withdrawals *usecase.WithdrawalUseCase
	Revenue     *usecase.RevenueUseCase
	Factory     repository.Factory
	Provider    provider.Client
	Publisher   usecase.ChangePublisher
	Logger      *slog.Logger
	Config      *config.Config
}

func newFacade(p facadeParams) *PayoutFacade {
	return NewPayoutFacade(
		p.Withdrawals,
		p.Revenue,
		p.Factory,
		p.Provider,
		p.Publisher,
		p.Logger,
		p.Config.MaxRetries,
	)
}

// newPublisher binds the change feed transport for the usecases.
// Without redis, publishing is a no-op and consumers fall back to the
// reconciliation poll.
func newPublisher(client *redis.Client) usecase.ChangePublisher {
	if client == nil {
		return usecase.NopPublisher{}
	}
	return feed.NewRedisPublisher(client)
}

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type opsServerResult struct {
	fx.Out

	Server *http.Server `name:"ops"`
}

func newMetricsServer(cfg *config.Config, storage *postgres.Storage) opsServerResult {
	return opsServerResult{Server: metrics.NewServer(cfg.MetricsAddress, storage.HealthCheck)}
}

func newDispatcher(facade *PayoutFacade, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *dispatcher.Dispatcher {
	return dispatcher.New(
		facade,
		cfg.WorkerPoolSize,
		cfg.MaxRetries,
		cfg.ProviderTimeout,
		m,
		logger,
	)
}

func newScheduler(facade *PayoutFacade, d *dispatcher.Dispatcher, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *scheduler.Scheduler {
	return scheduler.New(facade, d, cfg.DispatchBatch, m, logger)
}

// newFeed wires the in-process stats consumer onto the change stream.
// Without a stream the feed is nil and only the reconciliation poll
// inside registerLifecycle keeps the stats fresh.
func newFeed(stream feed.Stream, tracker *StatsTracker, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *feed.Feed {
	if stream == nil {
		return nil
	}
	return feed.New(stream, feed.Options{
		Handler:        tracker.HandleEvent,
		Reconcile:      tracker.Refresh,
		ReconnectDelay: cfg.FeedReconnectDelay,
		PollInterval:   cfg.FeedPollInterval,
		OnReconnect:    m.FeedReconnects.Inc,
	}, logger)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Facade     *PayoutFacade
	Server     *http.Server
	OpsServer  *http.Server `name:"ops"`
	Dispatcher *dispatcher.Dispatcher
	Scheduler  *scheduler.Scheduler
	Feed       *feed.Feed
	Tracker    *StatsTracker
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	// Long-running components outlive the startup context.
	runCtx := context.Background()

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting payout service",
				slog.String("addr", p.Server.Addr),
				slog.String("ops_addr", p.OpsServer.Addr),
			)

			if err := p.Tracker.Refresh(ctx); err != nil {
				p.Logger.Warn("initial stats refresh failed", slog.String("error", err.Error()))
			}

			// Rows stranded in processing by a previous crash would block
			// their withdrawals forever behind the live-transfer index.
			if err := p.Facade.RecoverAbandonedTransfers(ctx); err != nil {
				return err
			}

			p.Dispatcher.Start(runCtx)
			if err := p.Scheduler.Start(runCtx); err != nil {
				return err
			}
			if p.Feed != nil {
				p.Feed.Start(runCtx)
			}

			go func() {
				if err := p.OpsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("ops server terminated", slog.String("error", err.Error()))
				}
			}()
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Scheduler.Stop()
			p.Dispatcher.Stop()
			if p.Feed != nil {
				p.Feed.Stop()
			}

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.OpsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				p.Logger.Warn("ops server shutdown failed", slog.String("error", err.Error()))
			}
			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("payout service stopped")
			return nil
		},
	})
}
