package di

import (
	"go.uber.org/fx"

	"github.com/perkwell/payout/internal/adapter/provider"
	"github.com/perkwell/payout/internal/app"
	"github.com/perkwell/payout/internal/config"
	"github.com/perkwell/payout/internal/feed"
	"github.com/perkwell/payout/internal/logger"
	"github.com/perkwell/payout/internal/metrics"
	"github.com/perkwell/payout/internal/server/http/router"
	"github.com/perkwell/payout/internal/storage/postgres"
	"github.com/perkwell/payout/internal/usecase"
)

// Module assembles the full application graph.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		postgres.Module,
		provider.Module,
		feed.Module,
		usecase.Module,
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
