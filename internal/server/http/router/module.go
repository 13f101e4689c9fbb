package router

import (
	"go.uber.org/fx"

	"github.com/perkwell/payout/internal/app"
	"github.com/perkwell/payout/internal/scheduler"
	"github.com/perkwell/payout/internal/server/http/handlers"
)

// Module registers HTTP router construction for the fx runtime.
var Module = fx.Options(
	fx.Provide(func(f *app.PayoutFacade) handlers.PayoutFacade { return f }),
	fx.Provide(func(s *scheduler.Scheduler) handlers.SettlementTrigger { return s }),
	fx.Provide(func(t *app.StatsTracker) handlers.StatsSource { return t }),
	fx.Provide(Setup),
)
