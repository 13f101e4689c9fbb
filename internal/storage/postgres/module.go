package postgres

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/perkwell/payout/internal/config"
	"github.com/perkwell/payout/internal/domain/repository"
)

// Module wires PostgreSQL storage and repository adapters.
var Module = fx.Options(
	fx.Provide(newStorage),
	fx.Provide(
		func(s *Storage) repository.Factory { return s },
		func(s *Storage) repository.AccountRepository { return s.Accounts() },
		func(s *Storage) repository.WithdrawalRepository { return s.Withdrawals() },
		func(s *Storage) repository.TransferRepository { return s.Transfers() },
		func(s *Storage) repository.MethodRepository { return s.Methods() },
		func(s *Storage) repository.ScheduleRepository { return s.Schedules() },
		func(s *Storage) repository.RevenueRepository { return s.Revenue() },
	),
	fx.Invoke(registerLifecycle),
)

type storageParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newStorage(p storageParams) (*Storage, error) {
	return New(p.Ctx, p.Config.DatabaseURI, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			storage.Close()
			return nil
		},
	})
}
