package handlers

import (
	"context"
	"time"

	"github.com/perkwell/payout/internal/app"
	"github.com/perkwell/payout/internal/domain/model"
	"github.com/perkwell/payout/internal/usecase"
)

// AccountFacade describes the member-facing operations used by handlers.
type AccountFacade interface {
	Account(ctx context.Context, accountID int64) (*model.Account, error)
	SubmitWithdrawal(ctx context.Context, accountID, amount int64, method model.PayoutMethod, details model.PayoutDetails) (*model.Withdrawal, []usecase.Finding, error)
	Withdrawal(ctx context.Context, id int64) (*model.Withdrawal, error)
	WithdrawalHistory(ctx context.Context, accountID int64) ([]model.Withdrawal, error)
	Methods(ctx context.Context) ([]model.MethodConfig, error)
}

// AdminFacade describes the admin operations used by handlers.
type AdminFacade interface {
	PendingWithdrawals(ctx context.Context, limit int) ([]model.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, id int64, actor, notes string) (*model.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, id int64, actor, notes string) (*model.Withdrawal, error)
	BulkDecide(ctx context.Context, ids []int64, decision usecase.Decision, actor, notes string) (*usecase.BulkResult, error)
	AuditTrail(ctx context.Context, id int64) ([]model.AuditEntry, error)
	UpsertMethod(ctx context.Context, cfg *model.MethodConfig) error
	Schedules(ctx context.Context) ([]model.SettlementSchedule, error)
	CreateSchedule(ctx context.Context, s *model.SettlementSchedule) (*model.SettlementSchedule, error)
	UpdateSchedule(ctx context.Context, s *model.SettlementSchedule) error
	Revenue(ctx context.Context, from, to time.Time) ([]model.RevenueLedgerEntry, error)
	RollupRevenueDay(ctx context.Context, day time.Time) (*model.RevenueLedgerEntry, error)
}

// CallbackFacade applies provider webhook verdicts.
type CallbackFacade interface {
	HandleProviderCallback(ctx context.Context, reference, providerRef, status string, amount int64) error
}

// PayoutFacade aggregates the full set of operations used across handlers.
type PayoutFacade interface {
	AccountFacade
	AdminFacade
	CallbackFacade
}

// SettlementTrigger fires a settlement run outside its schedule.
type SettlementTrigger interface {
	RunNow(ctx context.Context, scheduleID int64) error
}

// StatsSource exposes the feed-derived pipeline stats.
type StatsSource interface {
	Snapshot() app.PipelineStats
}
