package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/perkwell/payout/internal/adapter/provider"
	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
	"github.com/perkwell/payout/internal/domain/repository"
	"github.com/perkwell/payout/internal/scheduler"
	"github.com/perkwell/payout/internal/usecase"
)

// ErrCallbackMismatch rejects a provider callback whose amount or
// reference does not match the stored transfer. Callbacks are untrusted
// input; nothing moves on a mismatch.
var ErrCallbackMismatch = errors.New("provider callback does not match stored transfer")

// PayoutFacade aggregates the operations exposed to HTTP handlers, the
// dispatcher and the settlement scheduler.
type PayoutFacade struct {
	withdrawals *usecase.WithdrawalUseCase
	revenue     *usecase.RevenueUseCase
	transfers   repository.TransferRepository
	schedules   repository.ScheduleRepository
	methods     repository.MethodRepository
	provider    provider.Client
	publisher   usecase.ChangePublisher
	logger      *slog.Logger
	maxRetries  int
	now         func() time.Time
}

// NewPayoutFacade constructs the application facade.
func NewPayoutFacade(
	withdrawals *usecase.WithdrawalUseCase,
	revenue *usecase.RevenueUseCase,
	factory repository.Factory,
	providerClient provider.Client,
	publisher usecase.ChangePublisher,
	logger *slog.Logger,
	maxRetries int,
) *PayoutFacade {
	return &PayoutFacade{
		withdrawals: withdrawals,
		revenue:     revenue,
		transfers:   factory.Transfers(),
		schedules:   factory.Schedules(),
		methods:     factory.Methods(),
		provider:    providerClient,
		publisher:   publisher,
		logger:      logger,
		maxRetries:  maxRetries,
		now:         time.Now,
	}
}

// --- member operations ---

func (f *PayoutFacade) Account(ctx context.Context, accountID int64) (*model.Account, error) {
	return f.withdrawals.Account(ctx, accountID)
}

func (f *PayoutFacade) SubmitWithdrawal(ctx context.Context, accountID, amount int64, method model.PayoutMethod, details model.PayoutDetails) (*model.Withdrawal, []usecase.Finding, error) {
	return f.withdrawals.Submit(ctx, accountID, amount, method, details)
}

func (f *PayoutFacade) Withdrawal(ctx context.Context, id int64) (*model.Withdrawal, error) {
	return f.withdrawals.Get(ctx, id)
}

func (f *PayoutFacade) WithdrawalHistory(ctx context.Context, accountID int64) ([]model.Withdrawal, error) {
	return f.withdrawals.History(ctx, accountID)
}

func (f *PayoutFacade) Methods(ctx context.Context) ([]model.MethodConfig, error) {
	return f.methods.List(ctx)
}

// --- admin operations ---

func (f *PayoutFacade) PendingWithdrawals(ctx context.Context, limit int) ([]model.Withdrawal, error) {
	return f.withdrawals.Pending(ctx, limit)
}

func (f *PayoutFacade) ApproveWithdrawal(ctx context.Context, id int64, actor, notes string) (*model.Withdrawal, error) {
	return f.withdrawals.Approve(ctx, id, actor, notes)
}

func (f *PayoutFacade) RejectWithdrawal(ctx context.Context, id int64, actor, notes string) (*model.Withdrawal, error) {
	return f.withdrawals.Reject(ctx, id, actor, notes)
}

func (f *PayoutFacade) BulkDecide(ctx context.Context, ids []int64, decision usecase.Decision, actor, notes string) (*usecase.BulkResult, error) {
	return f.withdrawals.BulkDecide(ctx, ids, decision, actor, notes)
}

func (f *PayoutFacade) AuditTrail(ctx context.Context, id int64) ([]model.AuditEntry, error) {
	return f.withdrawals.AuditTrail(ctx, id)
}

func (f *PayoutFacade) UpsertMethod(ctx context.Context, cfg *model.MethodConfig) error {
	return f.methods.Upsert(ctx, cfg)
}

func (f *PayoutFacade) Schedules(ctx context.Context) ([]model.SettlementSchedule, error) {
	return f.schedules.List(ctx)
}

// CreateSchedule stores a new settlement schedule. The next run is
// derived immediately so a malformed frequency or time-of-day is
// rejected at write time, not at the first tick.
func (f *PayoutFacade) CreateSchedule(ctx context.Context, s *model.SettlementSchedule) (*model.SettlementSchedule, error) {
	next, err := scheduler.NextRunAfter(s, f.now())
	if err != nil {
		return nil, err
	}
	s.NextRun = &next
	return f.schedules.Create(ctx, s)
}

func (f *PayoutFacade) UpdateSchedule(ctx context.Context, s *model.SettlementSchedule) error {
	next, err := scheduler.NextRunAfter(s, f.now())
	if err != nil {
		return err
	}
	s.NextRun = &next
	return f.schedules.Update(ctx, s)
}

func (f *PayoutFacade) Revenue(ctx context.Context, from, to time.Time) ([]model.RevenueLedgerEntry, error) {
	return f.revenue.List(ctx, from, to)
}

func (f *PayoutFacade) RollupRevenueDay(ctx context.Context, day time.Time) (*model.RevenueLedgerEntry, error) {
	return f.revenue.RollupDay(ctx, day)
}

// --- dispatcher gateway ---

func (f *PayoutFacade) SendTransfer(ctx context.Context, t model.FundTransfer) (*provider.Receipt, error) {
	return f.provider.Transfer(ctx, t)
}

func (f *PayoutFacade) AcknowledgeTransfer(ctx context.Context, id int64, providerRef string) error {
	if err := f.transfers.MarkAcknowledged(ctx, id, providerRef); err != nil {
		return err
	}
	f.publishTransfer(ctx, id)
	return nil
}

func (f *PayoutFacade) CompleteTransfer(ctx context.Context, id int64) error {
	if err := f.transfers.MarkSuccessful(ctx, id, f.now()); err != nil {
		return err
	}
	f.publishTransfer(ctx, id)
	return nil
}

func (f *PayoutFacade) RetryTransfer(ctx context.Context, id int64, errMsg string) error {
	if err := f.transfers.Requeue(ctx, id, errMsg); err != nil {
		return err
	}
	f.publishTransfer(ctx, id)
	return nil
}

func (f *PayoutFacade) FailTransfer(ctx context.Context, id int64, errMsg string) error {
	if err := f.transfers.MarkFailed(ctx, id, errMsg); err != nil {
		return err
	}
	f.publishTransfer(ctx, id)
	return nil
}

// RecoverAbandonedTransfers returns claimed-but-never-sent transfers to
// the pending queue. Called at startup, before the dispatcher runs.
func (f *PayoutFacade) RecoverAbandonedTransfers(ctx context.Context) error {
	n, err := f.transfers.RecoverOrphaned(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		f.logger.Warn("requeued abandoned transfers", slog.Int64("count", n))
	}
	return nil
}

// --- settlement scheduler ---

func (f *PayoutFacade) DueSchedules(ctx context.Context, now time.Time) ([]model.SettlementSchedule, error) {
	return f.schedules.ListDue(ctx, now)
}

func (f *PayoutFacade) Schedule(ctx context.Context, id int64) (*model.SettlementSchedule, error) {
	return f.schedules.Get(ctx, id)
}

func (f *PayoutFacade) PendingSettlementTotal(ctx context.Context) (int64, error) {
	return f.transfers.SumPending(ctx, model.TransferSourceWithdrawal)
}

func (f *PayoutFacade) ClaimSettlementBatch(ctx context.Context, limit int) ([]model.FundTransfer, error) {
	batch, err := f.transfers.ClaimBatch(ctx, model.TransferSourceWithdrawal, limit)
	if err != nil {
		return nil, err
	}
	for i := range batch {
		usecase.PublishChange(ctx, f.publisher, f.logger, model.TableTransfers, model.ChangeUpdate, nil, &batch[i])
	}
	return batch, nil
}

func (f *PayoutFacade) RecordScheduleRun(ctx context.Context, id int64, lastRun, nextRun time.Time) error {
	return f.schedules.SetRunTimes(ctx, id, lastRun, nextRun)
}

func (f *PayoutFacade) RollupRevenue(ctx context.Context, day time.Time) error {
	_, err := f.revenue.RollupDay(ctx, day)
	return err
}

// --- provider callback ---

// HandleProviderCallback applies a webhook verdict to a transfer. The
// callback is untrusted: reference and amount must match the stored row
// before any state moves. Duplicate verdicts on an already-terminal
// transfer are acknowledged without effect.
func (f *PayoutFacade) HandleProviderCallback(ctx context.Context, reference, providerRef, status string, amount int64) error {
	t, err := f.transfers.GetByReference(ctx, reference)
	if err != nil {
		return err
	}

	if amount != t.Net {
		return fmt.Errorf("amount %d for reference %s, stored net %d: %w", amount, reference, t.Net, ErrCallbackMismatch)
	}
	if t.ProviderRef != "" && providerRef != "" && providerRef != t.ProviderRef {
		return fmt.Errorf("provider ref %q for reference %s: %w", providerRef, reference, ErrCallbackMismatch)
	}

	switch status {
	case provider.StatusCompleted:
		if t.Status == model.TransferStatusSuccessful {
			return nil
		}
		err = f.CompleteTransfer(ctx, t.ID)
	case provider.StatusFailed:
		if t.Status == model.TransferStatusFailed {
			return nil
		}
		if t.RetryCount+1 >= f.maxRetries {
			err = f.FailTransfer(ctx, t.ID, "provider reported failure")
		} else {
			err = f.RetryTransfer(ctx, t.ID, "provider reported failure")
		}
	default:
		return fmt.Errorf("callback status %q: %w", status, ErrCallbackMismatch)
	}
	if err != nil {
		return err
	}

	f.logger.Info("provider callback applied",
		slog.String("reference", reference),
		slog.String("status", status),
	)
	return nil
}

// publishTransfer streams the current row state after a transfer
// mutation; missing rows are tolerated since the mutation already
// committed.
func (f *PayoutFacade) publishTransfer(ctx context.Context, id int64) {
	t, err := f.transfers.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domainErrors.ErrNotFound) {
			f.logger.Warn("load transfer for feed failed",
				slog.Int64("transfer_id", id),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	usecase.PublishChange(ctx, f.publisher, f.logger, model.TableTransfers, model.ChangeUpdate, nil, t)
}
