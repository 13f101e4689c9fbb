package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
	"github.com/perkwell/payout/internal/domain/repository"
)

// WithdrawalUseCase owns the withdrawal lifecycle from submission to a
// terminal state. Every transition is compare-and-swap guarded in the
// repository and coupled with its balance movement in one transaction.
type WithdrawalUseCase struct {
	accounts    repository.AccountRepository
	withdrawals repository.WithdrawalRepository
	methods     repository.MethodRepository
	validator   *Validator
	publisher   ChangePublisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewWithdrawalUseCase constructs the withdrawal state machine use case.
func NewWithdrawalUseCase(
	factory repository.Factory,
	validator *Validator,
	publisher ChangePublisher,
	logger *slog.Logger,
) *WithdrawalUseCase {
	return &WithdrawalUseCase{
		accounts:    factory.Accounts(),
		withdrawals: factory.Withdrawals(),
		methods:     factory.Methods(),
		validator:   validator,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit validates a draft and creates the withdrawal. External methods
// produce a pending row with the amount reserved from the balance;
// internal transfers short-circuit straight to completed, moving points
// to the yield balance in the same transaction.
func (u *WithdrawalUseCase) Submit(ctx context.Context, accountID, amount int64, method model.PayoutMethod, details model.PayoutDetails) (*model.Withdrawal, []Finding, error) {
	cfg, err := u.methods.Get(ctx, method)
	if err != nil {
		return nil, nil, fmt.Errorf("load method config: %w", err)
	}

	account, err := u.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("load account: %w", err)
	}

	usage, err := u.withdrawals.PeriodUsage(ctx, accountID, u.now())
	if err != nil {
		return nil, nil, fmt.Errorf("load period usage: %w", err)
	}

	findings := u.validator.Validate(Draft{
		Account: account,
		Amount:  amount,
		Method:  method,
		Details: details,
		Usage:   *usage,
		Now:     u.now(),
	}, cfg)
	if HasErrors(findings) {
		return nil, findings, &ValidationError{Findings: findings}
	}

	var w *model.Withdrawal
	if method.External() {
		w, err = u.withdrawals.CreatePending(ctx, accountID, amount, method, details)
	} else {
		w, err = u.withdrawals.CreateInternal(ctx, accountID, amount)
	}
	if err != nil {
		return nil, findings, err
	}

	u.logger.Info("withdrawal submitted",
		slog.Int64("withdrawal_id", w.ID),
		slog.Int64("account_id", accountID),
		slog.Int64("amount", amount),
		slog.String("method", string(method)),
		slog.String("status", string(w.Status)),
	)
	PublishChange(ctx, u.publisher, u.logger, model.TableWithdrawals, model.ChangeInsert, nil, w)
	return w, findings, nil
}

// Approve moves a pending withdrawal to approved. Fee and net are
// recomputed from the current method configuration at decision time, not
// reused from submission, since rates may have changed. Validation runs
// again here as defense in depth before any money can move.
func (u *WithdrawalUseCase) Approve(ctx context.Context, id int64, actor, notes string) (*model.Withdrawal, error) {
	w, err := u.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != model.WithdrawalStatusPending {
		return nil, fmt.Errorf("approve withdrawal %d: %w", id, domainErrors.ErrConflict)
	}

	cfg, err := u.methods.Get(ctx, w.Method)
	if err != nil {
		return nil, fmt.Errorf("load method config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("approve withdrawal %d: %w", id, domainErrors.ErrMethodDisabled)
	}

	fee, net, err := ComputeFee(w.Amount, cfg)
	if err != nil {
		return nil, fmt.Errorf("compute fee: %w", err)
	}

	transfer := &model.FundTransfer{
		Reference:    uuid.NewString(),
		WithdrawalID: &id,
		Source:       model.TransferSourceWithdrawal,
		Amount:       w.Amount,
		Fee:          fee,
		Net:          w.Amount - fee,
	}
	switch v := w.Details.Variant(w.Method).(type) {
	case *model.BankDetails:
		transfer.RecipientAcct = v.AccountNumber
		transfer.RecipientBank = v.BankCode
	case *model.CryptoDetails:
		transfer.RecipientAcct = v.Address
		transfer.RecipientBank = v.Network
	case *model.GiftCardDetails:
		transfer.RecipientAcct = v.DeliveryEmail
		transfer.RecipientBank = v.SKU
	}

	// Status flip and transfer insert share one transaction: a failure
	// on either side leaves the withdrawal pending and re-approvable.
	created, err := u.withdrawals.Approve(ctx, id, fee, net, actor, notes, transfer)
	if err != nil {
		return nil, err
	}

	updated, err := u.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.logger.Info("withdrawal approved",
		slog.Int64("withdrawal_id", id),
		slog.String("actor", actor),
		slog.Int64("fee", fee),
		slog.Int64("net", net),
		slog.String("transfer_ref", created.Reference),
	)
	PublishChange(ctx, u.publisher, u.logger, model.TableWithdrawals, model.ChangeUpdate, w, updated)
	PublishChange(ctx, u.publisher, u.logger, model.TableTransfers, model.ChangeInsert, nil, created)
	return updated, nil
}

// Reject moves a pending withdrawal to rejected and restores the
// reserved points in the same transaction.
func (u *WithdrawalUseCase) Reject(ctx context.Context, id int64, actor, notes string) (*model.Withdrawal, error) {
	w, err := u.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != model.WithdrawalStatusPending {
		return nil, fmt.Errorf("reject withdrawal %d: %w", id, domainErrors.ErrConflict)
	}

	if err := u.withdrawals.Reject(ctx, id, actor, notes); err != nil {
		return nil, err
	}

	updated, err := u.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.logger.Info("withdrawal rejected",
		slog.Int64("withdrawal_id", id),
		slog.String("actor", actor),
	)
	PublishChange(ctx, u.publisher, u.logger, model.TableWithdrawals, model.ChangeUpdate, w, updated)
	return updated, nil
}

// Get returns one withdrawal.
func (u *WithdrawalUseCase) Get(ctx context.Context, id int64) (*model.Withdrawal, error) {
	return u.withdrawals.GetByID(ctx, id)
}

// History returns an account's withdrawals, newest first.
func (u *WithdrawalUseCase) History(ctx context.Context, accountID int64) ([]model.Withdrawal, error) {
	return u.withdrawals.ListByAccount(ctx, accountID)
}

// Pending returns requests awaiting an admin decision.
func (u *WithdrawalUseCase) Pending(ctx context.Context, limit int) ([]model.Withdrawal, error) {
	return u.withdrawals.ListPending(ctx, limit)
}

// AuditTrail returns the immutable transition log of a withdrawal.
func (u *WithdrawalUseCase) AuditTrail(ctx context.Context, id int64) ([]model.AuditEntry, error) {
	return u.withdrawals.AuditTrail(ctx, id)
}

// Account returns the member account with both balances.
func (u *WithdrawalUseCase) Account(ctx context.Context, accountID int64) (*model.Account, error) {
	return u.accounts.GetByID(ctx, accountID)
}
