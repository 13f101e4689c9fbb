package repository

import (
	"context"
	"time"

	"github.com/perkwell/payout/internal/domain/model"
)

// WithdrawalRepository owns withdrawal rows and the balance coupling of
// every transition. Each status-changing operation is compare-and-swap
// guarded on the expected current status and returns ErrConflict when
// the row moved underfoot.
type WithdrawalRepository interface {
	// CreatePending inserts a pending external withdrawal and debits the
	// account balance in the same transaction (reservation).
	CreatePending(ctx context.Context, accountID, amount int64, method model.PayoutMethod, details model.PayoutDetails) (*model.Withdrawal, error)

	// CreateInternal executes the internal fast-path: inserts a completed
	// withdrawal, debits the primary balance and credits the yield balance
	// atomically. No transfer row is created.
	CreateInternal(ctx context.Context, accountID, amount int64) (*model.Withdrawal, error)

	GetByID(ctx context.Context, id int64) (*model.Withdrawal, error)
	ListByAccount(ctx context.Context, accountID int64) ([]model.Withdrawal, error)
	ListPending(ctx context.Context, limit int) ([]model.Withdrawal, error)

	// PeriodUsage sums non-rejected, non-failed withdrawal amounts inside
	// the rolling daily/weekly/monthly windows ending at now.
	PeriodUsage(ctx context.Context, accountID int64, now time.Time) (*model.PeriodUsage, error)

	// Approve moves pending->approved in one transaction: it snapshots
	// fee/net computed at decision time, inserts the pending fund
	// transfer and appends an audit entry. Either everything commits or
	// the withdrawal stays pending; an approved withdrawal without a
	// live transfer cannot exist.
	Approve(ctx context.Context, id int64, fee, net int64, actor, notes string, transfer *model.FundTransfer) (*model.FundTransfer, error)

	// Reject moves pending->rejected, restores the reserved balance in the
	// same transaction and appends an audit entry.
	Reject(ctx context.Context, id int64, actor, notes string) error

	AuditTrail(ctx context.Context, id int64) ([]model.AuditEntry, error)
}
