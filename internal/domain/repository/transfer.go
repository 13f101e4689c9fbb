package repository

import (
	"context"
	"time"

	"github.com/perkwell/payout/internal/domain/model"
)

// TransferRepository manages provider-facing fund transfers. Operations
// that change a terminal transfer status also move the parent withdrawal
// in the same transaction, keeping the two statuses coherent.
type TransferRepository interface {
	// Create inserts a pending transfer. A partial unique index keeps at
	// most one live (pending or processing) transfer per withdrawal;
	// violations surface as ErrTransferInFlight.
	Create(ctx context.Context, t *model.FundTransfer) (*model.FundTransfer, error)

	GetByID(ctx context.Context, id int64) (*model.FundTransfer, error)
	GetByReference(ctx context.Context, reference string) (*model.FundTransfer, error)

	// SumPending returns the aggregate net amount of pending transfers for
	// the given source.
	SumPending(ctx context.Context, source model.TransferSource) (int64, error)

	// ClaimBatch selects up to limit pending transfers with
	// FOR UPDATE SKIP LOCKED, marks them processing together with their
	// parent withdrawals, and returns the claimed rows.
	ClaimBatch(ctx context.Context, source model.TransferSource, limit int) ([]model.FundTransfer, error)

	// MarkAcknowledged records the provider reference once the provider
	// accepted the transfer.
	MarkAcknowledged(ctx context.Context, id int64, providerRef string) error

	// MarkSuccessful finishes a transfer and completes its parent
	// withdrawal atomically.
	MarkSuccessful(ctx context.Context, id int64, settledAt time.Time) error

	// Requeue returns a failed attempt to pending with an incremented
	// retry count, keeping the error message for audit.
	Requeue(ctx context.Context, id int64, errMsg string) error

	// MarkFailed terminally fails transfer and withdrawal and restores the
	// account's reserved points, all in one transaction.
	MarkFailed(ctx context.Context, id int64, errMsg string) error

	// RecoverOrphaned returns processing transfers that never received a
	// provider reference to pending, so the live-transfer unique index
	// cannot block their withdrawals after a crash. Reports how many
	// rows were requeued.
	RecoverOrphaned(ctx context.Context) (int64, error)
}
