package model

import "time"

// TransferStatus describes provider-facing transfer lifecycle.
type TransferStatus string

const (
	TransferStatusPending    TransferStatus = "pending"
	TransferStatusProcessing TransferStatus = "processing"
	TransferStatusSuccessful TransferStatus = "successful"
	TransferStatusFailed     TransferStatus = "failed"
)

// TransferSource distinguishes what a transfer settles.
type TransferSource string

const (
	TransferSourcePayment    TransferSource = "payment"
	TransferSourceWithdrawal TransferSource = "withdrawal"
)

// FundTransfer is a concrete provider-facing attempt to move money.
// Net is always recomputed as Amount-Fee, never trusted from input.
type FundTransfer struct {
	ID            int64
	Reference     string
	WithdrawalID  *int64
	Source        TransferSource
	Amount        int64
	Fee           int64
	Net           int64
	RecipientAcct string
	RecipientBank string
	Status        TransferStatus
	ProviderRef   string
	ErrorMessage  string
	RetryCount    int
	TransferredAt *time.Time
	SettledAt     *time.Time
	CreatedAt     time.Time
}
