package model

import "time"

// WithdrawalStatus describes the withdrawal request lifecycle.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusApproved   WithdrawalStatus = "approved"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalStatusRejected || s == WithdrawalStatusCompleted || s == WithdrawalStatusFailed
}

// Withdrawal represents a request to convert points into an external
// or internal value transfer. Amount and details are immutable once
// status leaves pending.
type Withdrawal struct {
	ID         int64
	AccountID  int64
	Amount     int64
	Method     PayoutMethod
	Details    PayoutDetails
	Status     WithdrawalStatus
	Fee        *int64
	Net        *int64
	AdminNotes string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
