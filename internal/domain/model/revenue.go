package model

import "time"

// RevenueLedgerEntry aggregates one calendar day of completed money
// movement. Written only by the aggregator, never by users.
type RevenueLedgerEntry struct {
	Date             time.Time
	PaymentsTotal    int64
	FeesTotal        int64
	WithdrawalsTotal int64
	PaymentCount     int
	WithdrawalCount  int
	UpdatedAt        time.Time
}
