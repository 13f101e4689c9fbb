package model

import "time"

// Account represents a rewards platform member with point balances.
type Account struct {
	ID           int64
	Balance      int64
	YieldBalance int64
	Verified     bool
	Level        int
	CreatedAt    time.Time
}

// PeriodUsage aggregates withdrawal volume consumed against rolling limits.
type PeriodUsage struct {
	Daily   int64
	Weekly  int64
	Monthly int64
}
