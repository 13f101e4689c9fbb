package repository

import (
	"context"
	"time"

	"github.com/perkwell/payout/internal/domain/model"
)

// RevenueRepository derives and stores daily revenue rollups.
type RevenueRepository interface {
	// SummarizeDay derives the day's totals directly from successful
	// transfers; it never trusts previously stored rollups.
	SummarizeDay(ctx context.Context, day time.Time) (*model.RevenueLedgerEntry, error)

	// UpsertDay writes the rollup row for the given calendar day.
	UpsertDay(ctx context.Context, entry *model.RevenueLedgerEntry) error

	List(ctx context.Context, from, to time.Time) ([]model.RevenueLedgerEntry, error)
}
