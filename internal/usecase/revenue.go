package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
	"github.com/perkwell/payout/internal/domain/repository"
)

// RevenueUseCase rolls completed transfers up into the daily revenue
// ledger. It is a read-only consumer of transfer rows: the ledger row is
// always re-derived, never incrementally patched.
type RevenueUseCase struct {
	revenue repository.RevenueRepository
	logger  *slog.Logger
	now     func() time.Time
}

// NewRevenueUseCase constructs the aggregator.
func NewRevenueUseCase(factory repository.Factory, logger *slog.Logger) *RevenueUseCase {
	return &RevenueUseCase{revenue: factory.Revenue(), logger: logger, now: time.Now}
}

// RollupDay derives and stores the ledger row for one calendar day.
// Only the current or a past date may be written.
func (u *RevenueUseCase) RollupDay(ctx context.Context, day time.Time) (*model.RevenueLedgerEntry, error) {
	day = day.Truncate(24 * time.Hour)
	today := u.now().Truncate(24 * time.Hour)
	if day.After(today) {
		return nil, fmt.Errorf("rollup for future date %s: %w", day.Format("2006-01-02"), domainErrors.ErrInvalidAmount)
	}

	entry, err := u.revenue.SummarizeDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("summarize day: %w", err)
	}
	if err := u.revenue.UpsertDay(ctx, entry); err != nil {
		return nil, fmt.Errorf("store rollup: %w", err)
	}

	u.logger.Info("revenue rollup stored",
		slog.String("date", day.Format("2006-01-02")),
		slog.Int64("payments", entry.PaymentsTotal),
		slog.Int64("fees", entry.FeesTotal),
		slog.Int64("withdrawals", entry.WithdrawalsTotal),
	)
	return entry, nil
}

// List returns ledger rows in the inclusive date range.
func (u *RevenueUseCase) List(ctx context.Context, from, to time.Time) ([]model.RevenueLedgerEntry, error) {
	return u.revenue.List(ctx, from, to)
}
