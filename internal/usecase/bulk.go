package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainErrors "github.com/perkwell/payout/internal/domain/errors"
)

// Decision is an admin verdict applied to pending withdrawals.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// BulkSkip names one id the bulk operation could not apply and why.
type BulkSkip struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

// BulkResult reports the exact outcome of a bulk decision. The operation
// never leaves the set in a silent mixed state: every id lands either in
// Applied or in Skipped.
type BulkResult struct {
	Applied []int64    `json:"applied"`
	Skipped []BulkSkip `json:"skipped"`
}

// BulkDecide applies one decision across a set of pending withdrawal
// ids. Each id goes through the regular single-item transition, so a
// request concurrently decided by another admin is skipped with reason
// "not pending" rather than double-applied. Idempotent per id.
func (u *WithdrawalUseCase) BulkDecide(ctx context.Context, ids []int64, decision Decision, actor, notes string) (*BulkResult, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, fmt.Errorf("unknown decision %q", decision)
	}

	result := &BulkResult{}
	for _, id := range ids {
		var err error
		if decision == DecisionApprove {
			_, err = u.Approve(ctx, id, actor, notes)
		} else {
			_, err = u.Reject(ctx, id, actor, notes)
		}

		switch {
		case err == nil:
			result.Applied = append(result.Applied, id)
		case errors.Is(err, domainErrors.ErrConflict):
			result.Skipped = append(result.Skipped, BulkSkip{ID: id, Reason: "not pending"})
		case errors.Is(err, domainErrors.ErrNotFound):
			result.Skipped = append(result.Skipped, BulkSkip{ID: id, Reason: "not found"})
		default:
			return nil, err
		}
	}

	u.logger.Info("bulk decision applied",
		slog.String("decision", string(decision)),
		slog.String("actor", actor),
		slog.Int("applied", len(result.Applied)),
		slog.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}
