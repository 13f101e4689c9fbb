package app

import (
	"context"
	"sync"
	"time"

	"github.com/perkwell/payout/internal/domain/model"
)

const statsPendingWindow = 500

// PipelineStats is the derived view the change feed keeps warm: how much
// work is waiting on admins and on the next settlement cycle.
type PipelineStats struct {
	PendingWithdrawals int       `json:"pending_withdrawals"`
	PendingSettlement  int64     `json:"pending_settlement"`
	ObservedEvents     uint64    `json:"observed_events"`
	RefreshedAt        time.Time `json:"refreshed_at"`
}

// StatsTracker consumes change events and re-derives pipeline stats from
// the store. Events only signal that something changed; the store stays
// the source of truth, so a lost event merely delays the refresh until
// the reconciliation poll.
type StatsTracker struct {
	facade *PayoutFacade

	mu    sync.RWMutex
	stats PipelineStats
}

// NewStatsTracker constructs the tracker.
func NewStatsTracker(facade *PayoutFacade) *StatsTracker {
	return &StatsTracker{facade: facade}
}

// HandleEvent is the feed handler: any withdrawal or transfer mutation
// triggers a refresh.
func (t *StatsTracker) HandleEvent(ev model.ChangeEvent) {
	t.mu.Lock()
	t.stats.ObservedEvents++
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = t.Refresh(ctx)
}

// Refresh re-derives the stats from the store. Doubles as the feed's
// reconciliation poll.
func (t *StatsTracker) Refresh(ctx context.Context) error {
	pending, err := t.facade.PendingWithdrawals(ctx, statsPendingWindow)
	if err != nil {
		return err
	}
	total, err := t.facade.PendingSettlementTotal(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.stats.PendingWithdrawals = len(pending)
	t.stats.PendingSettlement = total
	t.stats.RefreshedAt = time.Now()
	t.mu.Unlock()
	return nil
}

// Snapshot returns the current derived stats.
func (t *StatsTracker) Snapshot() PipelineStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}
