package repository

import (
	"context"
	"time"

	"github.com/perkwell/payout/internal/domain/model"
)

// ScheduleRepository stores settlement schedules.
type ScheduleRepository interface {
	List(ctx context.Context) ([]model.SettlementSchedule, error)
	ListDue(ctx context.Context, now time.Time) ([]model.SettlementSchedule, error)
	Get(ctx context.Context, id int64) (*model.SettlementSchedule, error)
	Create(ctx context.Context, s *model.SettlementSchedule) (*model.SettlementSchedule, error)
	Update(ctx context.Context, s *model.SettlementSchedule) error

	// SetRunTimes records last/next run after a successful settlement run.
	SetRunTimes(ctx context.Context, id int64, lastRun, nextRun time.Time) error
}
