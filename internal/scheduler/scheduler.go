package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/perkwell/payout/internal/domain/model"
	"github.com/perkwell/payout/internal/metrics"
)

// ErrBelowMinimum reports a settlement cycle skipped because the pending
// aggregate has not reached the schedule's threshold.
var ErrBelowMinimum = errors.New("pending aggregate below schedule minimum")

// ErrRunInFlight reports a settlement run already executing for the
// schedule.
var ErrRunInFlight = errors.New("settlement run already in flight")

// ErrScheduleInactive rejects manual triggers on disabled schedules.
var ErrScheduleInactive = errors.New("schedule is inactive")

// Settler exposes the application operations a settlement run needs.
type Settler interface {
	DueSchedules(ctx context.Context, now time.Time) ([]model.SettlementSchedule, error)
	Schedule(ctx context.Context, id int64) (*model.SettlementSchedule, error)
	PendingSettlementTotal(ctx context.Context) (int64, error)
	ClaimSettlementBatch(ctx context.Context, limit int) ([]model.FundTransfer, error)
	RecordScheduleRun(ctx context.Context, id int64, lastRun, nextRun time.Time) error
	RollupRevenue(ctx context.Context, day time.Time) error
}

// Batcher receives a claimed batch for execution.
type Batcher interface {
	Dispatch(ctx context.Context, transfers []model.FundTransfer)
}

// Scheduler drives settlement cycles from a cron tick and from manual
// admin triggers. Runs are single-flight per schedule id; distinct
// schedules may run concurrently.
type Scheduler struct {
	facade     Settler
	batcher    Batcher
	batchLimit int
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time

	cron *cron.Cron

	mu       sync.Mutex
	inflight map[int64]bool
}

// New constructs the settlement scheduler.
func New(facade Settler, batcher Batcher, batchLimit int, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if batchLimit <= 0 {
		batchLimit = 1
	}
	return &Scheduler{
		facade:     facade,
		batcher:    batcher,
		batchLimit: batchLimit,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
		inflight:   make(map[int64]bool),
	}
}

// Start registers the cron entries and begins ticking. The settlement
// tick runs every minute, at least as fine as the finest schedule
// granularity; the revenue rollup runs shortly after midnight for the
// previous day.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()

	if _, err := s.cron.AddFunc("* * * * *", func() {
		s.RunDue(ctx, s.now())
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc("5 0 * * *", func() {
		yesterday := s.now().AddDate(0, 0, -1)
		if err := s.facade.RollupRevenue(ctx, yesterday); err != nil {
			s.logger.Error("revenue rollup failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron and waits for running entries to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunDue executes every active schedule whose next run is due.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) {
	schedules, err := s.facade.DueSchedules(ctx, now)
	if err != nil {
		s.logger.Error("list due schedules failed", slog.String("error", err.Error()))
		return
	}

	for i := range schedules {
		sched := schedules[i]
		if err := s.runSchedule(ctx, &sched, now); err != nil {
			switch {
			case errors.Is(err, ErrBelowMinimum):
				s.logger.Info("settlement skipped below minimum",
					slog.Int64("schedule_id", sched.ID),
					slog.Int64("minimum", sched.MinimumAmount),
				)
			case errors.Is(err, ErrRunInFlight):
				// Another run is draining this schedule; nothing to do.
			default:
				s.logger.Error("settlement run failed",
					slog.Int64("schedule_id", sched.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunNow is the manual admin trigger. It bypasses the next-run gate but
// still respects the minimum-amount gate.
func (s *Scheduler) RunNow(ctx context.Context, scheduleID int64) error {
	sched, err := s.facade.Schedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if !sched.Active {
		return ErrScheduleInactive
	}
	return s.runSchedule(ctx, sched, s.now())
}

func (s *Scheduler) runSchedule(ctx context.Context, sched *model.SettlementSchedule, now time.Time) error {
	if !s.tryLock(sched.ID) {
		return ErrRunInFlight
	}
	defer s.unlock(sched.ID)

	total, err := s.facade.PendingSettlementTotal(ctx)
	if err != nil {
		return err
	}
	if total < sched.MinimumAmount {
		// Run timestamps stay untouched so a future larger batch is
		// still eligible on the next tick.
		s.metrics.SettlementSkips.Inc()
		return ErrBelowMinimum
	}

	batch, err := s.facade.ClaimSettlementBatch(ctx, s.batchLimit)
	if err != nil {
		return err
	}
	if len(batch) > 0 {
		s.batcher.Dispatch(ctx, batch)
	}

	nextRun, err := NextRunAfter(sched, now)
	if err != nil {
		return err
	}
	if err := s.facade.RecordScheduleRun(ctx, sched.ID, now, nextRun); err != nil {
		return err
	}

	s.metrics.SettlementRuns.Inc()
	s.logger.Info("settlement batch dispatched",
		slog.Int64("schedule_id", sched.ID),
		slog.Int("batch", len(batch)),
		slog.Int64("pending_total", total),
		slog.Time("next_run", nextRun),
	)
	return nil
}

func (s *Scheduler) tryLock(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[id] {
		return false
	}
	s.inflight[id] = true
	return true
}

func (s *Scheduler) unlock(id int64) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}
