package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
	"github.com/perkwell/payout/internal/metrics"
	testhelpers "github.com/perkwell/payout/internal/test"
)

func newTestScheduler(settler *testhelpers.SettlerStub, batcher *testhelpers.BatcherStub) *Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(settler, batcher, 50, metrics.NewWith(prometheus.NewRegistry()), logger)
}

func activeSchedule(id int64, minimum int64) *model.SettlementSchedule {
	next := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	return &model.SettlementSchedule{
		ID:            id,
		Frequency:     model.FrequencyDaily,
		TimeOfDay:     "10:00",
		MinimumAmount: minimum,
		Active:        true,
		NextRun:       &next,
	}
}

func TestRunDueSkipsBelowMinimumThenDispatches(t *testing.T) {
	settler := &testhelpers.SettlerStub{
		Schedules: map[int64]*model.SettlementSchedule{1: activeSchedule(1, 10_000)},
	}
	batcher := &testhelpers.BatcherStub{}
	s := newTestScheduler(settler, batcher)

	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	// Pending aggregate below the threshold: the cycle is a no-op and the
	// run timestamps stay untouched.
	settler.TotalFn = func(context.Context) (int64, error) { return 4_000, nil }
	s.RunDue(context.Background(), now)

	if batcher.BatchCount() != 0 {
		t.Fatal("nothing may be dispatched below the minimum")
	}
	if len(settler.RecordedRuns()) != 0 {
		t.Fatal("a skipped cycle must not advance the schedule")
	}

	// Aggregate crosses the threshold on a later tick: the batch goes out
	// and the run is recorded.
	settler.TotalFn = func(context.Context) (int64, error) { return 12_000, nil }
	settler.ClaimFn = func(ctx context.Context, limit int) ([]model.FundTransfer, error) {
		return []model.FundTransfer{{ID: 7, Net: 12_000, Status: model.TransferStatusProcessing}}, nil
	}
	s.RunDue(context.Background(), now)

	if batcher.BatchCount() != 1 {
		t.Fatalf("expected one dispatched batch, got %d", batcher.BatchCount())
	}
	runs := settler.RecordedRuns()
	if len(runs) != 1 || runs[0].ID != 1 {
		t.Fatalf("expected one recorded run for schedule 1, got %+v", runs)
	}
	if !runs[0].LastRun.Equal(now) {
		t.Fatalf("last run must be the cycle time, got %v", runs[0].LastRun)
	}
	if !runs[0].NextRun.After(now) {
		t.Fatalf("next run %v must be after %v", runs[0].NextRun, now)
	}
}

func TestRunNowBypassesNextRunGate(t *testing.T) {
	sched := activeSchedule(1, 100)
	future := time.Now().Add(24 * time.Hour)
	sched.NextRun = &future

	settler := &testhelpers.SettlerStub{
		Schedules: map[int64]*model.SettlementSchedule{1: sched},
		TotalFn:   func(context.Context) (int64, error) { return 5_000, nil },
		ClaimFn: func(ctx context.Context, limit int) ([]model.FundTransfer, error) {
			return []model.FundTransfer{{ID: 3, Net: 5_000}}, nil
		},
	}
	batcher := &testhelpers.BatcherStub{}
	s := newTestScheduler(settler, batcher)

	if err := s.RunNow(context.Background(), 1); err != nil {
		t.Fatalf("manual trigger failed: %v", err)
	}
	if batcher.BatchCount() != 1 {
		t.Fatalf("expected one batch from the manual run, got %d", batcher.BatchCount())
	}
}

func TestRunNowBelowMinimum(t *testing.T) {
	settler := &testhelpers.SettlerStub{
		Schedules: map[int64]*model.SettlementSchedule{1: activeSchedule(1, 10_000)},
		TotalFn:   func(context.Context) (int64, error) { return 1, nil },
	}
	s := newTestScheduler(settler, &testhelpers.BatcherStub{})

	if err := s.RunNow(context.Background(), 1); !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected below-minimum error, got %v", err)
	}
}

func TestRunNowInactiveSchedule(t *testing.T) {
	sched := activeSchedule(1, 100)
	sched.Active = false
	settler := &testhelpers.SettlerStub{
		Schedules: map[int64]*model.SettlementSchedule{1: sched},
	}
	s := newTestScheduler(settler, &testhelpers.BatcherStub{})

	if err := s.RunNow(context.Background(), 1); !errors.Is(err, ErrScheduleInactive) {
		t.Fatalf("expected inactive error, got %v", err)
	}
}

func TestRunNowUnknownSchedule(t *testing.T) {
	settler := &testhelpers.SettlerStub{Schedules: map[int64]*model.SettlementSchedule{}}
	s := newTestScheduler(settler, &testhelpers.BatcherStub{})

	if err := s.RunNow(context.Background(), 404); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRunScheduleIsSingleFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	settler := &testhelpers.SettlerStub{
		Schedules: map[int64]*model.SettlementSchedule{1: activeSchedule(1, 100)},
		TotalFn: func(context.Context) (int64, error) {
			close(entered)
			<-release
			return 5_000, nil
		},
		ClaimFn: func(ctx context.Context, limit int) ([]model.FundTransfer, error) {
			return nil, nil
		},
	}
	s := newTestScheduler(settler, &testhelpers.BatcherStub{})

	errCh := make(chan error, 1)
	go func() { errCh <- s.RunNow(context.Background(), 1) }()
	<-entered

	// Overlapping trigger for the same schedule must bounce, not queue.
	if err := s.RunNow(context.Background(), 1); !errors.Is(err, ErrRunInFlight) {
		t.Fatalf("expected run-in-flight error, got %v", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
}

func TestRunScheduleEmptyClaimStillAdvances(t *testing.T) {
	// The aggregate gate passed but another node drained the batch first;
	// the schedule still advances so the tick does not spin.
	settler := &testhelpers.SettlerStub{
		Schedules: map[int64]*model.SettlementSchedule{1: activeSchedule(1, 100)},
		TotalFn:   func(context.Context) (int64, error) { return 5_000, nil },
	}
	batcher := &testhelpers.BatcherStub{}
	s := newTestScheduler(settler, batcher)

	if err := s.RunNow(context.Background(), 1); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if batcher.BatchCount() != 0 {
		t.Fatal("empty claim must not reach the batcher")
	}
	if len(settler.RecordedRuns()) != 1 {
		t.Fatal("empty claim must still record the run")
	}
}
