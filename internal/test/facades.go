package test

import (
	"context"
	"sync"
	"time"

	"github.com/perkwell/payout/internal/adapter/provider"
	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
)

// ProviderClientStub simulates the payout provider.
type ProviderClientStub struct {
	TransferFn func(context.Context, model.FundTransfer) (*provider.Receipt, error)

	mu    sync.Mutex
	Calls []model.FundTransfer
	Err   error
}

// Transfer records the call and returns the configured outcome.
func (s *ProviderClientStub) Transfer(ctx context.Context, t model.FundTransfer) (*provider.Receipt, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, t)
	s.mu.Unlock()
	if s.TransferFn != nil {
		return s.TransferFn(ctx, t)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return &provider.Receipt{ProviderRef: "prov-" + t.Reference, Status: provider.StatusCompleted}, nil
}

// CallCount reports how many transfers were attempted.
func (s *ProviderClientStub) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

// PublisherStub records published change events.
type PublisherStub struct {
	mu     sync.Mutex
	Events []model.ChangeEvent
	Err    error
}

// Publish stores the event or returns the configured error.
func (s *PublisherStub) Publish(ctx context.Context, ev model.ChangeEvent) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	s.Events = append(s.Events, ev)
	s.mu.Unlock()
	return nil
}

// Published returns a snapshot of the recorded events.
func (s *PublisherStub) Published() []model.ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChangeEvent, len(s.Events))
	copy(out, s.Events)
	return out
}

// GatewayCall records one dispatcher gateway invocation.
type GatewayCall struct {
	Op          string
	TransferID  int64
	ProviderRef string
	ErrMsg      string
}

// GatewayStub mimics the application facade for dispatcher tests.
type GatewayStub struct {
	SendFn     func(context.Context, model.FundTransfer) (*provider.Receipt, error)
	AckFn      func(context.Context, int64, string) error
	CompleteFn func(context.Context, int64) error
	RetryFn    func(context.Context, int64, string) error
	FailFn     func(context.Context, int64, string) error

	mu    sync.Mutex
	Calls []GatewayCall
	Done  chan GatewayCall
}

func (s *GatewayStub) record(call GatewayCall) {
	s.mu.Lock()
	s.Calls = append(s.Calls, call)
	s.mu.Unlock()
	if s.Done != nil {
		select {
		case s.Done <- call:
		default:
		}
	}
}

// CallsByOp returns recorded calls matching the operation name.
func (s *GatewayStub) CallsByOp(op string) []GatewayCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []GatewayCall
	for _, c := range s.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// SendTransfer delegates to the override or reports completion.
func (s *GatewayStub) SendTransfer(ctx context.Context, t model.FundTransfer) (*provider.Receipt, error) {
	if s.SendFn != nil {
		return s.SendFn(ctx, t)
	}
	return &provider.Receipt{ProviderRef: "prov-" + t.Reference, Status: provider.StatusCompleted}, nil
}

// AcknowledgeTransfer records the acknowledgment.
func (s *GatewayStub) AcknowledgeTransfer(ctx context.Context, id int64, providerRef string) error {
	if s.AckFn != nil {
		return s.AckFn(ctx, id, providerRef)
	}
	s.record(GatewayCall{Op: "ack", TransferID: id, ProviderRef: providerRef})
	return nil
}

// CompleteTransfer records the completion.
func (s *GatewayStub) CompleteTransfer(ctx context.Context, id int64) error {
	if s.CompleteFn != nil {
		return s.CompleteFn(ctx, id)
	}
	s.record(GatewayCall{Op: "complete", TransferID: id})
	return nil
}

// RetryTransfer records the requeue.
func (s *GatewayStub) RetryTransfer(ctx context.Context, id int64, errMsg string) error {
	if s.RetryFn != nil {
		return s.RetryFn(ctx, id, errMsg)
	}
	s.record(GatewayCall{Op: "retry", TransferID: id, ErrMsg: errMsg})
	return nil
}

// FailTransfer records the terminal failure.
func (s *GatewayStub) FailTransfer(ctx context.Context, id int64, errMsg string) error {
	if s.FailFn != nil {
		return s.FailFn(ctx, id, errMsg)
	}
	s.record(GatewayCall{Op: "fail", TransferID: id, ErrMsg: errMsg})
	return nil
}

// SettlerStub mimics the application facade for scheduler tests.
type SettlerStub struct {
	DueFn     func(context.Context, time.Time) ([]model.SettlementSchedule, error)
	TotalFn   func(context.Context) (int64, error)
	ClaimFn   func(context.Context, int) ([]model.FundTransfer, error)
	RecordFn  func(context.Context, int64, time.Time, time.Time) error
	RollupFn  func(context.Context, time.Time) error
	Schedules map[int64]*model.SettlementSchedule

	mu      sync.Mutex
	Records []ScheduleRunCall
	Rollups []time.Time
}

// DueSchedules returns the configured due set.
func (s *SettlerStub) DueSchedules(ctx context.Context, now time.Time) ([]model.SettlementSchedule, error) {
	if s.DueFn != nil {
		return s.DueFn(ctx, now)
	}
	var out []model.SettlementSchedule
	for _, sched := range s.Schedules {
		if sched.Active && sched.NextRun != nil && !sched.NextRun.After(now) {
			out = append(out, *sched)
		}
	}
	return out, nil
}

// Schedule returns one configured schedule.
func (s *SettlerStub) Schedule(ctx context.Context, id int64) (*model.SettlementSchedule, error) {
	if sched, ok := s.Schedules[id]; ok {
		copied := *sched
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// PendingSettlementTotal returns the configured aggregate.
func (s *SettlerStub) PendingSettlementTotal(ctx context.Context) (int64, error) {
	if s.TotalFn != nil {
		return s.TotalFn(ctx)
	}
	return 0, nil
}

// ClaimSettlementBatch returns the configured batch.
func (s *SettlerStub) ClaimSettlementBatch(ctx context.Context, limit int) ([]model.FundTransfer, error) {
	if s.ClaimFn != nil {
		return s.ClaimFn(ctx, limit)
	}
	return nil, nil
}

// RecordScheduleRun stores the run bookkeeping call.
func (s *SettlerStub) RecordScheduleRun(ctx context.Context, id int64, lastRun, nextRun time.Time) error {
	if s.RecordFn != nil {
		return s.RecordFn(ctx, id, lastRun, nextRun)
	}
	s.mu.Lock()
	s.Records = append(s.Records, ScheduleRunCall{ID: id, LastRun: lastRun, NextRun: nextRun})
	s.mu.Unlock()
	return nil
}

// RecordedRuns returns a snapshot of run bookkeeping calls.
func (s *SettlerStub) RecordedRuns() []ScheduleRunCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduleRunCall, len(s.Records))
	copy(out, s.Records)
	return out
}

// RollupRevenue records the rollup day.
func (s *SettlerStub) RollupRevenue(ctx context.Context, day time.Time) error {
	if s.RollupFn != nil {
		return s.RollupFn(ctx, day)
	}
	s.mu.Lock()
	s.Rollups = append(s.Rollups, day)
	s.mu.Unlock()
	return nil
}

// BatcherStub collects dispatched batches.
type BatcherStub struct {
	mu      sync.Mutex
	Batches [][]model.FundTransfer
}

// Dispatch stores the batch.
func (s *BatcherStub) Dispatch(ctx context.Context, transfers []model.FundTransfer) {
	s.mu.Lock()
	s.Batches = append(s.Batches, transfers)
	s.mu.Unlock()
}

// BatchCount reports how many batches were handed over.
func (s *BatcherStub) BatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Batches)
}
