package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/perkwell/payout/internal/adapter/provider"
	"github.com/perkwell/payout/internal/domain/model"
	"github.com/perkwell/payout/internal/metrics"
)

// Gateway exposes the subset of application functionality the dispatcher
// needs to move a claimed transfer through the provider.
type Gateway interface {
	SendTransfer(ctx context.Context, t model.FundTransfer) (*provider.Receipt, error)
	AcknowledgeTransfer(ctx context.Context, id int64, providerRef string) error
	CompleteTransfer(ctx context.Context, id int64) error
	RetryTransfer(ctx context.Context, id int64, errMsg string) error
	FailTransfer(ctx context.Context, id int64, errMsg string) error
}

// Dispatcher executes claimed fund transfers against the payout provider
// with a bounded worker pool. Batches arrive from the settlement
// scheduler via Dispatch; the dispatcher never selects work itself.
type Dispatcher struct {
	gateway         Gateway
	workers         int
	maxRetries      int
	providerTimeout time.Duration
	metrics         *metrics.Metrics
	logger          *slog.Logger

	jobs   chan model.FundTransfer
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// New constructs a dispatcher worker pool.
func New(gateway Gateway, workers, maxRetries int, providerTimeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Dispatcher{
		gateway:         gateway,
		workers:         workers,
		maxRetries:      maxRetries,
		providerTimeout: providerTimeout,
		metrics:         m,
		logger:          logger,
		jobs:            make(chan model.FundTransfer, workers*4),
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(runCtx)
	}
}

// Stop waits for in-flight work to finish. A dispatch in flight is not
// cancellable mid-provider-call; workers drain their current job first.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// Dispatch enqueues a claimed batch for execution. Blocks while the pool
// is saturated; returns early when the caller's context ends.
func (d *Dispatcher) Dispatch(ctx context.Context, transfers []model.FundTransfer) {
	for _, t := range transfers {
		select {
		case <-ctx.Done():
			return
		case d.jobs <- t:
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-d.jobs:
			if !ok {
				return
			}
			d.handleTransfer(ctx, t)
		}
	}
}

func (d *Dispatcher) handleTransfer(ctx context.Context, t model.FundTransfer) {
	d.metrics.TransfersDispatched.Inc()

	callCtx, cancel := context.WithTimeout(ctx, d.providerTimeout)
	receipt, err := d.gateway.SendTransfer(callCtx, t)
	cancel()

	if err != nil {
		d.handleFailure(ctx, t, err)
		return
	}

	if err := d.gateway.AcknowledgeTransfer(ctx, t.ID, receipt.ProviderRef); err != nil {
		d.logger.Error("acknowledge transfer failed",
			slog.String("reference", t.Reference),
			slog.String("error", err.Error()),
		)
		return
	}

	switch receipt.Status {
	case provider.StatusCompleted:
		if err := d.gateway.CompleteTransfer(ctx, t.ID); err != nil {
			d.logger.Error("complete transfer failed",
				slog.String("reference", t.Reference),
				slog.String("error", err.Error()),
			)
			return
		}
		d.metrics.TransfersSucceeded.Inc()
	default:
		// Accepted: the terminal status arrives via provider webhook.
		d.logger.Info("transfer acknowledged by provider",
			slog.String("reference", t.Reference),
			slog.String("provider_ref", receipt.ProviderRef),
		)
	}
}

// handleFailure applies the retry policy. A timeout counts as unknown
// outcome and takes the retry path, never implicit success. The attempt
// that exhausts the ceiling triggers exactly one compensating balance
// restoration inside FailTransfer.
func (d *Dispatcher) handleFailure(ctx context.Context, t model.FundTransfer, cause error) {
	var rateLimited provider.TooManyRequestsError
	if errors.As(cause, &rateLimited) {
		d.logger.Warn("provider rate limited",
			slog.String("reference", t.Reference),
			slog.Duration("retry_after", rateLimited.RetryAfter),
		)
		select {
		case <-ctx.Done():
		case <-time.After(rateLimited.RetryAfter):
		}
	}

	permanent := errors.Is(cause, provider.ErrTransferRejected)
	exhausted := t.RetryCount+1 >= d.maxRetries

	if permanent || exhausted {
		if err := d.gateway.FailTransfer(ctx, t.ID, cause.Error()); err != nil {
			d.logger.Error("fail transfer failed",
				slog.String("reference", t.Reference),
				slog.String("error", err.Error()),
			)
			return
		}
		d.metrics.TransfersFailed.Inc()
		d.logger.Warn("transfer terminally failed",
			slog.String("reference", t.Reference),
			slog.Int("attempts", t.RetryCount+1),
			slog.String("error", cause.Error()),
		)
		return
	}

	if err := d.gateway.RetryTransfer(ctx, t.ID, cause.Error()); err != nil {
		d.logger.Error("requeue transfer failed",
			slog.String("reference", t.Reference),
			slog.String("error", err.Error()),
		)
		return
	}
	d.metrics.TransfersRetried.Inc()
	d.logger.Warn("transfer requeued",
		slog.String("reference", t.Reference),
		slog.Int("attempt", t.RetryCount+1),
		slog.String("error", cause.Error()),
	)
}
