package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/perkwell/payout/internal/domain/model"
)

// State describes the feed connection lifecycle.
type State string

const (
	StateConnecting   State = "connecting"
	StateSubscribed   State = "subscribed"
	StateChannelError State = "channel_error"
	StateClosed       State = "closed"
)

// Handler consumes one change event that passed the scope filter.
type Handler func(model.ChangeEvent)

// Reconcile re-derives consumer state directly from the store. It runs
// on a fixed cadence independent of the stream, so a prolonged
// disconnect cannot silently desynchronize consumers.
type Reconcile func(context.Context) error

// Options configures one feed instance.
type Options struct {
	// Filter scopes the subscription; nil accepts every event.
	Filter func(model.ChangeEvent) bool
	// Handler receives matching events.
	Handler Handler
	// Reconcile is the polling fallback; nil disables the poll.
	Reconcile Reconcile
	// ReconnectDelay is the fixed backoff after a channel error.
	ReconnectDelay time.Duration
	// OnReconnect observes every scheduled reconnect attempt.
	OnReconnect func()
	// PollInterval is the reconciliation cadence.
	PollInterval time.Duration
}

// Feed is a reconnecting subscription to the change stream. It is an
// explicit struct owned by its caller with a Start/Stop pair; the
// reconnect and poll timers are fields so teardown can always cancel
// them. On a channel error it schedules exactly one reconnect attempt
// after the fixed delay and retries indefinitely until subscribed or
// stopped.
type Feed struct {
	stream         Stream
	filter         func(model.ChangeEvent) bool
	handler        Handler
	reconcile      Reconcile
	reconnectDelay time.Duration
	pollInterval   time.Duration
	onReconnect    func()
	logger         *slog.Logger

	mu        sync.Mutex
	state     State
	reconnect *time.Timer
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New constructs a feed; Start must be called to begin consuming.
func New(stream Stream, opts Options, logger *slog.Logger) *Feed {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 60 * time.Second
	}
	return &Feed{
		stream:         stream,
		filter:         opts.Filter,
		handler:        opts.Handler,
		reconcile:      opts.Reconcile,
		reconnectDelay: opts.ReconnectDelay,
		pollInterval:   opts.PollInterval,
		onReconnect:    opts.OnReconnect,
		logger:         logger,
		state:          StateClosed,
	}
}

// State returns the current connection state.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Feed) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Start launches the subscription loop and the reconciliation poll.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	if f.cancel != nil {
		f.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.mu.Unlock()

	f.wg.Add(1)
	go f.consumeLoop(runCtx)

	if f.reconcile != nil {
		f.wg.Add(1)
		go f.pollLoop(runCtx)
	}
}

// Stop unsubscribes, cancels the poll and any pending reconnect timer,
// and waits for both loops to exit.
func (f *Feed) Stop() {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	if f.reconnect != nil {
		f.reconnect.Stop()
		f.reconnect = nil
	}
	f.mu.Unlock()

	f.wg.Wait()
	f.setState(StateClosed)
}

func (f *Feed) consumeLoop(ctx context.Context) {
	defer f.wg.Done()

	for {
		f.setState(StateConnecting)
		sub, err := f.stream.Subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn("feed subscribe failed", slog.String("error", err.Error()))
			f.setState(StateChannelError)
			if !f.waitReconnect(ctx) {
				return
			}
			continue
		}

		f.setState(StateSubscribed)
		f.consume(ctx, sub)
		_ = sub.Close()

		if ctx.Err() != nil {
			return
		}
		f.setState(StateChannelError)
		if !f.waitReconnect(ctx) {
			return
		}
	}
}

func (f *Feed) consume(ctx context.Context, sub Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Errs():
			f.logger.Warn("feed channel error", slog.String("error", err.Error()))
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if f.filter != nil && !f.filter(ev) {
				continue
			}
			if f.handler != nil {
				f.handler(ev)
			}
		}
	}
}

// waitReconnect schedules exactly one reconnect attempt after the fixed
// delay. Returns false when the feed was stopped while waiting.
func (f *Feed) waitReconnect(ctx context.Context) bool {
	if f.onReconnect != nil {
		f.onReconnect()
	}
	timer := time.NewTimer(f.reconnectDelay)
	f.mu.Lock()
	f.reconnect = timer
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}

func (f *Feed) pollLoop(ctx context.Context) {
	defer f.wg.Done()
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.reconcile(ctx); err != nil && ctx.Err() == nil {
				f.logger.Warn("feed reconciliation failed", slog.String("error", err.Error()))
			}
		}
	}
}
