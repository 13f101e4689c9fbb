package test

import (
	"context"
	"sync"

	"github.com/perkwell/payout/internal/domain/model"
	"github.com/perkwell/payout/internal/feed"
)

// SubscriptionStub is a scripted change feed subscription.
type SubscriptionStub struct {
	EventsCh chan model.ChangeEvent
	ErrsCh   chan error
	Closed   bool
}

// NewSubscriptionStub constructs a subscription with buffered channels.
func NewSubscriptionStub() *SubscriptionStub {
	return &SubscriptionStub{
		EventsCh: make(chan model.ChangeEvent, 16),
		ErrsCh:   make(chan error, 16),
	}
}

func (s *SubscriptionStub) Events() <-chan model.ChangeEvent { return s.EventsCh }
func (s *SubscriptionStub) Errs() <-chan error               { return s.ErrsCh }
func (s *SubscriptionStub) Close() error {
	s.Closed = true
	return nil
}

// StreamStub hands out scripted subscriptions in order, falling back to
// fresh empty ones once the script is exhausted.
type StreamStub struct {
	SubscribeFn func(context.Context) (feed.Subscription, error)

	mu         sync.Mutex
	Scripted   []*SubscriptionStub
	Errors     []error
	Subscribes int
}

// Subscribe returns the next scripted subscription or error.
func (s *StreamStub) Subscribe(ctx context.Context) (feed.Subscription, error) {
	s.mu.Lock()
	n := s.Subscribes
	s.Subscribes++
	s.mu.Unlock()

	if s.SubscribeFn != nil {
		return s.SubscribeFn(ctx)
	}
	if n < len(s.Errors) && s.Errors[n] != nil {
		return nil, s.Errors[n]
	}
	if n < len(s.Scripted) {
		return s.Scripted[n], nil
	}
	return NewSubscriptionStub(), nil
}

// SubscribeCount reports how many subscriptions were requested.
func (s *StreamStub) SubscribeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Subscribes
}
