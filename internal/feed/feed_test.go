package feed_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/perkwell/payout/internal/domain/model"
	"github.com/perkwell/payout/internal/feed"
	testhelpers "github.com/perkwell/payout/internal/test"
)

func newTestFeedLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestFeedDeliversFilteredEvents(t *testing.T) {
	sub := testhelpers.NewSubscriptionStub()
	stream := &testhelpers.StreamStub{Scripted: []*testhelpers.SubscriptionStub{sub}}

	var got atomic.Int64
	f := feed.New(stream, feed.Options{
		Filter:  func(ev model.ChangeEvent) bool { return ev.Table == model.TableTransfers },
		Handler: func(ev model.ChangeEvent) { got.Add(1) },
	}, newTestFeedLogger())

	f.Start(context.Background())
	defer f.Stop()

	sub.EventsCh <- model.ChangeEvent{Table: model.TableWithdrawals, Kind: model.ChangeInsert}
	sub.EventsCh <- model.ChangeEvent{Table: model.TableTransfers, Kind: model.ChangeUpdate}
	sub.EventsCh <- model.ChangeEvent{Table: model.TableTransfers, Kind: model.ChangeInsert}

	waitFor(t, func() bool { return got.Load() == 2 }, "expected exactly the transfer events")
}

func TestFeedReconnectsAfterChannelErrors(t *testing.T) {
	// Three consecutive channel errors must schedule exactly three
	// reconnect attempts before the stream settles.
	subs := make([]*testhelpers.SubscriptionStub, 3)
	for i := range subs {
		subs[i] = testhelpers.NewSubscriptionStub()
		subs[i].ErrsCh <- errors.New("channel gone")
	}
	stream := &testhelpers.StreamStub{Scripted: subs}

	var reconnects atomic.Int64
	f := feed.New(stream, feed.Options{
		ReconnectDelay: time.Millisecond,
		OnReconnect:    func() { reconnects.Add(1) },
	}, newTestFeedLogger())

	f.Start(context.Background())
	defer f.Stop()

	// The fourth subscription is a fresh quiet stub from the stream.
	waitFor(t, func() bool { return stream.SubscribeCount() >= 4 }, "feed did not resubscribe past the errors")
	waitFor(t, func() bool { return f.State() == feed.StateSubscribed }, "feed did not settle")

	if n := reconnects.Load(); n != 3 {
		t.Fatalf("expected exactly 3 reconnect attempts, got %d", n)
	}
}

func TestFeedRetriesFailedSubscribe(t *testing.T) {
	stream := &testhelpers.StreamStub{Errors: []error{errors.New("dial refused")}}

	var reconnects atomic.Int64
	f := feed.New(stream, feed.Options{
		ReconnectDelay: time.Millisecond,
		OnReconnect:    func() { reconnects.Add(1) },
	}, newTestFeedLogger())

	f.Start(context.Background())
	defer f.Stop()

	waitFor(t, func() bool { return f.State() == feed.StateSubscribed }, "feed did not recover from the failed subscribe")
	if reconnects.Load() != 1 {
		t.Fatalf("expected one reconnect attempt, got %d", reconnects.Load())
	}
}

func TestFeedPollInvokesReconcile(t *testing.T) {
	stream := &testhelpers.StreamStub{}

	var polls atomic.Int64
	f := feed.New(stream, feed.Options{
		PollInterval: 5 * time.Millisecond,
		Reconcile: func(ctx context.Context) error {
			polls.Add(1)
			return nil
		},
	}, newTestFeedLogger())

	f.Start(context.Background())
	defer f.Stop()

	waitFor(t, func() bool { return polls.Load() >= 2 }, "reconciliation poll never fired")
}

func TestFeedStopCancelsPendingReconnect(t *testing.T) {
	sub := testhelpers.NewSubscriptionStub()
	sub.ErrsCh <- errors.New("channel gone")
	stream := &testhelpers.StreamStub{Scripted: []*testhelpers.SubscriptionStub{sub}}

	f := feed.New(stream, feed.Options{ReconnectDelay: time.Hour}, newTestFeedLogger())
	f.Start(context.Background())

	waitFor(t, func() bool { return f.State() == feed.StateChannelError }, "feed never observed the channel error")

	done := make(chan struct{})
	go func() {
		f.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop must not wait out the reconnect delay")
	}
	if f.State() != feed.StateClosed {
		t.Fatalf("expected closed state, got %s", f.State())
	}
	if !sub.Closed {
		t.Fatal("errored subscription must be closed")
	}
}
