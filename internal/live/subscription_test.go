package live

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func waitSnapshot(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	bus := NewBus()
	got := make(chan []string, 4)

	sub := Subscribe(bus, TopicItems, "hh-1",
		func(ctx context.Context) ([]string, error) { return []string{"milk"}, nil },
		func(s []string) { got <- s },
		discardLogger(),
	)
	defer sub.Dispose()

	snapshot := waitSnapshot(t, got)
	if len(snapshot) != 1 || snapshot[0] != "milk" {
		t.Errorf("snapshot = %v, want [milk]", snapshot)
	}
}

func TestSubscribeRequeriesOnMatchingEvent(t *testing.T) {
	bus := NewBus()
	var calls atomic.Int32
	got := make(chan []string, 4)

	sub := Subscribe(bus, TopicItems, "hh-1",
		func(ctx context.Context) ([]string, error) {
			n := calls.Add(1)
			if n == 1 {
				return []string{"milk"}, nil
			}
			return []string{"milk", "bread"}, nil
		},
		func(s []string) { got <- s },
		discardLogger(),
	)
	defer sub.Dispose()

	waitSnapshot(t, got)
	bus.Publish(Event{Topic: TopicItems, Scope: "hh-1"})
	snapshot := waitSnapshot(t, got)
	if len(snapshot) != 2 {
		t.Errorf("snapshot = %v, want the re-queried result", snapshot)
	}
}

func TestSubscribeIgnoresOtherScopes(t *testing.T) {
	bus := NewBus()
	got := make(chan []string, 4)

	sub := Subscribe(bus, TopicItems, "hh-1",
		func(ctx context.Context) ([]string, error) { return nil, nil },
		func(s []string) { got <- s },
		discardLogger(),
	)
	defer sub.Dispose()

	waitSnapshot(t, got)
	bus.Publish(Event{Topic: TopicItems, Scope: "hh-2"})
	bus.Publish(Event{Topic: TopicHouseholds, Scope: "hh-1"})

	select {
	case <-got:
		t.Error("received snapshot for a non-matching event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeEmptyEventScopeReachesAll(t *testing.T) {
	bus := NewBus()
	got := make(chan []string, 4)

	sub := Subscribe(bus, TopicHouseholds, "user-1",
		func(ctx context.Context) ([]string, error) { return nil, nil },
		func(s []string) { got <- s },
		discardLogger(),
	)
	defer sub.Dispose()

	waitSnapshot(t, got)
	bus.Publish(Event{Topic: TopicHouseholds})
	waitSnapshot(t, got)
}

func TestSubscribeRetriesTransientFailure(t *testing.T) {
	bus := NewBus()
	var calls atomic.Int32
	got := make(chan []string, 4)

	sub := Subscribe(bus, TopicItems, "hh-1",
		func(ctx context.Context) ([]string, error) {
			if calls.Add(1) < 3 {
				return nil, errors.New("transient")
			}
			return []string{"milk"}, nil
		},
		func(s []string) { got <- s },
		discardLogger(),
	)
	defer sub.Dispose()

	snapshot := waitSnapshot(t, got)
	if len(snapshot) != 1 {
		t.Errorf("snapshot = %v, want the post-retry result", snapshot)
	}
	if calls.Load() < 3 {
		t.Errorf("query ran %d times, want at least 3", calls.Load())
	}
}

func TestDisposeStopsDelivery(t *testing.T) {
	bus := NewBus()
	got := make(chan []string, 16)

	sub := Subscribe(bus, TopicItems, "hh-1",
		func(ctx context.Context) ([]string, error) { return nil, nil },
		func(s []string) { got <- s },
		discardLogger(),
	)
	waitSnapshot(t, got)

	sub.Dispose()
	if n := bus.SubscriptionCount(); n != 0 {
		t.Errorf("subscription count = %d after dispose, want 0", n)
	}

	bus.Publish(Event{Topic: TopicItems, Scope: "hh-1"})
	select {
	case <-got:
		t.Error("received snapshot after dispose")
	case <-time.After(100 * time.Millisecond):
	}

	// Dispose is safe to call again.
	sub.Dispose()
}

func TestInertSubscription(t *testing.T) {
	sub := Inert()
	sub.Dispose()
	sub.Dispose()
}

func TestPublishCoalescesWakeups(t *testing.T) {
	bus := NewBus()
	block := make(chan struct{})
	var calls atomic.Int32
	got := make(chan []string, 64)

	sub := Subscribe(bus, TopicItems, "hh-1",
		func(ctx context.Context) ([]string, error) {
			if calls.Add(1) == 1 {
				<-block
			}
			return nil, nil
		},
		func(s []string) { got <- s },
		discardLogger(),
	)
	defer sub.Dispose()

	// While the first query is in flight, any number of publishes collapse
	// into a single queued refresh.
	for i := 0; i < 10; i++ {
		bus.Publish(Event{Topic: TopicItems, Scope: "hh-1"})
	}
	close(block)

	waitSnapshot(t, got)
	waitSnapshot(t, got)
	time.Sleep(100 * time.Millisecond)
	if n := calls.Load(); n != 2 {
		t.Errorf("query ran %d times, want 2 (initial + one coalesced refresh)", n)
	}
}
