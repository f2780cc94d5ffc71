package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	queryTimeout = 10 * time.Second
	retryBase    = 250 * time.Millisecond
	maxRetries   = 4
)

// Subscription is a live view over one query. It delivers the full current
// result set on subscribe and again after every matching change event.
// Emissions are ordered within the subscription; nothing is guaranteed
// across subscriptions.
type Subscription struct {
	bus    *Bus
	topic  Topic
	scope  string
	notify chan struct{}
	stop   chan struct{}
	once   sync.Once

	refresh func(ctx context.Context) error
	logger  *slog.Logger
}

// Subscribe registers a live query on the bus. The query runs once
// immediately and again whenever an event on topic matches scope (an empty
// scope matches every event on the topic). onChange receives each snapshot
// on a dedicated goroutine; it must not call Dispose.
//
// Query failures are retried with bounded exponential backoff. If retries
// exhaust, the failure is logged and the previous snapshot stands.
func Subscribe[T any](bus *Bus, topic Topic, scope string, query func(ctx context.Context) ([]T, error), onChange func([]T), logger *slog.Logger) *Subscription {
	sub := &Subscription{
		bus:    bus,
		topic:  topic,
		scope:  scope,
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		logger: logger,
	}
	sub.refresh = func(ctx context.Context) error {
		backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(retryBase))
		var snapshot []T
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			rows, err := query(ctx)
			if err != nil {
				return retry.RetryableError(err)
			}
			snapshot = rows
			return nil
		})
		if err != nil {
			return err
		}
		onChange(snapshot)
		return nil
	}

	bus.register(sub)
	go sub.run()
	return sub
}

// Inert returns a subscription that never emits. Its Dispose is a no-op.
// Used where the scope a query depends on (the active household) is absent.
func Inert() *Subscription {
	return &Subscription{stop: make(chan struct{})}
}

// Dispose tears the subscription down. Safe to call more than once, but
// callers are expected to call it exactly once when the dependent scope
// ends.
func (s *Subscription) Dispose() {
	s.once.Do(func() {
		if s.bus != nil {
			s.bus.unregister(s)
		}
		close(s.stop)
	})
}

func (s *Subscription) matches(ev Event) bool {
	if ev.Topic != s.topic {
		return false
	}
	return s.scope == "" || ev.Scope == "" || ev.Scope == s.scope
}

// wake coalesces pending notifications: a refresh already queued covers any
// number of further events.
func (s *Subscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	s.doRefresh()

	for {
		select {
		case <-s.stop:
			return
		case <-s.notify:
			s.doRefresh()
		}
	}
}

func (s *Subscription) doRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := s.refresh(ctx); err != nil {
		// Last good snapshot stays in place; dependents keep rendering it.
		s.logger.Error("subscription refresh", "topic", s.topic, "scope", s.scope, "error", err)
	}
}
