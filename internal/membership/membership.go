// Package membership maintains the live set of households a user belongs
// to. Each change to any household's member set re-runs the query and
// delivers a full replacement set, never deltas.
package membership

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hearthware/pantree/internal/live"
	"github.com/hearthware/pantree/internal/model"
	"github.com/hearthware/pantree/internal/store"
)

// Subscription is the membership view for one user. Households arrive
// oldest-created first, which pins down the "first household" fallback in
// resolution.
type Subscription struct {
	sub *live.Subscription

	mu      sync.RWMutex
	current []model.Household
}

// Subscribe starts watching the user's household memberships. onChange
// receives the full current set on subscribe and after every membership
// change, in subscription order. Dispose tears the watch down; call it
// exactly once when the user's session ends.
func Subscribe(bus *live.Bus, households *store.HouseholdStore, userID string, onChange func([]model.Household), logger *slog.Logger) *Subscription {
	s := &Subscription{}
	s.sub = live.Subscribe(bus, live.TopicHouseholds, "",
		func(ctx context.Context) ([]model.Household, error) {
			return households.ListForUser(ctx, userID)
		},
		func(snapshot []model.Household) {
			s.mu.Lock()
			s.current = snapshot
			s.mu.Unlock()
			onChange(snapshot)
		},
		logger,
	)
	return s
}

// Current returns the latest delivered membership view.
func (s *Subscription) Current() []model.Household {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Subscription) Dispose() {
	s.sub.Dispose()
}
