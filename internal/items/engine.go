// Package items keeps live, household-scoped views of the shopping data:
// pending items, completed items, and the type/unit catalogs. The engine
// re-subscribes whenever the active household changes; data from the
// previous household is never visible after a switch.
package items

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hearthware/pantree/internal/live"
	"github.com/hearthware/pantree/internal/model"
	"github.com/hearthware/pantree/internal/store"
)

// Handlers receives view snapshots. Nil funcs are skipped.
type Handlers struct {
	OnPending   func([]model.Item)
	OnCompleted func([]model.Item)
	OnTypes     func([]string)
	OnUnits     func([]string)
}

// Engine owns the item and catalog subscriptions for one session.
type Engine struct {
	bus     *live.Bus
	items   *store.ItemStore
	catalog *store.CatalogStore
	h       Handlers
	logger  *slog.Logger

	mu          sync.Mutex
	householdID string
	subs        []*live.Subscription

	pending   []model.Item
	completed []model.Item
	types     []string
	units     []string
}

func NewEngine(bus *live.Bus, items *store.ItemStore, catalog *store.CatalogStore, h Handlers, logger *slog.Logger) *Engine {
	return &Engine{
		bus:     bus,
		items:   items,
		catalog: catalog,
		h:       h,
		logger:  logger,
	}
}

// SetHousehold repoints every view at householdID. The previous household's
// subscriptions are disposed before any new one is created; losing an
// update across the switch is acceptable, showing stale rows from the old
// household is not. An empty id leaves the engine inert with cleared views.
func (e *Engine) SetHousehold(householdID string) {
	e.mu.Lock()
	old := e.subs
	e.subs = nil
	e.householdID = householdID
	e.pending, e.completed, e.types, e.units = nil, nil, nil, nil
	e.mu.Unlock()

	for _, sub := range old {
		sub.Dispose()
	}

	if householdID == "" {
		// Hold an inert placeholder so teardown treats the cleared
		// state like any other: Close always has something to dispose.
		e.mu.Lock()
		if e.householdID == "" {
			e.subs = []*live.Subscription{live.Inert()}
		}
		e.mu.Unlock()
		return
	}

	subs := []*live.Subscription{
		live.Subscribe(e.bus, live.TopicItems, householdID,
			func(ctx context.Context) ([]model.Item, error) {
				return e.items.ListPending(ctx, householdID)
			},
			func(snapshot []model.Item) {
				e.deliverItems(householdID, &e.pending, snapshot, e.h.OnPending)
			},
			e.logger,
		),
		live.Subscribe(e.bus, live.TopicItems, householdID,
			func(ctx context.Context) ([]model.Item, error) {
				return e.items.ListCompleted(ctx, householdID)
			},
			func(snapshot []model.Item) {
				e.deliverItems(householdID, &e.completed, snapshot, e.h.OnCompleted)
			},
			e.logger,
		),
		live.Subscribe(e.bus, live.TopicTypes, householdID,
			func(ctx context.Context) ([]string, error) {
				return e.catalog.ListNames(ctx, model.CatalogKindType, householdID)
			},
			func(snapshot []string) {
				e.deliverNames(householdID, &e.types, snapshot, e.h.OnTypes)
			},
			e.logger,
		),
		live.Subscribe(e.bus, live.TopicUnits, householdID,
			func(ctx context.Context) ([]string, error) {
				return e.catalog.ListNames(ctx, model.CatalogKindUnit, householdID)
			},
			func(snapshot []string) {
				e.deliverNames(householdID, &e.units, snapshot, e.h.OnUnits)
			},
			e.logger,
		),
	}

	e.mu.Lock()
	// A concurrent SetHousehold may have raced us; only keep the
	// subscriptions if we are still the current household.
	if e.householdID == householdID {
		e.subs = subs
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	for _, sub := range subs {
		sub.Dispose()
	}
}

// deliverItems stores a snapshot and forwards it, dropping emissions from a
// household that is no longer active.
func (e *Engine) deliverItems(householdID string, dst *[]model.Item, snapshot []model.Item, fn func([]model.Item)) {
	e.mu.Lock()
	if e.householdID != householdID {
		e.mu.Unlock()
		return
	}
	*dst = snapshot
	e.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
}

func (e *Engine) deliverNames(householdID string, dst *[]string, snapshot []string, fn func([]string)) {
	e.mu.Lock()
	if e.householdID != householdID {
		e.mu.Unlock()
		return
	}
	*dst = snapshot
	e.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
}

// Close disposes every subscription and clears the views.
func (e *Engine) Close() {
	e.SetHousehold("")
}

// HouseholdID returns the household the engine is currently bound to.
func (e *Engine) HouseholdID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.householdID
}

// Pending returns the latest pending-items snapshot.
func (e *Engine) Pending() []model.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Completed returns the latest completed-items snapshot (live, unpaginated).
func (e *Engine) Completed() []model.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed
}

// Types returns the latest type-catalog names.
func (e *Engine) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.types
}

// Units returns the latest unit-catalog names.
func (e *Engine) Units() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.units
}
