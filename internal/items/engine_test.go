package items

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/hearthware/pantree/internal/database"
	"github.com/hearthware/pantree/internal/live"
	"github.com/hearthware/pantree/internal/model"
	"github.com/hearthware/pantree/internal/store"
)

type engineFixture struct {
	bus     *live.Bus
	items   *store.ItemStore
	catalog *store.CatalogStore
	hhA     string
	hhB     string
}

func setupEngineTest(t *testing.T) *engineFixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bus := live.NewBus()
	ctx := context.Background()
	if _, err := store.NewUserStore(db, bus).Ensure(ctx, "owner", "owner@example.com"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	hs := store.NewHouseholdStore(db, bus)
	a, err := hs.Create(ctx, "owner", "A")
	if err != nil {
		t.Fatalf("create household A: %v", err)
	}
	b, err := hs.Create(ctx, "owner", "B")
	if err != nil {
		t.Fatalf("create household B: %v", err)
	}
	return &engineFixture{
		bus:     bus,
		items:   store.NewItemStore(db, bus),
		catalog: store.NewCatalogStore(db, bus),
		hhA:     a.ID,
		hhB:     b.ID,
	}
}

func (f *engineFixture) addItem(t *testing.T, householdID, name string) *model.Item {
	t.Helper()
	item, err := f.items.Create(context.Background(), householdID, "owner", store.CreateItemParams{
		Name: name, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("create item %s: %v", name, err)
	}
	return item
}

func waitItems(t *testing.T, ch <-chan []model.Item, want func([]model.Item) bool) []model.Item {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snapshot := <-ch:
			if want(snapshot) {
				return snapshot
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching item snapshot")
			return nil
		}
	}
}

func waitNames(t *testing.T, ch <-chan []string, want func([]string) bool) []string {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snapshot := <-ch:
			if want(snapshot) {
				return snapshot
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching name snapshot")
			return nil
		}
	}
}

func TestEngineDeliversPendingSnapshot(t *testing.T) {
	f := setupEngineTest(t)
	f.addItem(t, f.hhA, "Milk")

	pending := make(chan []model.Item, 16)
	e := NewEngine(f.bus, f.items, f.catalog, Handlers{
		OnPending: func(s []model.Item) { pending <- s },
	}, slog.New(slog.DiscardHandler))
	defer e.Close()

	e.SetHousehold(f.hhA)
	waitItems(t, pending, func(s []model.Item) bool {
		return len(s) == 1 && s[0].Name == "Milk"
	})

	// A new item arrives as a fresh full snapshot, not a delta.
	f.addItem(t, f.hhA, "Bread")
	waitItems(t, pending, func(s []model.Item) bool { return len(s) == 2 })
}

func TestEngineScopedToActiveHousehold(t *testing.T) {
	f := setupEngineTest(t)
	f.addItem(t, f.hhA, "A item")
	f.addItem(t, f.hhB, "B item")

	pending := make(chan []model.Item, 16)
	e := NewEngine(f.bus, f.items, f.catalog, Handlers{
		OnPending: func(s []model.Item) { pending <- s },
	}, slog.New(slog.DiscardHandler))
	defer e.Close()

	e.SetHousehold(f.hhA)
	snapshot := waitItems(t, pending, func(s []model.Item) bool { return len(s) > 0 })
	for _, item := range snapshot {
		if item.HouseholdID != f.hhA {
			t.Errorf("snapshot leaked item from household %s", item.HouseholdID)
		}
	}
}

func TestEngineSwitchReplacesData(t *testing.T) {
	f := setupEngineTest(t)
	f.addItem(t, f.hhA, "A item")
	f.addItem(t, f.hhB, "B item")

	pending := make(chan []model.Item, 16)
	e := NewEngine(f.bus, f.items, f.catalog, Handlers{
		OnPending: func(s []model.Item) { pending <- s },
	}, slog.New(slog.DiscardHandler))
	defer e.Close()

	e.SetHousehold(f.hhA)
	waitItems(t, pending, func(s []model.Item) bool {
		return len(s) == 1 && s[0].Name == "A item"
	})

	e.SetHousehold(f.hhB)
	waitItems(t, pending, func(s []model.Item) bool {
		return len(s) == 1 && s[0].Name == "B item"
	})

	got := e.Pending()
	if len(got) != 1 || got[0].HouseholdID != f.hhB {
		t.Errorf("Pending() = %v, want only household B items after switch", got)
	}
	if e.HouseholdID() != f.hhB {
		t.Errorf("HouseholdID() = %q, want %q", e.HouseholdID(), f.hhB)
	}
}

func TestEngineClearHouseholdGoesInert(t *testing.T) {
	f := setupEngineTest(t)
	f.addItem(t, f.hhA, "A item")

	pending := make(chan []model.Item, 16)
	e := NewEngine(f.bus, f.items, f.catalog, Handlers{
		OnPending: func(s []model.Item) { pending <- s },
	}, slog.New(slog.DiscardHandler))

	e.SetHousehold(f.hhA)
	waitItems(t, pending, func(s []model.Item) bool { return len(s) == 1 })

	e.SetHousehold("")
	if e.Pending() != nil {
		t.Error("views should be cleared when no household is active")
	}
	if n := f.bus.SubscriptionCount(); n != 0 {
		t.Errorf("subscription count = %d, want 0 after clearing", n)
	}

	// Changes in the old household no longer reach the engine.
	f.addItem(t, f.hhA, "Late item")
	select {
	case s := <-pending:
		if len(s) > 0 {
			t.Errorf("received snapshot %v after engine went inert", s)
		}
	case <-time.After(100 * time.Millisecond):
	}

	// Clearing again and closing dispose the placeholder, nothing more.
	e.SetHousehold("")
	e.Close()
	if n := f.bus.SubscriptionCount(); n != 0 {
		t.Errorf("subscription count = %d, want 0 after close", n)
	}
}

func TestEngineCatalogViews(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()
	if _, err := f.catalog.Add(ctx, model.CatalogKindType, f.hhA, "Dairy"); err != nil {
		t.Fatalf("add type: %v", err)
	}
	if _, err := f.catalog.Add(ctx, model.CatalogKindUnit, f.hhA, "kg"); err != nil {
		t.Fatalf("add unit: %v", err)
	}

	types := make(chan []string, 16)
	units := make(chan []string, 16)
	e := NewEngine(f.bus, f.items, f.catalog, Handlers{
		OnTypes: func(s []string) { types <- s },
		OnUnits: func(s []string) { units <- s },
	}, slog.New(slog.DiscardHandler))
	defer e.Close()

	e.SetHousehold(f.hhA)
	waitNames(t, types, func(s []string) bool { return len(s) == 1 && s[0] == "Dairy" })
	waitNames(t, units, func(s []string) bool { return len(s) == 1 && s[0] == "kg" })

	if _, err := f.catalog.Add(ctx, model.CatalogKindType, f.hhA, "Bakery"); err != nil {
		t.Fatalf("add type: %v", err)
	}
	waitNames(t, types, func(s []string) bool { return len(s) == 2 })
}
