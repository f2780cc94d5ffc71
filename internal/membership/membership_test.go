package membership

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

func setupMembershipTest(t *testing.T) (*live.Bus, *store.HouseholdStore, *store.UserStore) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	bus := live.NewBus()
	return bus, store.NewHouseholdStore(db, bus), store.NewUserStore(db, bus)
}

func waitView(t *testing.T, ch <-chan []model.Household, want func([]model.Household) bool) []model.Household {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-ch:
			if want(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for membership view")
			return nil
		}
	}
}

func TestMembershipDeliversFullSets(t *testing.T) {
	bus, hs, us := setupMembershipTest(t)
	ctx := context.Background()
	if _, err := us.Ensure(ctx, "u1", "u1@example.com"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	got := make(chan []model.Household, 16)
	sub := Subscribe(bus, hs, "u1", func(v []model.Household) { got <- v },
		slog.New(slog.DiscardHandler))
	defer sub.Dispose()

	// First snapshot: no memberships.
	waitView(t, got, func(v []model.Household) bool { return len(v) == 0 })

	h, err := hs.Create(ctx, "u1", "Home")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	view := waitView(t, got, func(v []model.Household) bool { return len(v) == 1 })
	if view[0].ID != h.ID {
		t.Errorf("view = %v, want the created household", view)
	}
	if cur := sub.Current(); len(cur) != 1 || cur[0].ID != h.ID {
		t.Errorf("Current() = %v, want cached latest view", cur)
	}

	// Removal propagates as a smaller full set, not a delta.
	if err := hs.RemoveMember(ctx, h.ID, "u1"); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	waitView(t, got, func(v []model.Household) bool { return len(v) == 0 })
}

func TestMembershipOldestFirst(t *testing.T) {
	bus, hs, us := setupMembershipTest(t)
	ctx := context.Background()
	if _, err := us.Ensure(ctx, "u1", "u1@example.com"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	first, err := hs.Create(ctx, "u1", "First")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := hs.Create(ctx, "u1", "Second"); err != nil {
		t.Fatalf("create: %v", err)
	}

	got := make(chan []model.Household, 16)
	sub := Subscribe(bus, hs, "u1", func(v []model.Household) { got <- v },
		slog.New(slog.DiscardHandler))
	defer sub.Dispose()

	view := waitView(t, got, func(v []model.Household) bool { return len(v) == 2 })
	if view[0].ID != first.ID {
		t.Errorf("view[0] = %s, want the oldest household first", view[0].Name)
	}
}
