package items

import (
	"context"
	"testing"
)

func TestPagerWalksFeed(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C", "D", "E"} {
		item := f.addItem(t, f.hhA, name)
		if _, err := f.items.Complete(ctx, item.ID, 1, "owner"); err != nil {
			t.Fatalf("complete %s: %v", name, err)
		}
	}

	p := NewPager(f.items, f.hhA, 2)

	loaded, err := p.LoadMore(ctx)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(loaded) != 2 || p.Done() {
		t.Fatalf("after first page: %d items, done=%v", len(loaded), p.Done())
	}

	for !p.Done() {
		if loaded, err = p.LoadMore(ctx); err != nil {
			t.Fatalf("load more: %v", err)
		}
	}
	if len(loaded) != 5 {
		t.Errorf("loaded %d items, want all 5", len(loaded))
	}

	seen := make(map[string]bool)
	for _, item := range loaded {
		if seen[item.ID] {
			t.Errorf("item %s loaded twice", item.Name)
		}
		seen[item.ID] = true
	}

	// Loading past the end stays stable.
	again, err := p.LoadMore(ctx)
	if err != nil {
		t.Fatalf("load past end: %v", err)
	}
	if len(again) != 5 {
		t.Errorf("loaded %d after exhaustion, want 5", len(again))
	}
}

func TestPagerDedupsShiftedBoundary(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C", "D"} {
		item := f.addItem(t, f.hhA, name)
		if _, err := f.items.Complete(ctx, item.ID, 1, "owner"); err != nil {
			t.Fatalf("complete %s: %v", name, err)
		}
	}

	p := NewPager(f.items, f.hhA, 2)
	if _, err := p.LoadMore(ctx); err != nil {
		t.Fatalf("first page: %v", err)
	}

	// A purchase lands between fetches and shifts every page boundary.
	late := f.addItem(t, f.hhA, "Late")
	if _, err := f.items.Complete(ctx, late.ID, 1, "owner"); err != nil {
		t.Fatalf("complete late: %v", err)
	}

	loaded, err := p.LoadMore(ctx)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	seen := make(map[string]bool)
	for _, item := range loaded {
		if seen[item.ID] {
			t.Errorf("item %s appears twice after boundary shift", item.Name)
		}
		seen[item.ID] = true
	}
}

func TestPagerEmptyFeed(t *testing.T) {
	f := setupEngineTest(t)

	p := NewPager(f.items, f.hhA, 2)
	loaded, err := p.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("loaded %d from empty feed", len(loaded))
	}
	if !p.Done() {
		t.Error("empty feed should be done after one fetch")
	}
}
