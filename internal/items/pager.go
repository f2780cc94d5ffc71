package items

import (
	"context"

	"github.com/hearthware/pantree/internal/model"
	"github.com/hearthware/pantree/internal/store"
)

// Pager accumulates pages of the completed-item feed for one household.
// Concurrent completions can shift page boundaries mid-walk, so appended
// pages are deduplicated by item id. A page shorter than the page size is
// treated as the end of the feed; a full final page costs one extra empty
// fetch, which is the accepted trade for not tracking a total count.
type Pager struct {
	items       *store.ItemStore
	householdID string
	pageSize    int

	loaded []model.Item
	seen   map[string]struct{}
	cursor string
	done   bool
}

func NewPager(items *store.ItemStore, householdID string, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Pager{
		items:       items,
		householdID: householdID,
		pageSize:    pageSize,
		seen:        make(map[string]struct{}),
	}
}

// LoadMore fetches the next page and appends unseen items. It returns the
// full accumulated list.
func (p *Pager) LoadMore(ctx context.Context) ([]model.Item, error) {
	if p.done {
		return p.loaded, nil
	}

	page, err := p.items.ListCompletedPage(ctx, p.householdID, p.pageSize, p.cursor)
	if err != nil {
		return nil, err
	}

	for _, item := range page.Items {
		if _, ok := p.seen[item.ID]; ok {
			continue
		}
		p.seen[item.ID] = struct{}{}
		p.loaded = append(p.loaded, item)
	}

	p.cursor = page.NextCursor
	if len(page.Items) < p.pageSize || page.NextCursor == "" {
		p.done = true
	}
	return p.loaded, nil
}

// Done reports whether the feed is exhausted.
func (p *Pager) Done() bool {
	return p.done
}

// Loaded returns the accumulated, deduplicated items.
func (p *Pager) Loaded() []model.Item {
	return p.loaded
}
