package live

import "sync"

// Topic identifies a collection that can be watched.
type Topic string

const (
	TopicHouseholds  Topic = "households"
	TopicItems       Topic = "items"
	TopicTypes       Topic = "types"
	TopicUnits       Topic = "units"
	TopicInvitations Topic = "invitations"
	TopicUsers       Topic = "users"
)

// Event describes a change to a collection. Scope narrows delivery: the
// owning household id for household-scoped collections, the lower-cased
// recipient email for invitations, or empty to reach every subscription on
// the topic.
type Event struct {
	Topic Topic
	Scope string
}

// Bus fans change events out to snapshot subscriptions. There is no
// ordering guarantee between subscriptions; each one re-queries and emits
// independently.
type Bus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Publish wakes every subscription whose filter matches the event. It never
// blocks: wake-ups are coalesced per subscription.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if sub.matches(ev) {
			sub.wake()
		}
	}
}

func (b *Bus) register(sub *Subscription) {
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
}

func (b *Bus) unregister(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// SubscriptionCount returns the number of registered subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
