// Package session ties the per-user sync machinery together: the
// membership subscription feeds the household resolver, and the resolver
// drives the item engine. There is no ambient global state; everything a
// user's views depend on hangs off their Session and dies with it.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hearthware/pantree/internal/household"
	"github.com/hearthware/pantree/internal/items"
	"github.com/hearthware/pantree/internal/live"
	"github.com/hearthware/pantree/internal/localprefs"
	"github.com/hearthware/pantree/internal/membership"
	"github.com/hearthware/pantree/internal/model"
	"github.com/hearthware/pantree/internal/store"
)

// View names used when pushing snapshots out to clients.
const (
	ViewActiveHousehold = "active_household"
	ViewPendingItems    = "pending_items"
	ViewCompletedItems  = "completed_items"
	ViewTypes           = "types"
	ViewUnits           = "units"
	ViewInvitations     = "invitations"
)

// Pusher delivers view snapshots to whatever transport the user is
// listening on.
type Pusher func(userID, view string, payload any)

// Session is the sync context for one signed-in user.
type Session struct {
	UserID string
	Email  string

	resolver   *household.Resolver
	engine     *items.Engine
	membership *membership.Subscription
	invSub     *live.Subscription

	closeOnce sync.Once
}

// Active returns the user's active household, or nil.
func (s *Session) Active() *model.Household {
	return s.resolver.Active()
}

// Households returns the current membership view.
func (s *Session) Households() []model.Household {
	return s.resolver.Memberships()
}

// Switch changes the active household. Ids outside the membership view are
// ignored.
func (s *Session) Switch(householdID string) {
	s.resolver.Switch(householdID)
}

// Engine exposes the item sync engine for the session's views.
func (s *Session) Engine() *items.Engine {
	return s.engine
}

// Close tears down the membership subscription and every downstream view.
// Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.membership.Dispose()
		s.invSub.Dispose()
		s.engine.Close()
	})
}

// Manager starts and ends sessions, one per user id.
type Manager struct {
	bus         *live.Bus
	users       *store.UserStore
	households  *store.HouseholdStore
	items       *store.ItemStore
	catalog     *store.CatalogStore
	invitations *store.InvitationStore
	prefs       *localprefs.Store
	push        Pusher
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(bus *live.Bus, users *store.UserStore, households *store.HouseholdStore, itemStore *store.ItemStore, catalog *store.CatalogStore, invitations *store.InvitationStore, prefs *localprefs.Store, push Pusher, logger *slog.Logger) *Manager {
	if push == nil {
		push = func(string, string, any) {}
	}
	return &Manager{
		bus:         bus,
		users:       users,
		households:  households,
		items:       itemStore,
		catalog:     catalog,
		invitations: invitations,
		prefs:       prefs,
		push:        push,
		logger:      logger,
		sessions:    make(map[string]*Session),
	}
}

// Start creates the user's session, or returns the existing one. The first
// membership snapshot resolves the active household and brings the item
// engine up; both happen asynchronously once the subscription delivers.
func (m *Manager) Start(userID, email string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s
	}

	logger := m.logger.With("user_id", userID)
	s := &Session{UserID: userID, Email: email}

	s.engine = items.NewEngine(m.bus, m.items, m.catalog, items.Handlers{
		OnPending:   func(snapshot []model.Item) { m.push(userID, ViewPendingItems, snapshot) },
		OnCompleted: func(snapshot []model.Item) { m.push(userID, ViewCompletedItems, snapshot) },
		OnTypes:     func(snapshot []string) { m.push(userID, ViewTypes, snapshot) },
		OnUnits:     func(snapshot []string) { m.push(userID, ViewUnits, snapshot) },
	}, logger)

	s.resolver = household.NewResolver(userID, m.users, m.prefs, func(h *model.Household) {
		if h != nil {
			s.engine.SetHousehold(h.ID)
		} else {
			s.engine.SetHousehold("")
		}
		m.push(userID, ViewActiveHousehold, h)
	}, logger)

	s.membership = membership.Subscribe(m.bus, m.households, userID, s.resolver.Resolve, logger)

	s.invSub = live.Subscribe(m.bus, live.TopicInvitations, email,
		func(ctx context.Context) ([]model.Invitation, error) {
			return m.invitations.ListForEmail(ctx, email)
		},
		func(snapshot []model.Invitation) { m.push(userID, ViewInvitations, snapshot) },
		logger,
	)

	m.sessions[userID] = s
	return s
}

// Get returns the user's session if one is running.
func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// End closes and forgets the user's session. Unknown users are a no-op.
func (m *Manager) End(userID string) {
	m.mu.Lock()
	s := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if s != nil {
		s.Close()
	}
}

// CloseAll ends every session, for shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
