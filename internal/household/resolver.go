// Package household selects the single active household for a user from
// the live membership view and a ranked set of preference sources, and
// keeps the preference stores consistent with whatever was selected.
package household

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hearthware/pantree/internal/localprefs"
	"github.com/hearthware/pantree/internal/model"
	"github.com/hearthware/pantree/internal/store"
)

// preferenceTimeout bounds the remote preference read during resolution so
// a slow store degrades to the next priority tier instead of hanging.
const preferenceTimeout = 10 * time.Second

// Resolver owns the active-household selection for one user. It is driven
// by membership snapshots (Resolve) and explicit switches (Switch); every
// selection is written through to the device-local store and, best-effort,
// to the user's remote preference record.
type Resolver struct {
	userID string
	users  *store.UserStore
	prefs  *localprefs.Store
	logger *slog.Logger

	// onActive fires whenever the active household changes, including to
	// nil when the user no longer belongs anywhere.
	onActive func(*model.Household)

	mu          sync.Mutex
	memberships []model.Household
	active      *model.Household
}

func NewResolver(userID string, users *store.UserStore, prefs *localprefs.Store, onActive func(*model.Household), logger *slog.Logger) *Resolver {
	return &Resolver{
		userID:   userID,
		users:    users,
		prefs:    prefs,
		onActive: onActive,
		logger:   logger,
	}
}

// Active returns the currently selected household, or nil.
func (r *Resolver) Active() *model.Household {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Memberships returns the membership view the last resolution used.
func (r *Resolver) Memberships() []model.Household {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memberships
}

// Resolve re-runs the full priority selection against a fresh membership
// snapshot. It always starts from scratch: a membership change may have
// invalidated the previous selection, so validating the old choice is not
// enough.
//
// Priority order: remote last-active, remote default, device-local last
// selected, owned household, first household (oldest created). An empty
// view clears the selection.
func (r *Resolver) Resolve(snapshot []model.Household) {
	selected := r.pick(snapshot)

	r.mu.Lock()
	r.memberships = snapshot
	changed := !sameHousehold(r.active, selected)
	r.active = selected
	r.mu.Unlock()

	if selected != nil {
		r.persistSelection(selected.ID)
	}
	if changed && r.onActive != nil {
		r.onActive(selected)
	}
}

// Switch makes householdID the active household if it is in the current
// membership view. An unknown id is a no-op: callers are responsible for
// offering only valid choices, so there is nothing to report.
func (r *Resolver) Switch(householdID string) {
	r.mu.Lock()
	var target *model.Household
	for i := range r.memberships {
		if r.memberships[i].ID == householdID {
			target = &r.memberships[i]
			break
		}
	}
	if target == nil {
		r.mu.Unlock()
		return
	}
	changed := !sameHousehold(r.active, target)
	r.active = target
	r.mu.Unlock()

	r.persistSelection(target.ID)
	if changed && r.onActive != nil {
		r.onActive(target)
	}
}

func (r *Resolver) pick(snapshot []model.Household) *model.Household {
	if len(snapshot) == 0 {
		return nil
	}

	byID := func(id string) *model.Household {
		for i := range snapshot {
			if snapshot[i].ID == id {
				return &snapshot[i]
			}
		}
		return nil
	}

	// Tiers 1 and 2: remote preference record. A failed read falls through
	// to the device-local tier rather than failing resolution.
	ctx, cancel := context.WithTimeout(context.Background(), preferenceTimeout)
	defer cancel()
	prefs, err := r.users.GetPreferences(ctx, r.userID)
	if err != nil {
		r.logger.Warn("preference read failed, falling back", "user_id", r.userID, "error", err)
	} else {
		if prefs.LastActiveHouseholdID != nil {
			if h := byID(*prefs.LastActiveHouseholdID); h != nil {
				return h
			}
		}
		if prefs.DefaultHouseholdID != nil {
			if h := byID(*prefs.DefaultHouseholdID); h != nil {
				return h
			}
		}
	}

	// Tier 3: device-local last selection.
	if saved, err := r.prefs.CurrentHousehold(r.userID); err != nil {
		r.logger.Warn("local preference read failed", "user_id", r.userID, "error", err)
	} else if saved != "" {
		if h := byID(saved); h != nil {
			return h
		}
	}

	// Tier 4: a household the user owns.
	for i := range snapshot {
		if snapshot[i].OwnerID == r.userID {
			return &snapshot[i]
		}
	}

	// Tier 5: first household. The membership query orders by creation
	// time, so "first" is the oldest household, deterministically.
	return &snapshot[0]
}

// persistSelection writes the selection to the device-local store and kicks
// off the best-effort remote last-active update. Neither failure reaches
// the caller: these are convenience caches, not correctness state.
func (r *Resolver) persistSelection(householdID string) {
	if err := r.prefs.SetCurrentHousehold(r.userID, householdID); err != nil {
		r.logger.Warn("local preference write failed", "user_id", r.userID, "error", err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), preferenceTimeout)
		defer cancel()
		if err := r.users.SetLastActiveHousehold(ctx, r.userID, householdID); err != nil {
			r.logger.Warn("last-active sync failed", "user_id", r.userID, "error", err)
		}
	}()
}

func sameHousehold(a, b *model.Household) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
