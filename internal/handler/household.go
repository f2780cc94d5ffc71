package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hearthware/pantree/internal/identity"
	"github.com/hearthware/pantree/internal/invitation"
	"github.com/hearthware/pantree/internal/model"
	"github.com/hearthware/pantree/internal/session"
	"github.com/hearthware/pantree/internal/store"
	"github.com/hearthware/pantree/internal/websocket"
)

type HouseholdHandler struct {
	households *store.HouseholdStore
	users      *store.UserStore
	workflow   *invitation.Workflow
	sessions   *session.Manager
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewHouseholdHandler(hs *store.HouseholdStore, us *store.UserStore, wf *invitation.Workflow, sessions *session.Manager, hub *websocket.Hub, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{
		households: hs,
		users:      us,
		workflow:   wf,
		sessions:   sessions,
		hub:        hub,
		logger:     logger,
	}
}

type householdRequest struct {
	Name string `json:"name"`
}

// Create makes a new household with the caller as owner and sole member,
// and marks it the caller's default and last-active household.
func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	var req householdRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	household, err := h.households.Create(r.Context(), id.UserID, req.Name)
	if err != nil {
		h.logger.Error("create household", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create household"})
		return
	}

	if err := h.users.SetDefaultHousehold(r.Context(), id.UserID, household.ID); err != nil {
		h.logger.Error("set default household", "error", err)
	}
	if err := h.users.SetLastActiveHousehold(r.Context(), id.UserID, household.ID); err != nil {
		h.logger.Error("set last active household", "error", err)
	}

	h.hub.BroadcastHousehold(household.ID, websocket.NewMessage("household", "created", household.ID, household.ID))
	writeJSON(w, http.StatusCreated, household)
}

// List returns the caller's membership view.
func (h *HouseholdHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	households, err := h.households.ListForUser(r.Context(), id.UserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list households"})
		return
	}
	if households == nil {
		households = []model.Household{}
	}
	writeJSON(w, http.StatusOK, households)
}

// Rename updates the household's name. Only members may rename.
func (h *HouseholdHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	householdID := r.PathValue("id")

	ok, err := h.households.IsMember(r.Context(), householdID, id.UserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check membership"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a member of this household"})
		return
	}

	var req householdRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	household, err := h.households.Rename(r.Context(), householdID, req.Name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to rename household"})
		return
	}

	h.hub.BroadcastHousehold(householdID, websocket.NewMessage("household", "updated", householdID, householdID))
	writeJSON(w, http.StatusOK, household)
}

type switchRequest struct {
	HouseholdID string `json:"household_id"`
}

// Switch changes the caller's active household. Ids outside the caller's
// membership view are silently ignored; the response carries whatever
// household ended up active.
func (h *HouseholdHandler) Switch(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	s := h.sessions.Get(id.UserID)
	if s == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active session"})
		return
	}

	var req switchRequest
	if err := decodeJSON(r, &req); err != nil || req.HouseholdID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "household_id is required"})
		return
	}

	s.Switch(req.HouseholdID)
	writeJSON(w, http.StatusOK, map[string]any{"active_household": s.Active()})
}

// Members lists the household's member set with profile details.
func (h *HouseholdHandler) Members(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	householdID := r.PathValue("id")

	ok, err := h.households.IsMember(r.Context(), householdID, id.UserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check membership"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a member of this household"})
		return
	}

	members, err := h.households.ListMembers(r.Context(), householdID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list members"})
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

// RemoveMember takes a user out of the household's member set.
func (h *HouseholdHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	householdID := r.PathValue("id")
	userID := r.PathValue("user_id")

	ok, err := h.households.IsMember(r.Context(), householdID, id.UserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check membership"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a member of this household"})
		return
	}

	if err := h.workflow.RemoveMember(r.Context(), householdID, userID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to remove member"})
		return
	}

	h.hub.BroadcastHousehold(householdID, websocket.NewMessage("member", "removed", userID, householdID))
	w.WriteHeader(http.StatusNoContent)
}

// SetDefault records the caller's default household preference.
func (h *HouseholdHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	var req switchRequest
	if err := decodeJSON(r, &req); err != nil || req.HouseholdID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "household_id is required"})
		return
	}

	ok, err := h.households.IsMember(r.Context(), req.HouseholdID, id.UserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check membership"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a member of this household"})
		return
	}

	if err := h.users.SetDefaultHousehold(r.Context(), id.UserID, req.HouseholdID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to set default household"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
