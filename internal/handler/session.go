package handler

import (
	"log/slog"
	"net/http"

	"github.com/hearthware/pantree/internal/identity"
	"github.com/hearthware/pantree/internal/model"
	"github.com/hearthware/pantree/internal/session"
	"github.com/hearthware/pantree/internal/store"
)

type SessionHandler struct {
	sessions *session.Manager
	users    *store.UserStore
	logger   *slog.Logger
}

func NewSessionHandler(sessions *session.Manager, users *store.UserStore, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, users: users, logger: logger}
}

type sessionResponse struct {
	UserID          string            `json:"user_id"`
	ActiveHousehold *model.Household  `json:"active_household"`
	Households      []model.Household `json:"households"`
}

func (h *SessionHandler) sessionState(s *session.Session) sessionResponse {
	resp := sessionResponse{
		UserID:          s.UserID,
		ActiveHousehold: s.Active(),
		Households:      s.Households(),
	}
	if resp.Households == nil {
		resp.Households = []model.Household{}
	}
	return resp
}

// Start brings the caller's sync session up. Idempotent: an existing
// session is returned as-is.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	if _, err := h.users.Ensure(r.Context(), id.UserID, id.Email); err != nil {
		h.logger.Error("ensure user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start session"})
		return
	}
	s := h.sessions.Start(id.UserID, id.Email)
	writeJSON(w, http.StatusOK, h.sessionState(s))
}

// Get returns the caller's current session state.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	s := h.sessions.Get(id.UserID)
	if s == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active session"})
		return
	}
	writeJSON(w, http.StatusOK, h.sessionState(s))
}

// End tears the session down, disposing every live subscription it owns.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	h.sessions.End(id.UserID)
	w.WriteHeader(http.StatusNoContent)
}
