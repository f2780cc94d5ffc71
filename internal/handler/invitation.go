package handler

import (
	"errors"
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

type InvitationHandler struct {
	workflow    *invitation.Workflow
	invitations *store.InvitationStore
	users       *store.UserStore
	sessions    *session.Manager
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewInvitationHandler(wf *invitation.Workflow, is *store.InvitationStore, us *store.UserStore, sessions *session.Manager, hub *websocket.Hub, logger *slog.Logger) *InvitationHandler {
	return &InvitationHandler{
		workflow:    wf,
		invitations: is,
		users:       us,
		sessions:    sessions,
		hub:         hub,
		logger:      logger,
	}
}

type sendInvitationRequest struct {
	Email string `json:"email"`
}

// Send invites an email address to the caller's active household. At most
// one pending invitation may exist per household and recipient.
func (h *InvitationHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	household, ok := activeHousehold(w, h.sessions, id.UserID)
	if !ok {
		return
	}

	var req sendInvitationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	inv, err := h.workflow.Send(r.Context(), id.UserID, id.Email, req.Email, household.ID)
	if errors.Is(err, invitation.ErrEmptyEmail) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}
	if errors.Is(err, invitation.ErrDuplicateInvitation) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invitation already pending for this email"})
		return
	}
	if err != nil {
		h.logger.Error("send invitation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send invitation"})
		return
	}

	writeJSON(w, http.StatusCreated, inv)
}

// List returns the pending invitations addressed to the caller.
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	invs, err := h.invitations.ListForEmail(r.Context(), id.Email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list invitations"})
		return
	}
	if invs == nil {
		invs = []model.Invitation{}
	}
	writeJSON(w, http.StatusOK, invs)
}

// Accept joins the caller to the invited household and resolves the
// invitation. Accepting the same invitation twice is harmless.
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	inv, ok := h.lookupInvitation(w, r, id)
	if !ok {
		return
	}

	// Membership rows reference users; make sure the caller has one even
	// if they accept before ever starting a session.
	if _, err := h.users.Ensure(r.Context(), id.UserID, id.Email); err != nil {
		h.logger.Error("ensure user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to accept invitation"})
		return
	}

	if err := h.workflow.Accept(r.Context(), inv.ID, id.UserID, inv.HouseholdID); err != nil {
		h.logger.Error("accept invitation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to accept invitation"})
		return
	}

	h.hub.BroadcastHousehold(inv.HouseholdID, websocket.NewMessage("member", "added", id.UserID, inv.HouseholdID))
	w.WriteHeader(http.StatusNoContent)
}

// Reject resolves the invitation without joining.
func (h *InvitationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	inv, ok := h.lookupInvitation(w, r, id)
	if !ok {
		return
	}

	if err := h.workflow.Reject(r.Context(), inv.ID); err != nil {
		h.logger.Error("reject invitation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reject invitation"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lookupInvitation fetches the path invitation and confirms it is addressed
// to the caller.
func (h *InvitationHandler) lookupInvitation(w http.ResponseWriter, r *http.Request, id identity.Identity) (*model.Invitation, bool) {
	inv, err := h.invitations.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load invitation"})
		return nil, false
	}
	if inv == nil || !strings.EqualFold(inv.ToEmail, id.Email) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "invitation not found"})
		return nil, false
	}
	return inv, true
}
