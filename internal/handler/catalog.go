package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hearthware/pantree/internal/identity"
	"github.com/hearthware/pantree/internal/model"
	"github.com/hearthware/pantree/internal/session"
	"github.com/hearthware/pantree/internal/store"
	"github.com/hearthware/pantree/internal/websocket"
)

type CatalogHandler struct {
	catalog  *store.CatalogStore
	sessions *session.Manager
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewCatalogHandler(catalog *store.CatalogStore, sessions *session.Manager, hub *websocket.Hub, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, sessions: sessions, hub: hub, logger: logger}
}

func catalogKind(w http.ResponseWriter, r *http.Request) (string, bool) {
	kind := r.PathValue("kind")
	if kind != model.CatalogKindType && kind != model.CatalogKindUnit {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown catalog kind"})
		return "", false
	}
	return kind, true
}

// List returns the active household's catalog names for the kind,
// alphabetically. ?with_ids=true returns full entries instead.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	kind, ok := catalogKind(w, r)
	if !ok {
		return
	}
	household, ok := activeHousehold(w, h.sessions, id.UserID)
	if !ok {
		return
	}

	if r.URL.Query().Get("with_ids") == "true" {
		entries, err := h.catalog.List(r.Context(), kind, household.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list catalog"})
			return
		}
		if entries == nil {
			entries = []model.CatalogEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}

	names, err := h.catalog.ListNames(r.Context(), kind, household.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list catalog"})
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

type catalogRequest struct {
	Name string `json:"name"`
}

// Add inserts a new name into the kind's catalog. Duplicate names within
// the household, case-insensitively, are rejected.
func (h *CatalogHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	kind, ok := catalogKind(w, r)
	if !ok {
		return
	}
	household, ok := activeHousehold(w, h.sessions, id.UserID)
	if !ok {
		return
	}

	var req catalogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	entry, err := h.catalog.Add(r.Context(), kind, household.ID, req.Name)
	if errors.Is(err, store.ErrDuplicateEntry) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "entry already exists"})
		return
	}
	if err != nil {
		h.logger.Error("add catalog entry", "kind", kind, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to add entry"})
		return
	}

	h.hub.BroadcastHousehold(household.ID, websocket.NewMessage(kind, "created", entry.ID, household.ID))
	writeJSON(w, http.StatusCreated, entry)
}

// Delete removes a catalog entry by id.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	kind, ok := catalogKind(w, r)
	if !ok {
		return
	}
	household, ok := activeHousehold(w, h.sessions, id.UserID)
	if !ok {
		return
	}

	entry, err := h.catalog.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load entry"})
		return
	}
	if entry == nil || entry.Kind != kind || entry.HouseholdID != household.ID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "entry not found"})
		return
	}

	if err := h.catalog.Delete(r.Context(), entry.ID); err != nil {
		h.logger.Error("delete catalog entry", "kind", kind, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete entry"})
		return
	}

	h.hub.BroadcastHousehold(household.ID, websocket.NewMessage(kind, "deleted", entry.ID, household.ID))
	w.WriteHeader(http.StatusNoContent)
}
