package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hearthware/pantree/internal/identity"
	"github.com/hearthware/pantree/internal/model"
	"github.com/hearthware/pantree/internal/session"
	"github.com/hearthware/pantree/internal/store"
	"github.com/hearthware/pantree/internal/suggest"
	"github.com/hearthware/pantree/internal/websocket"
)

const defaultPageSize = 25

type ItemHandler struct {
	items    *store.ItemStore
	sessions *session.Manager
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewItemHandler(items *store.ItemStore, sessions *session.Manager, hub *websocket.Hub, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, sessions: sessions, hub: hub, logger: logger}
}

type createItemRequest struct {
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Quantity float64    `json:"quantity"`
	Unit     string     `json:"unit"`
	Note     string     `json:"note"`
	DueDate  *time.Time `json:"due_date,omitempty"`
}

// Create adds a pending item to the caller's active household.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	household, ok := activeHousehold(w, h.sessions, id.UserID)
	if !ok {
		return
	}

	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		return
	}
	if req.Type == "" {
		if t, ok := suggest.Type(req.Name); ok {
			req.Type = t
		}
	}

	item, err := h.items.Create(r.Context(), household.ID, id.UserID, store.CreateItemParams{
		Name:     req.Name,
		Type:     req.Type,
		Quantity: req.Quantity,
		Unit:     req.Unit,
		Note:     req.Note,
		DueDate:  req.DueDate,
	})
	if err != nil {
		h.logger.Error("create item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create item"})
		return
	}

	h.hub.BroadcastHousehold(household.ID, websocket.NewMessage("item", "created", item.ID, household.ID))
	writeJSON(w, http.StatusCreated, item)
}

type manualEntryRequest struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Note        string  `json:"note"`
	Price       float64 `json:"price"`
	PurchasedAt string  `json:"purchased_at"`
}

// parsePurchasedAt accepts a full timestamp or a bare date. A bare date is
// taken as midnight UTC, which keeps it inside the right report month.
func parsePurchasedAt(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// ManualEntry records a past purchase directly as a completed item, for
// buying that happened off-list (cash purchases, receipts entered later).
func (h *ItemHandler) ManualEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	household, ok := activeHousehold(w, h.sessions, id.UserID)
	if !ok {
		return
	}

	var req manualEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		return
	}
	if req.Price < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must not be negative"})
		return
	}
	purchasedAt, err := parsePurchasedAt(req.PurchasedAt)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "purchased_at must be a date or RFC 3339 timestamp"})
		return
	}
	if req.Type == "" {
		if t, ok := suggest.Type(req.Name); ok {
			req.Type = t
		}
	}

	item, err := h.items.RecordPurchase(r.Context(), household.ID, id.UserID, store.RecordPurchaseParams{
		Name:        req.Name,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		Note:        req.Note,
		Price:       req.Price,
		PurchasedAt: purchasedAt,
	})
	if err != nil {
		h.logger.Error("record purchase", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record purchase"})
		return
	}

	h.hub.BroadcastHousehold(household.ID, websocket.NewMessage("item", "created", item.ID, household.ID))
	writeJSON(w, http.StatusCreated, item)
}

type updateItemRequest struct {
	Name     *string    `json:"name,omitempty"`
	Type     *string    `json:"type,omitempty"`
	Quantity *float64   `json:"quantity,omitempty"`
	Unit     *string    `json:"unit,omitempty"`
	Note     *string    `json:"note,omitempty"`
	DueDate  *time.Time `json:"due_date,omitempty"`
}

// Update patches the item's editable fields. The item must belong to the
// caller's active household.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	household, ok := activeHousehold(w, h.sessions, id.UserID)
	if !ok {
		return
	}

	item, ok := h.lookupItem(w, r, household.ID)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name cannot be empty"})
			return
		}
		req.Name = &trimmed
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		return
	}

	updated, err := h.items.Update(r.Context(), item.ID, store.UpdateItemParams{
		Name:     req.Name,
		Type:     req.Type,
		Quantity: req.Quantity,
		Unit:     req.Unit,
		Note:     req.Note,
		DueDate:  req.DueDate,
	})
	if err != nil {
		h.logger.Error("update item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update item"})
		return
	}

	h.hub.BroadcastHousehold(household.ID, websocket.NewMessage("item", "updated", item.ID, household.ID))
	writeJSON(w, http.StatusOK, updated)
}

type completeItemRequest struct {
	Price float64 `json:"price"`
}

// Complete marks the item purchased by the caller at the given price.
func (h *ItemHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	household, ok := activeHousehold(w, h.sessions, id.UserID)
	if !ok {
		return
	}

	item, ok := h.lookupItem(w, r, household.ID)
	if !ok {
		return
	}

	var req completeItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Price < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price cannot be negative"})
		return
	}

	completed, err := h.items.Complete(r.Context(), item.ID, req.Price, id.UserID)
	if err != nil {
		h.logger.Error("complete item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete item"})
		return
	}

	h.hub.BroadcastHousehold(household.ID, websocket.NewMessage("item", "completed", item.ID, household.ID))
	writeJSON(w, http.StatusOK, completed)
}

// Delete removes the item outright.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	household, ok := activeHousehold(w, h.sessions, id.UserID)
	if !ok {
		return
	}

	item, ok := h.lookupItem(w, r, household.ID)
	if !ok {
		return
	}

	if err := h.items.Delete(r.Context(), item.ID); err != nil {
		h.logger.Error("delete item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete item"})
		return
	}

	h.hub.BroadcastHousehold(household.ID, websocket.NewMessage("item", "deleted", item.ID, household.ID))
	w.WriteHeader(http.StatusNoContent)
}

// List returns the active household's items, pending by default.
// ?status=completed selects the purchased set instead.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	household, ok := activeHousehold(w, h.sessions, id.UserID)
	if !ok {
		return
	}

	var (
		items []model.Item
		err   error
	)
	switch r.URL.Query().Get("status") {
	case "", model.ItemStatusPending:
		items, err = h.items.ListPending(r.Context(), household.ID)
	case model.ItemStatusCompleted:
		items, err = h.items.ListCompleted(r.Context(), household.ID)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list items"})
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// CompletedPage returns one page of purchase history, newest first.
// ?cursor= continues from a previous page; ?page_size= caps the page.
func (h *ItemHandler) CompletedPage(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	household, ok := activeHousehold(w, h.sessions, id.UserID)
	if !ok {
		return
	}

	pageSize := defaultPageSize
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid page_size"})
			return
		}
		pageSize = n
	}

	page, err := h.items.ListCompletedPage(r.Context(), household.ID, pageSize, r.URL.Query().Get("cursor"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cursor"})
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// SuggestType returns the default type for an item name, for pre-filling
// the create form.
func (h *ItemHandler) SuggestType(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	t, ok := suggest.Type(name)
	writeJSON(w, http.StatusOK, map[string]any{"type": t, "matched": ok})
}

// lookupItem fetches the path item and rejects cross-household access.
func (h *ItemHandler) lookupItem(w http.ResponseWriter, r *http.Request, householdID string) (*model.Item, bool) {
	item, err := h.items.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load item"})
		return nil, false
	}
	if item == nil || item.HouseholdID != householdID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return nil, false
	}
	return item, true
}
