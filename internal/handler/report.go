package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hearthware/pantree/internal/identity"
	"github.com/hearthware/pantree/internal/session"
	"github.com/hearthware/pantree/internal/store"
)

type ReportHandler struct {
	items    *store.ItemStore
	sessions *session.Manager
	logger   *slog.Logger
}

func NewReportHandler(items *store.ItemStore, sessions *session.Manager, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{items: items, sessions: sessions, logger: logger}
}

type monthlyReportResponse struct {
	Month  string            `json:"month"`
	Total  float64           `json:"total"`
	ByType []store.TypeTotal `json:"by_type"`
}

// Monthly sums the active household's purchases for a calendar month.
// ?month=YYYY-MM selects the month; the current month is the default.
func (h *ReportHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	household, ok := activeHousehold(w, h.sessions, id.UserID)
	if !ok {
		return
	}

	start := time.Now().UTC()
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "month must be YYYY-MM"})
			return
		}
		start = parsed
	}
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	total, byType, err := h.items.MonthlyReport(r.Context(), household.ID, start, end)
	if err != nil {
		h.logger.Error("monthly report", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build report"})
		return
	}
	if byType == nil {
		byType = []store.TypeTotal{}
	}

	writeJSON(w, http.StatusOK, monthlyReportResponse{
		Month:  start.Format("2006-01"),
		Total:  total,
		ByType: byType,
	})
}
