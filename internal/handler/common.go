package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hearthware/pantree/internal/model"
	"github.com/hearthware/pantree/internal/session"
)

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// activeHousehold looks up the caller's session and its active household.
// It writes the error response and returns ok=false when either is missing.
func activeHousehold(w http.ResponseWriter, sessions *session.Manager, userID string) (*model.Household, bool) {
	s := sessions.Get(userID)
	if s == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active session"})
		return nil, false
	}
	h := s.Active()
	if h == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active household"})
		return nil, false
	}
	return h, true
}
