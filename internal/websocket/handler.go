package websocket

import (
	"log"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/hearthware/pantree/internal/identity"
)

// HandleWebSocket upgrades the connection and runs it as a hub client
// scoped to the household named in the query string. A client that wants a
// different household after a switch reconnects with the new id.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.FromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		householdID := r.URL.Query().Get("household_id")

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Allow connections from any origin (household LAN)
		})
		if err != nil {
			log.Printf("websocket: accept: %v", err)
			return
		}

		client := NewClient(hub, conn, id.UserID, householdID)
		client.Run(r.Context())
	}
}
