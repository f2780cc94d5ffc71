package middleware

import (
	"net/http"
	"strings"

	"github.com/hearthware/pantree/internal/identity"
)

const (
	userIDHeader = "X-User-ID"
	emailHeader  = "X-User-Email"
)

// RequireIdentity extracts the caller's identity from the trusted headers
// set by the upstream auth layer and rejects requests without one. The
// identity is placed in the request context for handlers.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(userIDHeader))
		email := strings.ToLower(strings.TrimSpace(r.Header.Get(emailHeader)))
		if userID == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := identity.WithIdentity(r.Context(), identity.Identity{UserID: userID, Email: email})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
