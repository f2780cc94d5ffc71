package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hearthware/pantree/internal/email"
	"github.com/hearthware/pantree/internal/handler"
	"github.com/hearthware/pantree/internal/invitation"
	"github.com/hearthware/pantree/internal/live"
	"github.com/hearthware/pantree/internal/localprefs"
	"github.com/hearthware/pantree/internal/middleware"
	"github.com/hearthware/pantree/internal/session"
	"github.com/hearthware/pantree/internal/store"
	ws "github.com/hearthware/pantree/internal/websocket"
)

type Server struct {
	db          *sql.DB
	bus         *live.Bus
	hub         *ws.Hub
	sessions    *session.Manager
	sessionH    *handler.SessionHandler
	householdH  *handler.HouseholdHandler
	itemH       *handler.ItemHandler
	catalogH    *handler.CatalogHandler
	invitationH *handler.InvitationHandler
	reportH     *handler.ReportHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, prefs *localprefs.Store, mailer *email.Client, logger *slog.Logger) *Server {
	bus := live.NewBus()
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db, bus)
	householdStore := store.NewHouseholdStore(db, bus)
	itemStore := store.NewItemStore(db, bus)
	catalogStore := store.NewCatalogStore(db, bus)
	invitationStore := store.NewInvitationStore(db, bus)

	// Session snapshots flow out over the websocket as push messages.
	// Unlike entity change notifications, these carry the data itself:
	// the session layer already holds the fresh snapshot, so clients
	// need no follow-up fetch.
	push := func(userID, view string, payload any) {
		hub.BroadcastUser(userID, ws.Message{
			Type:   "snapshot",
			Entity: view,
			Action: "refresh",
			Extra:  map[string]any{"data": payload},
		})
	}

	sessions := session.NewManager(bus, userStore, householdStore, itemStore, catalogStore, invitationStore, prefs, push,
		logger.With("component", "session"))

	workflow := invitation.NewWorkflow(invitationStore, householdStore, mailer, logger.With("component", "invitation"))

	return &Server{
		db:          db,
		bus:         bus,
		hub:         hub,
		sessions:    sessions,
		sessionH:    handler.NewSessionHandler(sessions, userStore, logger.With("component", "session_handler")),
		householdH:  handler.NewHouseholdHandler(householdStore, userStore, workflow, sessions, hub, logger.With("component", "household")),
		itemH:       handler.NewItemHandler(itemStore, sessions, hub, logger.With("component", "item")),
		catalogH:    handler.NewCatalogHandler(catalogStore, sessions, hub, logger.With("component", "catalog")),
		invitationH: handler.NewInvitationHandler(workflow, invitationStore, userStore, sessions, hub, logger.With("component", "invitation_handler")),
		reportH:     handler.NewReportHandler(itemStore, sessions, logger.With("component", "report")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Sessions returns the session manager for shutdown cleanup.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)
	outerMux.Handle("/", middleware.RequireIdentity(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session lifecycle
	mux.HandleFunc("POST /api/session", s.sessionH.Start)
	mux.HandleFunc("GET /api/session", s.sessionH.Get)
	mux.HandleFunc("DELETE /api/session", s.sessionH.End)

	// Household API routes
	mux.HandleFunc("POST /api/households", s.householdH.Create)
	mux.HandleFunc("GET /api/households", s.householdH.List)
	mux.HandleFunc("PUT /api/households/{id}", s.householdH.Rename)
	mux.HandleFunc("POST /api/households/switch", s.householdH.Switch)
	mux.HandleFunc("POST /api/households/default", s.householdH.SetDefault)
	mux.HandleFunc("GET /api/households/{id}/members", s.householdH.Members)
	mux.HandleFunc("DELETE /api/households/{id}/members/{user_id}", s.householdH.RemoveMember)

	// Item API routes
	mux.HandleFunc("POST /api/items", s.itemH.Create)
	mux.HandleFunc("GET /api/items", s.itemH.List)
	mux.HandleFunc("POST /api/items/manual", s.itemH.ManualEntry)
	mux.HandleFunc("GET /api/items/completed", s.itemH.CompletedPage)
	mux.HandleFunc("GET /api/items/suggest-type", s.itemH.SuggestType)
	mux.HandleFunc("PUT /api/items/{id}", s.itemH.Update)
	mux.HandleFunc("DELETE /api/items/{id}", s.itemH.Delete)
	mux.HandleFunc("POST /api/items/{id}/complete", s.itemH.Complete)

	// Catalog API routes (kinds: type, unit)
	mux.HandleFunc("GET /api/catalog/{kind}", s.catalogH.List)
	mux.HandleFunc("POST /api/catalog/{kind}", s.catalogH.Add)
	mux.HandleFunc("DELETE /api/catalog/{kind}/{id}", s.catalogH.Delete)

	// Invitation API routes
	mux.HandleFunc("POST /api/invitations", s.rateLimitedHandler(s.invitationH.Send))
	mux.HandleFunc("GET /api/invitations", s.invitationH.List)
	mux.HandleFunc("POST /api/invitations/{id}/accept", s.invitationH.Accept)
	mux.HandleFunc("POST /api/invitations/{id}/reject", s.invitationH.Reject)

	// Reports
	mux.HandleFunc("GET /api/reports/monthly", s.reportH.Monthly)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
