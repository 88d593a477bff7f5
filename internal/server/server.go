// Package server exposes the inbound HTTP surface: the Asana webhook
// endpoint, the OAuth callback, interactive card submissions, bot command
// events and the operator reconcile endpoint.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/taskbridge/taskbridge/internal/asana"
	"github.com/taskbridge/taskbridge/internal/auth"
	"github.com/taskbridge/taskbridge/internal/chat"
	"github.com/taskbridge/taskbridge/internal/config"
	"github.com/taskbridge/taskbridge/internal/notification"
	"github.com/taskbridge/taskbridge/internal/store"
	"github.com/taskbridge/taskbridge/internal/subscription"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Server wires the HTTP handlers to the core components.
type Server struct {
	cfg          config.Config
	store        *store.Store
	oauthCfg     *oauth2.Config
	guard        *auth.Guard
	asana        *asana.Client
	chat         *chat.Client
	manager      *subscription.Manager
	router       *notification.Router
	sharedSecret string
	uuids        *notification.Dedupe
	log          *zap.Logger
}

// New creates the server.
func New(
	cfg config.Config,
	st *store.Store,
	oauthCfg *oauth2.Config,
	guard *auth.Guard,
	asanaClient *asana.Client,
	chatClient *chat.Client,
	manager *subscription.Manager,
	router *notification.Router,
	sharedSecret string,
	log *zap.Logger,
) *Server {
	return &Server{
		cfg:          cfg,
		store:        st,
		oauthCfg:     oauthCfg,
		guard:        guard,
		asana:        asanaClient,
		chat:         chatClient,
		manager:      manager,
		router:       router,
		sharedSecret: sharedSecret,
		uuids:        notification.NewDedupe(2048, time.Hour),
		log:          log,
	}
}

// Routes builds the chi router for all inbound endpoints.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/is-alive", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get("/oauth-callback", s.handleOAuthCallback)
	r.Post("/notification", s.handleNotification)
	r.Post("/interactive-messages", s.handleInteractive)
	r.Post("/bot/events", s.handleBotEvent)
	r.Post("/admin/reconcile", s.handleReconcile)
	return r
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
