// Package api wires the HTTP surface: a Server that owns the router and
// the per-domain handler groups.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/netfusion/netfusion/pkg/auth"
	"github.com/netfusion/netfusion/pkg/httputil"
	"github.com/netfusion/netfusion/pkg/mapmedia"
	"github.com/netfusion/netfusion/pkg/middleware"
	"github.com/netfusion/netfusion/pkg/observability"
	"github.com/netfusion/netfusion/pkg/store"
)

// Server represents the API server.
type Server struct {
	router   *mux.Router
	store    *store.Store
	sessions *auth.SessionManager
	media    *mapmedia.Store
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// Options carries the collaborators the server needs.
type Options struct {
	Store      *store.Store
	Sessions   *auth.SessionManager
	Media      *mapmedia.Store
	Metrics    *observability.Metrics
	Logger     *observability.Logger
	ResetToken string
}

// NewServer creates the API server and registers all routes.
func NewServer(opts Options) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		store:    opts.Store,
		sessions: opts.Sessions,
		media:    opts.Media,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	s.setupRoutes(opts.ResetToken)
	return s
}

// setupRoutes configures all the API routes. Three tiers: public (auth
// bootstrap), authenticated, and admin.
func (s *Server) setupRoutes(resetToken string) {
	s.router.Use(s.metrics.HTTPMiddleware)
	s.router.Use(s.logger.RequestMiddleware)
	s.router.Use(httputil.RecoveryMiddleware)
	s.router.Use(httputil.LoggingMiddleware)

	api := s.router.PathPrefix("/api").Subrouter()

	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.SessionMiddleware(s.sessions, s.metrics, s.logger))

	// Endpoint and map reads expose infrastructure configuration, so they
	// require the user role; read_only accounts only get the device and
	// site listings their grants allow.
	user := authed.NewRoute().Subrouter()
	user.Use(middleware.RequireMinRole(auth.RoleUser, s.metrics))

	admin := authed.NewRoute().Subrouter()
	admin.Use(middleware.RequireMinRole(auth.RoleAdmin, s.metrics))

	authHandlers := NewAuthHandlers(s.store, s.sessions, resetToken)
	authHandlers.RegisterRoutes(api, authed)

	NewUserHandlers(s.store).RegisterRoutes(admin)
	NewSiteHandlers(s.store, s.metrics).RegisterRoutes(authed, admin)
	NewDeviceHandlers(s.store).RegisterRoutes(authed)
	NewEndpointHandlers(s.store).RegisterRoutes(user, admin)
	NewMapHandlers(s.store, s.media).RegisterRoutes(user, admin)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the mux router for route tests.
func (s *Server) Router() *mux.Router {
	return s.router
}
