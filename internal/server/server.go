package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cloakd/cloakd/internal/audit"
	"github.com/cloakd/cloakd/internal/cache"
	"github.com/cloakd/cloakd/internal/config"
	"github.com/cloakd/cloakd/internal/engine"
	"github.com/cloakd/cloakd/internal/logger"
	"github.com/cloakd/cloakd/internal/web"
	"github.com/cloakd/cloakd/internal/websocket"
)

// Server exposes the anonymization engine over HTTP. The engine itself is
// I/O-free; everything here (cache, audit trail, dashboard events) is host
// plumbing around it. The engine pointer is swapped atomically on config
// hot reload while handlers read it, so it lives behind atomic.Pointer.
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	engine  atomic.Pointer[engine.Engine]
	router  *mux.Router
	server  *http.Server
	wsHub   *websocket.Hub
	cache   *cache.ResultCache
	auditor *audit.Store
	limiter *ipRateLimiter
}

// Options carries the optional collaborators a server may be wired with.
type Options struct {
	Cache   *cache.ResultCache
	Auditor *audit.Store
}

// New creates a server around a pre-built default engine. Requests that
// carry their own config get a request-scoped engine instead.
func New(cfg *config.Config, eng *engine.Engine, log *logger.Logger, opts Options) *Server {
	wsHub := websocket.NewHub(&websocket.HubConfig{
		BroadcastDetections: cfg.WebSocket.BroadcastDetections,
		BroadcastRequests:   cfg.WebSocket.BroadcastRequests,
		AllowedOrigins:      cfg.WebSocket.AllowedOrigins,
	}, log.WithComponent("websocket").Logger)

	s := &Server{
		config:  cfg,
		logger:  log.WithComponent("server"),
		router:  mux.NewRouter(),
		wsHub:   wsHub,
		cache:   opts.Cache,
		auditor: opts.Auditor,
		limiter: newIPRateLimiter(&cfg.RateLimit),
	}
	s.engine.Store(eng)

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")

	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/anonymize", s.handleAnonymize).Methods("POST")
	api.HandleFunc("/entities", s.handleEntities).Methods("GET")
	api.HandleFunc("/audit", s.handleAuditRecent).Methods("GET")
	api.HandleFunc("/cache/stats", s.handleCacheStats).Methods("GET")
	api.HandleFunc("/cache", s.handleCacheClear).Methods("DELETE")
}

// Start starts the HTTP server and the WebSocket hub.
func (s *Server) Start() error {
	s.logger.Info("starting cloakd server",
		zap.Int("port", s.config.Server.Port),
		zap.Int("detectors", len(s.engine.Load().Detectors())),
		zap.Bool("cache", s.cache != nil),
		zap.Bool("audit", s.auditor != nil),
	)

	if s.config.WebSocket.Enabled {
		go s.wsHub.Run()
	}
	s.limiter.startCleanup()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping cloakd server")
	return s.server.Shutdown(ctx)
}

// SetEngine swaps the default engine, used on config hot reload. The swap
// is atomic; in-flight requests keep the engine they started with.
func (s *Server) SetEngine(eng *engine.Engine) {
	s.engine.Store(eng)
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	eng := s.engine.Load()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{
		"name":"cloakd",
		"version":%q,
		"locale":%q,
		"detectors":%d,
		"connected_clients":%d
	}`, Version, eng.Config().Locale, len(eng.Detectors()), s.wsHub.ClientCount())
}

// handleWebSocket handles WebSocket connections for the dashboard.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// Version is stamped by the build; the default marks dev builds.
var Version = "0.1.0"
