// Package server exposes the menu pipeline over HTTP. Handlers decode
// a request DTO, validate it, call into the domain packages directly
// and translate the outcome back to wire shapes; no handler calls
// another handler over the network.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"ai-menu-builder/internal/config"
	"ai-menu-builder/internal/dishes"
	"ai-menu-builder/internal/menu"
	"ai-menu-builder/internal/metrics"
	"ai-menu-builder/internal/profile"
	"ai-menu-builder/internal/shared"
)

// Deps bundles everything the handlers reach for. Profiles is the
// writable local store; Loader may sit on top of it or on the remote
// profile service, depending on configuration.
type Deps struct {
	Loader       *profile.Loader
	Profiles     *profile.SQLiteStore
	Orchestrator *menu.Orchestrator
	Menus        *menu.Repository
	Metrics      *metrics.Store
	Importer     *dishes.Importer
	Library      *dishes.Library
	Dishes       *dishes.Repository
}

// Server holds the HTTP surface of the application.
type Server struct {
	cfg    *config.Config
	deps   Deps
	logger *zap.Logger
}

func New(cfg *config.Config, deps Deps, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, deps: deps, logger: logger}
}

// Router assembles the chi router with the full middleware stack and
// every route the service answers.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Post("/template", s.handleGenerateTemplate)
	r.Post("/validate-template", s.handleValidateTemplate)
	r.Post("/validate-menu", s.handleValidateMenu)
	r.Post("/build-menu", s.handleBuildMenu)

	r.Route("/profiles", func(r chi.Router) {
		r.Put("/{userCode}", s.handleSaveProfile)
		r.Get("/{userCode}", s.handleGetProfile)
	})

	r.Get("/menus/recent", s.handleRecentMenus)

	r.Route("/dishes", func(r chi.Router) {
		r.Post("/import", s.handleImportDish)
		r.Get("/", s.handleListDishes)
		r.Get("/similar", s.handleSimilarDishes)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminAuth(s.cfg.AdminAPISecret, s.logger))
		r.Get("/usage", s.handleUsage)
	})

	return r
}

// ListenAndServe runs the server on the configured address until the
// listener fails. Shutdown is the caller's concern.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.ListenAddr))
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// recordMetas persists the per-call usage of a pipeline run. Failures
// here are logged and never fail the request.
func (s *Server) recordMetas(metas []shared.AgentMeta) {
	if s.deps.Metrics == nil {
		return
	}
	if err := s.deps.Metrics.RecordAll(metas); err != nil {
		s.logger.Error("Failed to record execution metrics", zap.Error(err))
	}
}
