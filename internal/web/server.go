// Package web provides the HTTP server for the public catalogue, the
// financing wizard and the admin back office.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/dealership/internal/auth"
	"github.com/JonMunkholm/dealership/internal/config"
	"github.com/JonMunkholm/dealership/internal/core"
	"github.com/JonMunkholm/dealership/internal/metrics"
	mw "github.com/JonMunkholm/dealership/internal/web/middleware"
	"github.com/JonMunkholm/dealership/internal/wizard"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthFunc reports whether a backing service is reachable.
type HealthFunc func(ctx context.Context) error

// Deps are the collaborators the handlers call into.
type Deps struct {
	Service *core.Service
	Wizard  *wizard.Wizard
	Auth    *auth.Authenticator
	// Metrics may be nil, which disables /metrics.
	Metrics *metrics.Metrics
	// Health is checked by /healthz. Optional.
	Health HealthFunc
}

// Server is the HTTP server for the dealership.
type Server struct {
	svc     *core.Service
	wizard  *wizard.Wizard
	auth    *auth.Authenticator
	metrics *metrics.Metrics
	health  HealthFunc
	cfg     *config.Config

	router *chi.Mux
	server *http.Server
	stop   context.CancelFunc
}

// NewServer builds the router. Background rate limiter sweeps stop on Shutdown.
func NewServer(deps Deps, cfg *config.Config) *Server {
	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		svc:     deps.Service,
		wizard:  deps.Wizard,
		auth:    deps.Auth,
		metrics: deps.Metrics,
		health:  deps.Health,
		cfg:     cfg,
		router:  chi.NewRouter(),
		stop:    stop,
	}
	s.setupMiddleware()
	s.setupRoutes(ctx)
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger(s.metrics))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(mw.SecurityHeaders(s.cfg.Security.EnableCSP))
	s.router.Use(mw.CORS(s.cfg.Server.AllowedOrigins))
}

// limit returns a per-IP limiter middleware, or a pass-through when rate
// limiting is disabled.
func (s *Server) limit(ctx context.Context, perMinute int) func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled || perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw.NewRateLimiter(ctx, perMinute, time.Minute).Middleware(s.respondError)
}

func (s *Server) setupRoutes(ctx context.Context) {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	uploads := s.limit(ctx, s.cfg.Rate.UploadLimit)
	requireAdmin := mw.SessionAuth(s.auth, s.cfg.Auth.CookieName, s.respondError)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.limit(ctx, s.cfg.Rate.RequestsPerMinute))

		// Public catalogue
		r.Get("/features", s.handleFeatures)
		r.Get("/listings", s.handlePublicListings)
		r.Get("/listings/{id}", s.handlePublicListing)
		r.Post("/listings/{id}/contact", s.handleContactListing)
		r.Get("/blog", s.handleListPosts)
		r.Get("/blog/{id}", s.handleGetPost)

		// Financing wizard
		r.Route("/financing/sessions", func(r chi.Router) {
			r.Post("/", s.handleWizardStart)
			r.Get("/{id}", s.handleWizardGet)
			r.Delete("/{id}", s.handleWizardDiscard)
			r.Put("/{id}/values", s.handleWizardValues)
			r.With(uploads).Post("/{id}/documents/{doc}", s.handleWizardDocument)
			r.Post("/{id}/next", s.handleWizardNext)
			r.Post("/{id}/back", s.handleWizardBack)
		})

		// Admin back office
		r.Route("/admin", func(r chi.Router) {
			r.With(s.limit(ctx, s.cfg.Rate.LoginLimit)).Post("/login", s.handleLogin)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Post("/logout", s.handleLogout)
				r.Get("/session", s.handleSession)

				r.Get("/listings", s.handleAdminListings)
				r.With(uploads).Post("/listings", s.handleCreateListing)
				r.Get("/listings/{id}", s.handleAdminListing)
				r.With(uploads).Put("/listings/{id}", s.handleUpdateListing)
				r.Delete("/listings/{id}", s.handleDeleteListing)
				r.Post("/listings/{id}/approve", s.handleApproveListing)
				r.Post("/listings/{id}/reject", s.handleRejectListing)
				r.Put("/listings/{id}/featured", s.handleSetFeatured)
				r.Delete("/listings/{id}/images/{imageID}", s.handleDeleteImage)
				r.Put("/listings/{id}/images/{imageID}/primary", s.handleSetPrimaryImage)
				r.Post("/listings/{id}/repair", s.handleRepairListing)
				r.Get("/repairs", s.handleListRepairs)
				r.Post("/reconcile", s.handleReconcile)

				r.Get("/financing", s.handleListFinancing)
				r.Get("/financing/{id}", s.handleGetFinancing)
				r.Put("/financing/{id}/status", s.handleFinancingStatus)
				r.Delete("/financing/{id}", s.handleDeleteFinancing)

				r.Get("/blog", s.handleListPosts)
				r.With(uploads).Post("/blog", s.handleCreatePost)
				r.With(uploads).Put("/blog/{id}", s.handleUpdatePost)
				r.Delete("/blog/{id}", s.handleDeletePost)

				r.Get("/audit-log", s.handleAuditLog)
			})
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			slog.Warn("health check failed", "error", err)
			writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
