package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/captive-portal/voucher-server/internal/auth"
	"github.com/captive-portal/voucher-server/internal/config"
	"github.com/captive-portal/voucher-server/internal/portal"
	"github.com/captive-portal/voucher-server/internal/storage"
	"github.com/captive-portal/voucher-server/internal/validation"
)

type contextKey string

const claimsKey contextKey = "claims"

// Server represents the HTTP server: wifidog protocol endpoints plus
// the admin REST API.
type Server struct {
	config    *config.Config
	store     storage.Store
	auth      *auth.JWTManager
	validator *validation.Validator
	portal    *portal.Handler
	router    chi.Router
	server    *http.Server
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, store storage.Store, portalHandler *portal.Handler) *Server {
	s := &Server{
		config:    cfg,
		store:     store,
		auth:      auth.NewJWTManager(&cfg.JWT),
		validator: validation.NewValidator(),
		portal:    portalHandler,
		router:    chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Gateway-facing protocol routes, unauthenticated by design: the
	// firmware has no credentials, only a gw_id.
	s.router.Route("/wifidog", func(r chi.Router) {
		s.portal.Routes(r)
	})

	// Admin API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// ListenAndServe starts the server
func (s *Server) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// authMiddleware is the authentication middleware
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get token from header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		// Parse Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.respondError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		// Validate token
		claims, err := s.auth.ValidateToken(parts[1])
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		// Add claims to context
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
