package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *Server) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		// Users
		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.HandleListUsers)
			r.Post("/", s.HandleCreateUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetUser)
				r.Put("/", s.HandleUpdateUser)
				r.Delete("/", s.HandleDeleteUser)
			})
		})

		// Networks
		r.Route("/networks", func(r chi.Router) {
			r.Get("/", s.HandleListNetworks)
			r.Post("/", s.HandleCreateNetwork)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetNetwork)
				r.Put("/", s.HandleUpdateNetwork)
			})
		})

		// Gateways
		r.Route("/gateways", func(r chi.Router) {
			r.Get("/", s.HandleListGateways)
			r.Post("/", s.HandleCreateGateway)
			r.Route("/{gateway_id}", func(r chi.Router) {
				r.Get("/", s.HandleGetGateway)
				r.Put("/", s.HandleUpdateGateway)
			})
		})

		// Vouchers. No delete: vouchers are archived, never removed.
		r.Route("/vouchers", func(r chi.Router) {
			r.Get("/", s.HandleListVouchers)
			r.Post("/", s.HandleCreateVoucher)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetVoucher)
				r.Post("/archive", s.HandleArchiveVoucher)
			})
		})

		// Auth events
		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.HandleListEvents)
		})
	})
}
