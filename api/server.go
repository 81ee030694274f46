/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     request logging
  2. Recoverer:  panic recovery (500 instead of crash)
  3. RequestID:  unique ID per request for tracing
  4. CORS:       cross-origin requests for the dashboard frontend
  5. requireAuth (API group): bearer-token check, login excepted

SEE ALSO:
  - handlers.go: handler implementations
  - auth.go: login and token middleware
  - cmd/server/main.go: server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)

		// Everything else requires the operator token
		r.Group(func(r chi.Router) {
			r.Use(requireAuth(h.Auth))

			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", h.ListBookings)
				r.Post("/", h.CreateBooking)
				r.Get("/{id}", h.GetBooking)
				r.Put("/{id}", h.EditBooking)
				r.Delete("/{id}", h.DeleteBooking)
				r.Post("/{id}/status", h.SetStatus)
				r.Get("/{id}/history", h.GetHistory)
			})

			r.Route("/wallets", func(r chi.Router) {
				r.Get("/", h.ListWallets)
				r.Get("/{key}/transactions", h.WalletTransactions)
				r.Post("/{key}/adjustments", h.AdjustWallet)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/summary", h.Summary)
			})
		})
	})

	return r
}
