/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/auth/*         Login, verify, logout
  /api/invoices/*     Invoice listing and updates
  /api/movements/*    Stock movement recording
  /api/txt-files/*    Delivery artifact management
  /api/health         Liveness probe (public)

AUTHENTICATION:
  Everything except login and health requires a bearer token; see
  RequireAuth in auth.go.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
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
		// Public routes
		r.Post("/auth/login", h.Login)
		r.Get("/health", h.Health)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Get("/auth/verify", h.Verify)
			r.Post("/auth/logout", h.Logout)

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", h.ListInvoices)
				r.Post("/{id}/confirm", h.ConfirmDelivery)
				r.Put("/{id}", h.EditInvoice)
			})

			r.Route("/movements", func(r chi.Router) {
				r.Get("/", h.ListMovements)
				r.Post("/", h.RecordMovements)
			})

			r.Route("/txt-files", func(r chi.Router) {
				r.Get("/", h.ListArtifacts)
				r.Get("/stats/by-date", h.ArtifactStats)
				r.Get("/export/{date}", h.ExportArtifactsByDate)
				r.Get("/{filename}", h.DownloadArtifact)
				r.Get("/{filename}/content", h.GetArtifactContent)
				r.Put("/{filename}/content", h.UpdateArtifactContent)
				r.Delete("/{filename}", h.DeleteArtifact)
			})
		})
	})

	return r
}
