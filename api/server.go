/*
server.go - HTTP router and middleware setup

PURPOSE:
  Wires chi routes to the handlers and applies cross-cutting middleware.
  Kept separate from handlers.go so the route table reads as a single
  map of the API surface.

MIDDLEWARE:
  - RequestID: tags each request for log correlation
  - Logger: one line per request with status and latency
  - Recoverer: converts panics into 500s instead of dropped connections
  - CORS: permits the local dev frontends

SEE ALSO:
  - handlers.go: the handler implementations
  - cmd/server/main.go: server lifecycle
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the API router.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/", h.SaveSession)
			r.Get("/{id}", h.GetSession)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.ListBookings)
			r.Post("/", h.CreateBooking)
			r.Get("/{id}", h.GetBooking)
			r.Post("/{id}/cancel", h.CancelBooking)
			r.Post("/{id}/transfer", h.TransferBooking)
		})

		r.Post("/cart/price", h.PriceCart)

		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.SavePolicy)
			r.Get("/{id}", h.GetPolicy)
			r.Put("/{id}", h.SavePolicy)
			r.Delete("/{id}", h.DeletePolicy)
		})

		r.Route("/discount-rules", func(r chi.Router) {
			r.Get("/", h.ListDiscountRules)
			r.Post("/", h.SaveDiscountRule)
			r.Get("/{id}", h.GetDiscountRule)
			r.Put("/{id}", h.SaveDiscountRule)
			r.Delete("/{id}", h.DeleteDiscountRule)
		})

		r.Route("/packages", func(r chi.Router) {
			r.Get("/", h.ListPackages)
			r.Post("/", h.PurchasePackage)
			r.Get("/{id}", h.GetPackage)
			r.Post("/{id}/deduct", h.DeductPackage)
			r.Post("/{id}/refund", h.RefundPackage)
			r.Post("/{id}/cancel", h.CancelPackage)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetData)
		})

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
