/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request-scoped zerolog logger (api/middleware)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /api/deals/*           Deal records and per-deal schedules
  /api/schedules         Stateless batch computation
  /api/revenue/*         Aggregate revenue series
  /api/scenarios/*       Demo deal books
  /metrics               Prometheus metrics
  /healthz               Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/warp/revenue-engine/api/middleware"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/deals", func(r chi.Router) {
			r.Get("/", h.ListDeals)
			r.Post("/", h.CreateDeal)
			r.Get("/{id}", h.GetDeal)
			r.Delete("/{id}", h.DeleteDeal)
			r.Get("/{id}/schedule", h.GetSchedule)
		})

		r.Post("/schedules", h.ComputeSchedules)
		r.Get("/revenue/aggregate", h.GetAggregate)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDeals)
		})
	})

	if h.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.Registry, promhttp.HandlerOpts{}))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
