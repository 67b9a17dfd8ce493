package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router and all API routes.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", h.GetDashboard)
		r.Post("/dashboard/refresh", h.TriggerRefresh)
		r.Get("/dashboard/classification", h.GetClassification)
		r.Get("/dashboard/insights", h.GetInsights)

		r.Post("/anomalies/{id}/resolve", h.ResolveAnomaly)
		r.Post("/anomalies/resolve-bulk", h.ResolveBulk)
		r.Post("/anomalies/resolve-all", h.ResolveAll)
		r.Post("/anomalies/categories/{type}/resolve", h.ResolveCategory)

		r.Get("/refresh/history", h.GetRefreshHistory)
	})

	return r
}
