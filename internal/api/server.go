// Package api exposes the crawler control surface over HTTP.
package api

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/albapepper/scoracle-crawl/internal/api/handler"
	"github.com/albapepper/scoracle-crawl/internal/api/respond"
)

//go:embed openapi.json
var openAPIDoc []byte

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(deps handler.Deps) *chi.Mux {
	r := chi.NewRouter()
	h := handler.New(deps)

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TimingMiddleware)
	if deps.Logger != nil {
		r.Use(LoggingMiddleware(deps.Logger))
	}

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   deps.Config.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Request-Id"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	// Swagger UI over the embedded document
	r.Get("/docs/doc.json", func(w http.ResponseWriter, r *http.Request) {
		respond.WriteRaw(w, openAPIDoc)
	})
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Crawlers
		r.Get("/crawlers", h.ListCrawlers)
		r.Post("/crawlers/{name}/run", h.RunCrawler)
		r.Post("/crawlers/{name}/stop", h.StopCrawler)

		// Live schedule
		r.Get("/schedule", h.GetSchedule)
		r.Put("/schedule/timeouts", h.PutTimeouts)

		// Persistence
		r.Get("/gateway/stats", h.GetGatewayStats)

		// Mock source
		r.Get("/mock/seasons/{id}", h.GetMockSeason)
		r.Post("/mock/set-back", h.SetBack)
	})

	return r
}
