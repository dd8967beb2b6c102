package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tokvera/tokvera-go/app"
)

// SetupRoutes configures all collector routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	// Browser SDKs post events cross-origin
	origins := deps.Config.Ingest.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "https://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "User-Agent"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	if deps.Config.Observability.MetricsEnabled {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Route("/v1/events", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAPIKey)
		r.Post("/", deps.EventsHandler.HandleIngest)
		r.Post("/batch", deps.EventsHandler.HandleIngestBatch)
		r.Get("/", deps.EventsHandler.HandleList)
		r.Get("/summary", deps.EventsHandler.HandleSummary)
		r.Get("/{id}", deps.EventsHandler.HandleGet)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
