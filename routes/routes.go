package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/circassiandna/chatbot/app"
	"github.com/circassiandna/chatbot/handlers"
	"github.com/circassiandna/chatbot/internal/observability"
	"github.com/circassiandna/chatbot/middleware"
	"github.com/circassiandna/chatbot/utils"
	"github.com/circassiandna/chatbot/web"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	requestTimeout := cfg.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	if cfg.Observability.MetricsEnabled {
		r.Use(observability.Instrument)
	}
	r.Use(chimw.Timeout(requestTimeout))

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Index, handlers.HealthConfig{
		Environment:   cfg.Environment,
		VectorBackend: cfg.Vector.Backend,
		IndexName:     cfg.Vector.IndexName,
		HasCredential: deps.Index != nil,
	}, deps.Logger)
	chatHandler := handlers.NewChatHandler(deps.Chat, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	if cfg.Observability.MetricsEnabled {
		r.Handle("/metrics", observability.MetricsHandler())
	}

	// Chatbot page and widget assets
	r.Get("/", handlers.IndexHandler(web.IndexHTML()))
	r.Handle("/static/*", handlers.StaticHandler("/static/", web.Static()))

	// API routes; CORS is limited to these
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:     cfg.Server.AllowedOrigins,
			AllowedMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:     []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:     []string{"X-Request-ID", "Retry-After"},
			MaxAge:             300,
			OptionsPassthrough: true,
		}))

		// Preflight requests end here with the CORS headers already set
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteNoContent(w)
		})

		r.Get("/status", healthHandler.HandleStatus)

		r.With(middleware.RateLimit(deps.RateLimiter, deps.Logger)).
			Post("/chat", chatHandler.HandleChat)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusNotFound, "endpoint not found")
	})

	return r
}
