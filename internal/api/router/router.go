package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carebridge/patient-assistant/internal/assistant"
	httpmiddleware "github.com/carebridge/patient-assistant/internal/http/middleware"
	"github.com/carebridge/patient-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *assistant.Handler
	MetricsHandler     http.Handler
	PatientJWTSecret   string
	CORSAllowedOrigins []string
	RateLimitPerSec    float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.ChatHandler.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Patient-facing chat endpoints
	r.Route("/chat", func(chat chi.Router) {
		chat.Get("/health", cfg.ChatHandler.Health)

		chat.Group(func(authed chi.Router) {
			authed.Use(httpmiddleware.PatientJWT(cfg.PatientJWTSecret))
			if cfg.RateLimitPerSec > 0 {
				authed.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst))
			}
			authed.Post("/", cfg.ChatHandler.Chat)
			authed.Get("/history", cfg.ChatHandler.History)
			authed.Post("/clear-history", cfg.ChatHandler.ClearHistory)
			authed.Get("/tools", cfg.ChatHandler.Tools)
		})
	})

	return r
}
