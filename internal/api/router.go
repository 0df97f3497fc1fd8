package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rensmac/chat-gateway/internal/api/handler"
	customMiddleware "github.com/rensmac/chat-gateway/internal/api/middleware"
	"github.com/rensmac/chat-gateway/internal/redis"
	"github.com/rensmac/chat-gateway/internal/service"
)

// NewRouter creates and configures the HTTP router. rateLimiter may be
// nil when redis is disabled.
func NewRouter(chatService *service.ChatService, rateLimiter *redis.RateLimiter, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	chatHandler := handler.NewChatHandler(chatService)

	r.Get("/health", handler.HealthCheck)
	r.Get("/stats", chatHandler.Stats)

	r.Group(func(r chi.Router) {
		if rateLimiter != nil {
			rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)
			r.Use(rateLimitMiddleware.Limit)
		}

		r.Post("/ask", chatHandler.Ask)
	})

	return r
}
