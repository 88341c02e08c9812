package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/openveil/veilforum/internal/auth"
	"github.com/openveil/veilforum/internal/handlers"
	"github.com/openveil/veilforum/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	messageHandler *handlers.MessageHandler,
	statsHandler *handlers.StatsHandler,
	tokenManager *auth.TokenManager,
	sessions auth.SessionResolver,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes - no authentication required. The feed is readable by
	// anyone; only writing requires an identity.
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/register", authHandler.Register)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)
	router.Get("/messages", messageHandler.List)
	router.Get("/stats", statsHandler.Stats)

	// Protected routes - session cookie or bearer token required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager, sessions))

		r.Post("/auth/logout", authHandler.Logout)

		r.Post("/messages", messageHandler.Create)
		r.Get("/messages/mine", messageHandler.ListMine)
		r.Get("/messages/quota", messageHandler.Quota)
		r.Post("/messages/{id}/like", messageHandler.Like)
		r.Post("/messages/{id}/report", messageHandler.Report)
	})
}
