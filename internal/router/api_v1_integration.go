// ===============================
// FILE: internal/router/api_v1_integration.go
// ===============================

package router

import (
	"platewise/internal/config"
	"platewise/internal/handlers/api/v1/auth"
	"platewise/internal/handlers/api/v1/badges"
	"platewise/internal/handlers/api/v1/notifications"
	"platewise/internal/handlers/api/v1/recipes"
	"platewise/internal/middleware"
	"platewise/internal/response"
	"platewise/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// addAPIv1Routes mounts the versioned JSON API under /api/v1
func addAPIv1Routes(
	r chi.Router,
	serviceCollection *services.ServiceCollection,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	responseBuilder *response.Builder,
	cfg *config.Config,
	logger *zap.Logger,
) error {
	authController := auth.NewAuthController(serviceCollection, logger, responseBuilder)
	badgeController := badges.NewBadgeController(serviceCollection, logger, responseBuilder)
	notificationController := notifications.NewNotificationController(serviceCollection, logger, responseBuilder)
	recipeController := recipes.NewRecipeController(serviceCollection, logger, responseBuilder)

	var streamHub *notifications.StreamHub
	if cfg.Features.EnableWebSocket {
		hub, err := notifications.NewStreamHub(serviceCollection.EventBus, logger)
		if err != nil {
			return err
		}
		streamHub = hub
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(rateLimiter.Limit())

		// Authentication
		api.Route("/auth", func(ar chi.Router) {
			if cfg.Features.EnableRegistration {
				ar.Post("/register", authController.Register)
			}
			ar.Post("/login", authController.Login)

			ar.Group(func(authed chi.Router) {
				authed.Use(authMiddleware.RequireAuth())
				authed.Get("/me", authController.Me)
				authed.Patch("/me", authController.UpdateProfile)
			})
		})

		// Recipe and badge catalogs, public reads with optional identity
		api.Group(func(public chi.Router) {
			public.Use(authMiddleware.OptionalAuth())
			public.Get("/recipes", recipeController.ListRecipes)
			public.Get("/recipes/{id}", recipeController.GetRecipe)
			public.Get("/badges", badgeController.ListBadges)
			public.Get("/badges/{id}", badgeController.GetBadge)
		})

		// Authenticated surface
		api.Group(func(authed chi.Router) {
			authed.Use(authMiddleware.RequireAuth())

			authed.Post("/recipes", recipeController.CreateRecipe)
			authed.Patch("/recipes/{id}", recipeController.UpdateRecipe)
			authed.Delete("/recipes/{id}", recipeController.DeleteRecipe)
			authed.Get("/recipes/mine", recipeController.ListMyRecipes)
			if cfg.Features.EnableFileUploads {
				authed.Post("/recipes/{id}/image", recipeController.UploadImage)
			}

			authed.Post("/sessions", recipeController.StartSession)
			authed.Get("/sessions", recipeController.ListSessions)
			authed.Post("/sessions/{id}/complete", recipeController.CompleteSession)

			authed.Get("/badges/conquered", badgeController.GetConquered)
			authed.Get("/badges/unconquered", badgeController.GetUnconquered)
			authed.Get("/badges/stats", badgeController.GetStats)
			authed.Post("/badges/progress/init", badgeController.InitializeProgress)
			authed.Post("/badges/recalculate", badgeController.Recalculate)

			authed.Get("/notifications", notificationController.List)
			authed.Post("/notifications/read", notificationController.MarkRead)
			authed.Delete("/notifications", notificationController.Delete)
			if streamHub != nil {
				authed.Get("/notifications/stream", streamHub.ServeHTTP)
			}
		})

		// Administrative overrides
		api.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAuth())
			admin.Use(authMiddleware.RequireAdmin())

			admin.Put("/users/{userID}/badges/{badgeID}/progress", badgeController.UpdateProgress)
			admin.Post("/users/{userID}/badges/{badgeID}/progress/reset", badgeController.ResetProgress)
		})
	})

	return nil
}
