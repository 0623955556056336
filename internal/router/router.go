// ===============================
// FILE: internal/router/router.go
// ===============================

package router

import (
	"net/http"
	"time"

	"platewise/internal/config"
	"platewise/internal/middleware"
	"platewise/internal/response"
	"platewise/internal/services"

	_ "platewise/docs" // swagger docs registration

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var startTime = time.Now()

// SetupRouter configures the HTTP surface: middleware chain, API v1
// routes, swagger and health endpoints.
func SetupRouter(
	serviceCollection *services.ServiceCollection,
	cfg *config.Config,
	logger *zap.Logger,
) (http.Handler, error) {
	responseBuilder := response.NewBuilder(response.DefaultConfig(), logger)
	authMiddleware := middleware.NewAuthMiddleware(serviceCollection.AuthService, logger)

	rateLimiter := middleware.NewRateLimiter(serviceCollection.Cache, &middleware.RateLimitConfig{
		Limit:  cfg.Security.RateLimitRequests,
		Window: cfg.Security.RateLimitWindow,
		Scope:  "api",
	}, logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID(logger))
	r.Use(middleware.RequestLogging())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(corsOrigin(cfg)))
	r.Use(middleware.SecureHeaders)
	r.Use(response.Middleware(responseBuilder))

	r.Get("/health", healthHandler(serviceCollection, responseBuilder, cfg))
	r.Mount("/swagger", middleware.SwaggerHandler(middleware.DefaultSwaggerConfig()))

	if err := addAPIv1Routes(r, serviceCollection, authMiddleware, rateLimiter, responseBuilder, cfg, logger); err != nil {
		return nil, err
	}

	return r, nil
}

// healthHandler aggregates component checks into one health view
func healthHandler(sc *services.ServiceCollection, builder *response.Builder, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := sc.HealthCheck(r.Context())

		health := &response.HealthStatus{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Version:   cfg.Server.ServerName,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			Checks:    make(map[string]string, len(checks)),
		}
		for name, err := range checks {
			if err != nil {
				health.Status = "degraded"
				health.Checks[name] = err.Error()
			} else {
				health.Checks[name] = "ok"
			}
		}

		builder.WriteHealth(w, r, health)
	}
}

func corsOrigin(cfg *config.Config) string {
	if len(cfg.Security.CORSAllowedOrigins) > 0 {
		return cfg.Security.CORSAllowedOrigins[0]
	}
	return "*"
}
