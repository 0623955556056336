// file: internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"platewise/internal/contextutils"
	"platewise/internal/response"
	"platewise/internal/services"

	"go.uber.org/zap"
)

// AuthMiddleware authenticates requests with the bearer tokens the auth
// service issues
type AuthMiddleware struct {
	authService services.AuthService
	logger      *zap.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService services.AuthService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireAuth rejects requests without a valid bearer token
func (am *AuthMiddleware) RequireAuth() func(http.Handler) http.Handler {
	return am.authenticate(true)
}

// OptionalAuth attaches the identity when a valid token is present and
// passes anonymous requests through untouched
func (am *AuthMiddleware) OptionalAuth() func(http.Handler) http.Handler {
	return am.authenticate(false)
}

// RequireAdmin rejects authenticated requests that lack the admin role.
// It must run after RequireAuth.
func (am *AuthMiddleware) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !contextutils.IsAdmin(r.Context()) {
				response.QuickError(w, r,
					services.NewForbiddenError("admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (am *AuthMiddleware) authenticate(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				if required {
					response.QuickError(w, r,
						services.NewUnauthorizedError("authentication required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := am.authService.ValidateToken(r.Context(), token)
			if err != nil {
				am.logger.Debug("Token validation failed",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				if required {
					response.QuickError(w, r,
						services.NewUnauthorizedError("invalid or expired token"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := contextutils.WithUserID(r.Context(), claims.UserID)
			ctx = contextutils.WithUserRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken pulls the token from the Authorization header
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
