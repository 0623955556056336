// file: internal/middleware/recovery.go
package middleware

import (
	"net/http"
	"runtime/debug"

	"platewise/internal/response"
	"platewise/internal/services"

	"go.uber.org/zap"
)

// Recovery turns panics into 500 responses with a logged stack trace
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					requestLogger := GetRequestLogger(r.Context())
					requestLogger.Error("Panic recovered",
						zap.Any("panic", rec),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)

					response.QuickError(w, r,
						services.NewInternalError("internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
