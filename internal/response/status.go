// file: internal/response/status.go
package response

import (
	"net/http"
	"time"
)

// ===============================
// HEALTH RESPONSES
// ===============================

// HealthStatus is the body of the health endpoint
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// WriteHealth writes the health check response, degraded checks answer 503
func (b *Builder) WriteHealth(w http.ResponseWriter, r *http.Request, health *HealthStatus) {
	statusCode := http.StatusOK
	if health.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	b.WriteJSON(w, r, b.Success(r.Context(), health), statusCode)
}

// ===============================
// STATUS HELPERS
// ===============================

// IsSuccessStatus reports whether the code is in the 2xx range
func IsSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}

// IsClientError reports whether the code is in the 4xx range
func IsClientError(code int) bool {
	return code >= 400 && code < 500
}

// IsServerError reports whether the code is in the 5xx range
func IsServerError(code int) bool {
	return code >= 500 && code < 600
}
