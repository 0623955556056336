// file: internal/middleware/swagger.go
package middleware

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// SwaggerConfig configures the interactive API documentation UI
type SwaggerConfig struct {
	// URL points to the OpenAPI JSON endpoint
	URL string
	// DocExpansion controls the default expansion of operations and tags
	DocExpansion string
}

// DefaultSwaggerConfig returns the default documentation UI configuration
func DefaultSwaggerConfig() *SwaggerConfig {
	return &SwaggerConfig{
		URL:          "/swagger/doc.json",
		DocExpansion: "list",
	}
}

// SwaggerHandler serves the interactive API documentation UI
func SwaggerHandler(config *SwaggerConfig) http.Handler {
	if config == nil {
		config = DefaultSwaggerConfig()
	}

	return httpSwagger.Handler(
		httpSwagger.URL(config.URL),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion(config.DocExpansion),
	)
}
