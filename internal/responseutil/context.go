// Package responseutil breaks the import cycle between the response
// builder and the middleware that injects it into request contexts.
package responseutil

import (
	"context"
	"net/http"
)

// ErrorWriter is the subset of the response builder the middleware layer
// needs to report failures.
type ErrorWriter interface {
	WriteError(w http.ResponseWriter, r *http.Request, err error)
}

type contextKey string

const builderKey contextKey = "response_builder"

// GetBuilder extracts the response builder from the context, nil when absent
func GetBuilder(ctx context.Context) interface{} {
	return ctx.Value(builderKey)
}

// SetBuilder stores a response builder in the context
func SetBuilder(ctx context.Context, builder interface{}) context.Context {
	return context.WithValue(ctx, builderKey, builder)
}
