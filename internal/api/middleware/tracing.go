package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Tracing adds OpenTelemetry server spans to HTTP requests. An empty service
// name disables tracing.
func Tracing(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if service == "" {
			return next
		}
		return otelhttp.NewHandler(next, service)
	}
}
