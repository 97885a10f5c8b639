package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Telemetry wraps an http.Handler with OpenTelemetry instrumentation.
// Records request duration, active requests, request/response sizes,
// and creates a trace span per request. Requests to untracedPaths are
// served without a span, so probes and scrapes do not flood the trace store.
func Telemetry(operation string, untracedPaths ...string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(untracedPaths))
	for _, p := range untracedPaths {
		skip[p] = struct{}{}
	}

	return otelhttp.NewMiddleware(operation,
		otelhttp.WithFilter(func(r *http.Request) bool {
			_, untraced := skip[r.URL.Path]
			return !untraced
		}),
	)
}
