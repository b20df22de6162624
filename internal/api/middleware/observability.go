package middleware

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/notes2gogo/backend/internal/infrastructure/observability"
)

// ObservabilityMiddleware adds OpenTelemetry tracing and metrics to HTTP requests
func ObservabilityMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// The route pattern is only known once the mux matched, so the
			// span starts with the method and is renamed afterwards.
			route := &routeHolder{}
			ctx, span := observability.StartSpan(context.WithValue(r.Context(), routeKey{}, route), r.Method)
			defer span.End()

			observability.SetSpanAttributes(span,
				attribute.String("http.method", r.Method),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.String("http.request_id", observability.RequestIDFromContext(ctx)),
			)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			req := r.WithContext(ctx)

			start := time.Now()
			next.ServeHTTP(rw, req)
			duration := time.Since(start)

			// Use route pattern instead of raw path to avoid high cardinality
			pattern := route.pattern
			if pattern == "" {
				pattern = "unmatched"
			}
			span.SetName(pattern)

			observability.RecordRequestMetric(ctx, metrics, r.Method, pattern, rw.statusCode, duration)
			observability.SetSpanAttributes(span,
				attribute.String("http.route", pattern),
				attribute.Int("http.status_code", rw.statusCode),
			)
			if rw.statusCode >= 500 {
				span.SetStatus(codes.Error, http.StatusText(rw.statusCode))
			}
		})
	}
}

type routeKey struct{}

type routeHolder struct {
	pattern string
}

// RouteTagger resolves the mux pattern for the request, makes it visible to
// ObservabilityMiddleware and then serves the mux.
func RouteTagger(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if holder, ok := r.Context().Value(routeKey{}).(*routeHolder); ok {
			_, holder.pattern = mux.Handler(r)
		}
		mux.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}
