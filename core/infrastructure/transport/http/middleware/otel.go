package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

// Tracing middleware for OpenTelemetry tracing
func Tracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(
		next,
		"graphquill-http",
		otelhttp.WithPropagators(otel.GetTextMapPropagator()),
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
	)
}
