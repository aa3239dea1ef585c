package middleware

import (
	"net/http"

	sharedctx "github.com/graphquill/graphquill/core/shared/context"
)

// RequestIDHeader is the canonical request ID header.
const RequestIDHeader = "X-Request-Id"

// RequestID attaches a request ID to the context and echoes it in the
// response. An incoming X-Request-Id is honored so callers can correlate
// across services.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = sharedctx.NewID()
		}

		ctx := sharedctx.WithRequestID(r.Context(), requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
