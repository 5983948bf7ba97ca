package logger

import (
	"context"
	"net/http"
)

// RequestIDMiddleware tags every request with a correlation ID. An inbound
// X-Request-ID is propagated so callers can thread their own IDs through;
// otherwise a fresh one is generated. The ID is echoed on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if inbound := r.Header.Get(ReqIDHeader); inbound != "" {
			ctx = context.WithValue(ctx, ReqIDKey, inbound)
		} else {
			ctx = WithRequestID(ctx)
		}

		if reqID, ok := GetRequestID(ctx); ok && reqID != "" {
			w.Header().Set(ReqIDHeader, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
