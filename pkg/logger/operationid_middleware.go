package logger

import (
	"net/http"
)

// OperationIDMiddleware assigns a server-generated operation ID to every
// request. Unlike the request ID it is never taken from the client, so log
// correlation on the server side cannot be spoofed.
func OperationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithOpID(r.Context())

		if opID, ok := GetOperationID(ctx); ok && opID != "" {
			w.Header().Set(OpIDHeader, opID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
