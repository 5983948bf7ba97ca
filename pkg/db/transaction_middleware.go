package db

import (
	"encoding/json"
	"net/http"

	"github.com/infractl/infractl/pkg/errors"
	"github.com/infractl/infractl/pkg/logger"
)

// TransactionMiddleware creates a new HTTP middleware that begins a database transaction
// and stores it in the request context.
func TransactionMiddleware(next http.Handler, connection SessionFactory) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := NewContext(r.Context(), connection)
		if err != nil {
			logger.Error(r.Context(), "Could not create transaction", "error", err.Error())
			// use default error to avoid exposing internals to users
			svcErr := errors.GeneralError("")
			writeJSONResponse(w, svcErr.HttpCode, map[string]string{"detail": svcErr.Reason})
			return
		}

		*r = *r.WithContext(ctx)
		defer func() { Resolve(r.Context()) }()

		next.ServeHTTP(w, r)
	})
}

func writeJSONResponse(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if payload != nil {
		response, err := json.Marshal(payload)
		if err != nil {
			// headers already sent, nothing to surface to the client
			return
		}
		if _, err := w.Write(response); err != nil {
			return
		}
	}
}
