package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/infractl/infractl/pkg/logger"
)

// ErrorBody is the wire shape for all error responses.
type ErrorBody struct {
	Detail string                   `json:"detail"`
	Errors []map[string]interface{} `json:"errors,omitempty"`
}

// SendError writes a JSON error body with the given status code.
func SendError(w http.ResponseWriter, r *http.Request, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	data, err := json.Marshal(ErrorBody{Detail: detail})
	if err != nil {
		logger.WithError(err).ErrorContext(r.Context(), "Failed to marshal error response")
		return
	}
	if _, err := w.Write(data); err != nil {
		logger.WithError(err).ErrorContext(r.Context(), "Failed to send error response")
	}
}

// SendNotFound sends a 404 response for unmatched routes.
func SendNotFound(w http.ResponseWriter, r *http.Request) {
	SendError(w, r, http.StatusNotFound, fmt.Sprintf("The requested resource '%s' doesn't exist", r.URL.Path))
}

// SendPanic sends a 500 response when something unexpected happens while
// handling a request.
func SendPanic(w http.ResponseWriter, r *http.Request) {
	SendError(w, r, http.StatusInternalServerError,
		"An unexpected error happened, please check the log of the service for details")
}
