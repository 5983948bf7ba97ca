package presenters

import (
	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/errors"
)

// PresentError converts a ServiceError into the wire error body.
func PresentError(err *errors.ServiceError) api.ErrorBody {
	body := api.ErrorBody{Detail: err.Reason}
	for _, d := range err.Details {
		body.Errors = append(body.Errors, map[string]interface{}{
			"field": d.Field,
			"error": d.Error,
		})
	}
	return body
}
