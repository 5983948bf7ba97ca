package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/infractl/infractl/pkg/errors"
)

func writeJSONResponse(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if payload != nil {
		response, err := json.Marshal(payload)
		if err != nil {
			// Headers already sent, can't change the status code
			return
		}
		if _, err := w.Write(response); err != nil {
			// Writing failed, nothing we can do at this point
			return
		}
	}
}

// presentOrError adapts a presenter result to an action result. Presenter
// failures mean a stored document no longer decodes, which is a server error.
func presentOrError(v interface{}, err error) (interface{}, *errors.ServiceError) {
	if err != nil {
		return nil, errors.GeneralError("Unable to present response: %s", err)
	}
	return v, nil
}

// idParam extracts the numeric {id} path variable.
func idParam(r *http.Request) (int64, *errors.ServiceError) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.BadRequest("'%s' is not a valid identifier", raw)
	}
	return id, nil
}
