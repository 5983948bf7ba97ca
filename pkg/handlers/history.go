package handlers

import (
	"net/http"
	"strconv"

	"github.com/infractl/infractl/pkg/api/presenters"
	"github.com/infractl/infractl/pkg/errors"
	"github.com/infractl/infractl/pkg/services"
)

type historyHandler struct {
	service services.HistoryService
}

func NewHistoryHandler(service services.HistoryService) *historyHandler {
	return &historyHandler{service: service}
}

// List returns the reconciliation audit trail for one resource, newest first.
// The limit query parameter caps the number of entries returned; offset skips
// past entries already fetched.
func (h historyHandler) List(w http.ResponseWriter, r *http.Request) {
	cfg := &handlerConfig{
		Action: func() (interface{}, *errors.ServiceError) {
			id, serviceErr := idParam(r)
			if serviceErr != nil {
				return nil, serviceErr
			}

			limit := 0
			if raw := r.URL.Query().Get("limit"); raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil || parsed < 1 {
					return nil, errors.BadRequest("'%s' is not a valid limit", raw)
				}
				limit = parsed
			}

			offset := 0
			if raw := r.URL.Query().Get("offset"); raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil || parsed < 0 {
					return nil, errors.BadRequest("'%s' is not a valid offset", raw)
				}
				offset = parsed
			}

			entries, serviceErr := h.service.ListByResource(r.Context(), id, limit, offset)
			if serviceErr != nil {
				return nil, serviceErr
			}
			items := presenters.PresentReconciliationHistoryList(entries)
			return presenters.List{
				Kind:  "ReconciliationHistoryList",
				Page:  1,
				Size:  len(items),
				Total: int64(len(items)),
				Items: items,
			}, nil
		},
	}
	handleList(w, r, cfg)
}
