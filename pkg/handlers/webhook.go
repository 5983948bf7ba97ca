package handlers

import (
	"net/http"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/api/presenters"
	"github.com/infractl/infractl/pkg/errors"
	"github.com/infractl/infractl/pkg/services"
)

type webhookHandler struct {
	service services.WebhookService
}

func NewWebhookHandler(service services.WebhookService) *webhookHandler {
	return &webhookHandler{service: service}
}

func (h webhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var request api.AdmissionWebhookRequest
	cfg := &handlerConfig{
		MarshalInto: &request,
		Validate: []validate{
			validateName(&request, "Name", "name", 1, 63),
			validateNotEmpty(&request, "WebhookURL", "webhook_url"),
			validateNotEmpty(&request, "WebhookType", "webhook_type"),
		},
		Action: func() (interface{}, *errors.ServiceError) {
			webhook, serviceErr := h.service.Register(r.Context(), &request)
			if serviceErr != nil {
				return nil, serviceErr
			}
			return presentOrError(presenters.PresentAdmissionWebhook(webhook))
		},
	}
	handle(w, r, cfg, http.StatusCreated)
}

func (h webhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := &handlerConfig{
		Action: func() (interface{}, *errors.ServiceError) {
			id, serviceErr := idParam(r)
			if serviceErr != nil {
				return nil, serviceErr
			}
			webhook, serviceErr := h.service.Get(r.Context(), id)
			if serviceErr != nil {
				return nil, serviceErr
			}
			return presentOrError(presenters.PresentAdmissionWebhook(webhook))
		},
	}
	handleGet(w, r, cfg)
}

func (h webhookHandler) List(w http.ResponseWriter, r *http.Request) {
	cfg := &handlerConfig{
		Action: func() (interface{}, *errors.ServiceError) {
			webhooks, serviceErr := h.service.All(r.Context())
			if serviceErr != nil {
				return nil, serviceErr
			}
			items, err := presenters.PresentAdmissionWebhookList(webhooks)
			if err != nil {
				return nil, errors.GeneralError("Unable to present webhooks: %s", err)
			}
			return presenters.List{
				Kind:  "AdmissionWebhookList",
				Page:  1,
				Size:  len(items),
				Total: int64(len(items)),
				Items: items,
			}, nil
		},
	}
	handleList(w, r, cfg)
}

func (h webhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	var request api.AdmissionWebhookRequest
	cfg := &handlerConfig{
		MarshalInto: &request,
		Action: func() (interface{}, *errors.ServiceError) {
			id, serviceErr := idParam(r)
			if serviceErr != nil {
				return nil, serviceErr
			}
			webhook, serviceErr := h.service.Update(r.Context(), id, &request)
			if serviceErr != nil {
				return nil, serviceErr
			}
			return presentOrError(presenters.PresentAdmissionWebhook(webhook))
		},
	}
	handle(w, r, cfg, http.StatusOK)
}

func (h webhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cfg := &handlerConfig{
		Action: func() (interface{}, *errors.ServiceError) {
			id, serviceErr := idParam(r)
			if serviceErr != nil {
				return nil, serviceErr
			}
			return nil, h.service.Delete(r.Context(), id)
		},
	}
	handleDelete(w, r, cfg, http.StatusNoContent)
}
