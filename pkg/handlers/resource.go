package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/api/presenters"
	"github.com/infractl/infractl/pkg/errors"
	"github.com/infractl/infractl/pkg/services"
)

type resourceHandler struct {
	resource services.ResourceService
	generic  services.GenericService
}

func NewResourceHandler(resource services.ResourceService, generic services.GenericService) *resourceHandler {
	return &resourceHandler{
		resource: resource,
		generic:  generic,
	}
}

func (h resourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var request api.ResourceCreateRequest
	cfg := &handlerConfig{
		MarshalInto: &request,
		Validate: []validate{
			validateName(&request, "Name", "name", 1, 63),
			validateNotEmpty(&request, "ResourceTypeName", "resource_type_name"),
			validateNotEmpty(&request, "ResourceTypeVersion", "resource_type_version"),
			validateSpec(&request, "Spec", "spec"),
		},
		Action: func() (interface{}, *errors.ServiceError) {
			resource, serviceErr := h.resource.Create(r.Context(), &request)
			if serviceErr != nil {
				return nil, serviceErr
			}
			return presentOrError(presenters.PresentResource(resource))
		},
	}
	handle(w, r, cfg, http.StatusCreated)
}

func (h resourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := &handlerConfig{
		Action: func() (interface{}, *errors.ServiceError) {
			id, serviceErr := idParam(r)
			if serviceErr != nil {
				return nil, serviceErr
			}
			resource, serviceErr := h.resource.Get(r.Context(), id)
			if serviceErr != nil {
				return nil, serviceErr
			}
			return presentOrError(presenters.PresentResource(resource))
		},
	}
	handleGet(w, r, cfg)
}

// GetByName resolves a resource by its type identity and name.
func (h resourceHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	cfg := &handlerConfig{
		Action: func() (interface{}, *errors.ServiceError) {
			vars := mux.Vars(r)
			resource, serviceErr := h.resource.GetByName(r.Context(),
				vars["type"], vars["version"], vars["name"])
			if serviceErr != nil {
				return nil, serviceErr
			}
			return presentOrError(presenters.PresentResource(resource))
		},
	}
	handleGet(w, r, cfg)
}

// Outputs returns only the provider-assigned outputs document.
func (h resourceHandler) Outputs(w http.ResponseWriter, r *http.Request) {
	cfg := &handlerConfig{
		Action: func() (interface{}, *errors.ServiceError) {
			id, serviceErr := idParam(r)
			if serviceErr != nil {
				return nil, serviceErr
			}
			resource, serviceErr := h.resource.Get(r.Context(), id)
			if serviceErr != nil {
				return nil, serviceErr
			}
			outputs := map[string]interface{}{}
			if len(resource.Outputs) > 0 {
				if err := json.Unmarshal(resource.Outputs, &outputs); err != nil {
					return nil, errors.GeneralError("Unable to decode outputs for resource %d: %s", id, err)
				}
			}
			return outputs, nil
		},
	}
	handleGet(w, r, cfg)
}

// List supports search, orderBy, and paging over the resources table.
func (h resourceHandler) List(w http.ResponseWriter, r *http.Request) {
	cfg := &handlerConfig{
		Action: func() (interface{}, *errors.ServiceError) {
			var resources []api.Resource
			args := services.NewListArguments(r.URL.Query())
			paging, serviceErr := h.generic.List(r.Context(), args, &resources)
			if serviceErr != nil {
				return nil, serviceErr
			}

			items := make([]*presenters.Resource, 0, len(resources))
			for i := range resources {
				presented, err := presenters.PresentResource(&resources[i])
				if err != nil {
					return nil, errors.GeneralError("Unable to present resource %d: %s", resources[i].ID, err)
				}
				items = append(items, presented)
			}
			return presenters.List{
				Kind:  "ResourceList",
				Page:  paging.Page,
				Size:  len(items),
				Total: paging.Total,
				Items: items,
			}, nil
		},
	}
	handleList(w, r, cfg)
}

// UpdateSpec replaces the desired spec. An identical spec is a no-op and does
// not bump the generation.
func (h resourceHandler) UpdateSpec(w http.ResponseWriter, r *http.Request) {
	var request api.ResourceUpdateRequest
	cfg := &handlerConfig{
		MarshalInto: &request,
		Validate: []validate{
			validateSpec(&request, "Spec", "spec"),
		},
		Action: func() (interface{}, *errors.ServiceError) {
			id, serviceErr := idParam(r)
			if serviceErr != nil {
				return nil, serviceErr
			}
			resource, serviceErr := h.resource.UpdateSpec(r.Context(), id, &request)
			if serviceErr != nil {
				return nil, serviceErr
			}
			return presentOrError(presenters.PresentResource(resource))
		},
	}
	handle(w, r, cfg, http.StatusOK)
}

func (h resourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cfg := &handlerConfig{
		Action: func() (interface{}, *errors.ServiceError) {
			id, serviceErr := idParam(r)
			if serviceErr != nil {
				return nil, serviceErr
			}
			return nil, h.resource.Delete(r.Context(), id)
		},
	}
	handleDelete(w, r, cfg, http.StatusAccepted)
}

// Reconcile requests an immediate reconcile attempt, clearing any backoff.
func (h resourceHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	cfg := &handlerConfig{
		Action: func() (interface{}, *errors.ServiceError) {
			id, serviceErr := idParam(r)
			if serviceErr != nil {
				return nil, serviceErr
			}
			resource, serviceErr := h.resource.Reconcile(r.Context(), id)
			if serviceErr != nil {
				return nil, serviceErr
			}
			return presentOrError(presenters.PresentResource(resource))
		},
	}
	handleDelete(w, r, cfg, http.StatusAccepted)
}

// PatchFinalizers applies finalizer additions and removals atomically.
func (h resourceHandler) PatchFinalizers(w http.ResponseWriter, r *http.Request) {
	var request api.FinalizerPatchRequest
	cfg := &handlerConfig{
		MarshalInto: &request,
		Action: func() (interface{}, *errors.ServiceError) {
			id, serviceErr := idParam(r)
			if serviceErr != nil {
				return nil, serviceErr
			}
			resource, serviceErr := h.resource.PatchFinalizers(r.Context(), id, &request)
			if serviceErr != nil {
				return nil, serviceErr
			}
			return presentOrError(presenters.PresentResource(resource))
		},
	}
	handle(w, r, cfg, http.StatusOK)
}
