package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/api/presenters"
	"github.com/infractl/infractl/pkg/errors"
	"github.com/infractl/infractl/pkg/services"
)

type resourceTypeHandler struct {
	service services.ResourceTypeService
}

func NewResourceTypeHandler(service services.ResourceTypeService) *resourceTypeHandler {
	return &resourceTypeHandler{service: service}
}

func (h resourceTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var request api.ResourceTypeCreateRequest
	cfg := &handlerConfig{
		MarshalInto: &request,
		Validate: []validate{
			validateName(&request, "Name", "name", 1, 63),
			validateNotEmpty(&request, "Version", "version"),
		},
		Action: func() (interface{}, *errors.ServiceError) {
			resourceType, serviceErr := h.service.Register(r.Context(), &request)
			if serviceErr != nil {
				return nil, serviceErr
			}
			return presentOrError(presenters.PresentResourceType(resourceType))
		},
	}
	handle(w, r, cfg, http.StatusCreated)
}

func (h resourceTypeHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := &handlerConfig{
		Action: func() (interface{}, *errors.ServiceError) {
			id, serviceErr := idParam(r)
			if serviceErr != nil {
				return nil, serviceErr
			}
			resourceType, serviceErr := h.service.Get(r.Context(), id)
			if serviceErr != nil {
				return nil, serviceErr
			}
			return presentOrError(presenters.PresentResourceType(resourceType))
		},
	}
	handleGet(w, r, cfg)
}

// GetByKey resolves a resource type by its name and version identity.
func (h resourceTypeHandler) GetByKey(w http.ResponseWriter, r *http.Request) {
	cfg := &handlerConfig{
		Action: func() (interface{}, *errors.ServiceError) {
			vars := mux.Vars(r)
			resourceType, serviceErr := h.service.GetByNameVersion(r.Context(), vars["name"], vars["version"])
			if serviceErr != nil {
				return nil, serviceErr
			}
			return presentOrError(presenters.PresentResourceType(resourceType))
		},
	}
	handleGet(w, r, cfg)
}

func (h resourceTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	cfg := &handlerConfig{
		Action: func() (interface{}, *errors.ServiceError) {
			types, serviceErr := h.service.All(r.Context())
			if serviceErr != nil {
				return nil, serviceErr
			}
			if name := r.URL.Query().Get("name"); name != "" {
				filtered := types[:0]
				for _, t := range types {
					if t.Name == name {
						filtered = append(filtered, t)
					}
				}
				types = filtered
			}
			items, err := presenters.PresentResourceTypeList(types)
			if err != nil {
				return nil, errors.GeneralError("Unable to present resource types: %s", err)
			}
			return presenters.List{
				Kind:  "ResourceTypeList",
				Page:  1,
				Size:  len(items),
				Total: int64(len(items)),
				Items: items,
			}, nil
		},
	}
	handleList(w, r, cfg)
}

func (h resourceTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var request api.ResourceTypeCreateRequest
	cfg := &handlerConfig{
		MarshalInto: &request,
		Action: func() (interface{}, *errors.ServiceError) {
			id, serviceErr := idParam(r)
			if serviceErr != nil {
				return nil, serviceErr
			}
			resourceType, serviceErr := h.service.Update(r.Context(), id, &request)
			if serviceErr != nil {
				return nil, serviceErr
			}
			return presentOrError(presenters.PresentResourceType(resourceType))
		},
	}
	handle(w, r, cfg, http.StatusOK)
}

func (h resourceTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
