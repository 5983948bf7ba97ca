package resourcetypes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/infractl/infractl/cmd/infractl/environments"
	"github.com/infractl/infractl/cmd/infractl/environments/registry"
	"github.com/infractl/infractl/cmd/infractl/server"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/handlers"
	"github.com/infractl/infractl/pkg/services"
	"github.com/infractl/infractl/pkg/validators"
)

// ServiceLocator Service Locator
type ServiceLocator func() services.ResourceTypeService

func NewServiceLocator(env *environments.Env) ServiceLocator {
	return func() services.ResourceTypeService {
		return services.NewResourceTypeService(
			dao.NewResourceTypeDao(&env.Database.SessionFactory),
			dao.NewResourceDao(&env.Database.SessionFactory),
			validators.NewSpecValidator(),
		)
	}
}

// Service helper function to get the resource type service from the registry
func Service(s *environments.Services) services.ResourceTypeService {
	if s == nil {
		return nil
	}
	if obj := s.GetService("ResourceTypes"); obj != nil {
		locator := obj.(ServiceLocator)
		return locator()
	}
	return nil
}

func init() {
	// Service registration
	registry.RegisterService("ResourceTypes", func(env interface{}) interface{} {
		return NewServiceLocator(env.(*environments.Env))
	})

	// Routes registration
	server.RegisterRoutes("resource_types", func(apiV1Router *mux.Router, services server.ServicesInterface) {
		envServices := services.(*environments.Services)
		resourceTypeHandler := handlers.NewResourceTypeHandler(Service(envServices))

		resourceTypesRouter := apiV1Router.PathPrefix("/resource-types").Subrouter()
		resourceTypesRouter.HandleFunc("", resourceTypeHandler.List).Methods(http.MethodGet)
		resourceTypesRouter.HandleFunc("", resourceTypeHandler.Create).Methods(http.MethodPost)
		resourceTypesRouter.HandleFunc("/{id}", resourceTypeHandler.Get).Methods(http.MethodGet)
		resourceTypesRouter.HandleFunc("/{name}/{version}", resourceTypeHandler.GetByKey).Methods(http.MethodGet)
		resourceTypesRouter.HandleFunc("/{id}", resourceTypeHandler.Update).Methods(http.MethodPut)
		resourceTypesRouter.HandleFunc("/{id}", resourceTypeHandler.Delete).Methods(http.MethodDelete)
	})
}
