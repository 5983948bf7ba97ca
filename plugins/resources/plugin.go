package resources

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/infractl/infractl/cmd/infractl/environments"
	"github.com/infractl/infractl/cmd/infractl/environments/registry"
	"github.com/infractl/infractl/cmd/infractl/server"
	"github.com/infractl/infractl/pkg/admission"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/handlers"
	"github.com/infractl/infractl/pkg/services"
	"github.com/infractl/infractl/pkg/validators"
	"github.com/infractl/infractl/plugins/controllers"
	"github.com/infractl/infractl/plugins/generic"
)

// ServiceLocator Service Locator
type ServiceLocator func() services.ResourceService

func NewServiceLocator(env *environments.Env) ServiceLocator {
	return func() services.ResourceService {
		return services.NewResourceService(
			dao.NewResourceDao(&env.Database.SessionFactory),
			dao.NewResourceTypeDao(&env.Database.SessionFactory),
			controllers.Registry(&env.Services),
			admission.NewChain(dao.NewWebhookDao(&env.Database.SessionFactory)),
			validators.NewSpecValidator(),
			env.Services.EventBus,
		)
	}
}

// HistoryServiceLocator locates the reconciliation history service
type HistoryServiceLocator func() services.HistoryService

func NewHistoryServiceLocator(env *environments.Env) HistoryServiceLocator {
	return func() services.HistoryService {
		return services.NewHistoryService(
			dao.NewHistoryDao(&env.Database.SessionFactory),
			dao.NewResourceDao(&env.Database.SessionFactory),
		)
	}
}

// Service helper function to get the resource service from the registry
func Service(s *environments.Services) services.ResourceService {
	if s == nil {
		return nil
	}
	if obj := s.GetService("Resources"); obj != nil {
		locator := obj.(ServiceLocator)
		return locator()
	}
	return nil
}

// HistoryService helper function to get the history service from the registry
func HistoryService(s *environments.Services) services.HistoryService {
	if s == nil {
		return nil
	}
	if obj := s.GetService("History"); obj != nil {
		locator := obj.(HistoryServiceLocator)
		return locator()
	}
	return nil
}

func init() {
	// Service registration
	registry.RegisterService("Resources", func(env interface{}) interface{} {
		return NewServiceLocator(env.(*environments.Env))
	})
	registry.RegisterService("History", func(env interface{}) interface{} {
		return NewHistoryServiceLocator(env.(*environments.Env))
	})

	// Routes registration
	server.RegisterRoutes("resources", func(apiV1Router *mux.Router, services server.ServicesInterface) {
		envServices := services.(*environments.Services)
		resourceHandler := handlers.NewResourceHandler(Service(envServices), generic.Service(envServices))

		resourcesRouter := apiV1Router.PathPrefix("/resources").Subrouter()
		resourcesRouter.HandleFunc("", resourceHandler.List).Methods(http.MethodGet)
		resourcesRouter.HandleFunc("", resourceHandler.Create).Methods(http.MethodPost)
		resourcesRouter.HandleFunc("/by-name/{type}/{version}/{name}", resourceHandler.GetByName).Methods(http.MethodGet)
		resourcesRouter.HandleFunc("/{id}", resourceHandler.Get).Methods(http.MethodGet)
		resourcesRouter.HandleFunc("/{id}", resourceHandler.UpdateSpec).Methods(http.MethodPut)
		resourcesRouter.HandleFunc("/{id}", resourceHandler.Delete).Methods(http.MethodDelete)
		resourcesRouter.HandleFunc("/{id}/spec", resourceHandler.UpdateSpec).Methods(http.MethodPut)
		resourcesRouter.HandleFunc("/{id}/outputs", resourceHandler.Outputs).Methods(http.MethodGet)
		resourcesRouter.HandleFunc("/{id}/reconcile", resourceHandler.Reconcile).Methods(http.MethodPost)
		resourcesRouter.HandleFunc("/{id}/finalizers", resourceHandler.PatchFinalizers).Methods(http.MethodPut)

		// Nested resource: reconciliation history
		historyHandler := handlers.NewHistoryHandler(HistoryService(envServices))
		resourcesRouter.HandleFunc("/{id}/history", historyHandler.List).Methods(http.MethodGet)
	})
}
