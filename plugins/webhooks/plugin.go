package webhooks

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/infractl/infractl/cmd/infractl/environments"
	"github.com/infractl/infractl/cmd/infractl/environments/registry"
	"github.com/infractl/infractl/cmd/infractl/server"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/handlers"
	"github.com/infractl/infractl/pkg/services"
)

// ServiceLocator Service Locator
type ServiceLocator func() services.WebhookService

func NewServiceLocator(env *environments.Env) ServiceLocator {
	return func() services.WebhookService {
		return services.NewWebhookService(dao.NewWebhookDao(&env.Database.SessionFactory))
	}
}

// Service helper function to get the webhook service from the registry
func Service(s *environments.Services) services.WebhookService {
	if s == nil {
		return nil
	}
	if obj := s.GetService("Webhooks"); obj != nil {
		locator := obj.(ServiceLocator)
		return locator()
	}
	return nil
}

func init() {
	// Service registration
	registry.RegisterService("Webhooks", func(env interface{}) interface{} {
		return NewServiceLocator(env.(*environments.Env))
	})

	// Routes registration
	server.RegisterRoutes("webhooks", func(apiV1Router *mux.Router, services server.ServicesInterface) {
		envServices := services.(*environments.Services)
		webhookHandler := handlers.NewWebhookHandler(Service(envServices))

		webhooksRouter := apiV1Router.PathPrefix("/admission-webhooks").Subrouter()
		webhooksRouter.HandleFunc("", webhookHandler.List).Methods(http.MethodGet)
		webhooksRouter.HandleFunc("", webhookHandler.Create).Methods(http.MethodPost)
		webhooksRouter.HandleFunc("/{id}", webhookHandler.Get).Methods(http.MethodGet)
		webhooksRouter.HandleFunc("/{id}", webhookHandler.Update).Methods(http.MethodPut)
		webhooksRouter.HandleFunc("/{id}", webhookHandler.Delete).Methods(http.MethodDelete)
	})
}
