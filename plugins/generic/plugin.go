package generic

import (
	"github.com/infractl/infractl/cmd/infractl/environments"
	"github.com/infractl/infractl/cmd/infractl/environments/registry"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/services"
)

// ServiceLocator Service Locator
type ServiceLocator func() services.GenericService

func NewServiceLocator(env *environments.Env) ServiceLocator {
	return func() services.GenericService {
		return services.NewGenericService(dao.NewGenericDao(&env.Database.SessionFactory))
	}
}

// Service helper function to get the generic service from the registry
func Service(s *environments.Services) services.GenericService {
	if s == nil {
		return nil
	}
	if obj := s.GetService("Generic"); obj != nil {
		locator := obj.(ServiceLocator)
		return locator()
	}
	return nil
}

func init() {
	// Service registration
	registry.RegisterService("Generic", func(env interface{}) interface{} {
		return NewServiceLocator(env.(*environments.Env))
	})
}
