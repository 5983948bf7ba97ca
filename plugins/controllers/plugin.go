package controllers

import (
	"github.com/infractl/infractl/cmd/infractl/environments"
	"github.com/infractl/infractl/cmd/infractl/environments/registry"
	"github.com/infractl/infractl/pkg/controller"
)

// ServiceLocator Service Locator
type ServiceLocator func() *controller.Registry

// NewServiceLocator builds a locator around a single reconciler registry.
// The resource service consults it on create and the scheduler drains it, so
// both must see the same instance.
func NewServiceLocator(env *environments.Env) ServiceLocator {
	reconcilerRegistry := controller.NewRegistry()
	return func() *controller.Registry {
		return reconcilerRegistry
	}
}

// Registry helper function to get the reconciler registry from the service registry
func Registry(s *environments.Services) *controller.Registry {
	if s == nil {
		return nil
	}
	if obj := s.GetService("Controllers"); obj != nil {
		locator := obj.(ServiceLocator)
		return locator()
	}
	return nil
}

func init() {
	// Service registration
	registry.RegisterService("Controllers", func(env interface{}) interface{} {
		return NewServiceLocator(env.(*environments.Env))
	})
}
