package environments

import (
	"sync"

	"github.com/infractl/infractl/pkg/config"
	"github.com/infractl/infractl/pkg/db"
	"github.com/infractl/infractl/pkg/events"
)

const (
	// EnvironmentStringKey selects the runtime environment.
	EnvironmentStringKey = "INFRACTL_ENV"

	DevelopmentEnv         = "development"
	UnitTestingEnv         = "unit"
	IntegrationTestingEnv  = "integration"
	ProductionEnv          = "production"
	EmbeddedDevelopmentEnv = "embedded_development"

	EnvironmentDefault = DevelopmentEnv
)

var (
	once         sync.Once
	environment  *Env
	environments map[string]EnvironmentImpl
)

// Env is the shared runtime state of the process: configuration, the database
// session factory, the in-memory event bus, and every registered service.
type Env struct {
	Name     string
	Config   *config.ApplicationConfig
	Database Database
	Services Services
	Handlers Handlers
}

type Database struct {
	SessionFactory db.SessionFactory
}

// Services holds the auto-discovered service locators keyed by name. Plugins
// register their locator constructors via the registry package at init time.
type Services struct {
	serviceRegistry map[string]interface{}

	// EventBus is shared by the API handlers, the resource service, and the
	// scheduler so lifecycle events reach every SSE subscriber.
	EventBus *events.Bus
}

// GetService returns the registered service locator by name, or nil.
func (s *Services) GetService(name string) interface{} {
	if s.serviceRegistry == nil {
		return nil
	}
	return s.serviceRegistry[name]
}

// SetService registers or replaces a service locator by name.
func (s *Services) SetService(name string, svc interface{}) {
	if s.serviceRegistry == nil {
		s.serviceRegistry = make(map[string]interface{})
	}
	s.serviceRegistry[name] = svc
}

type Handlers struct{}
