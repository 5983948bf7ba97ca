package environments

import (
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/infractl/infractl/cmd/infractl/environments/registry"
	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/config"
	"github.com/infractl/infractl/pkg/errors"
	"github.com/infractl/infractl/pkg/events"
	"github.com/infractl/infractl/pkg/logger"
)

func init() {
	once.Do(func() {
		environment = &Env{}
		environment.Name = GetEnvironmentStrFromEnv()

		environments = map[string]EnvironmentImpl{
			DevelopmentEnv:         &devEnvImpl{environment},
			UnitTestingEnv:         &unitTestingEnvImpl{environment},
			IntegrationTestingEnv:  &integrationTestingEnvImpl{environment},
			ProductionEnv:          &productionEnvImpl{environment},
			EmbeddedDevelopmentEnv: &embeddedDevelopmentEnvImpl{environment},
		}
	})
}

// EnvironmentImpl defines the per-environment overrides applied while the
// environment is initialized. Each environment picks its own database session
// factory and may adjust configuration or swap services.
type EnvironmentImpl interface {
	Flags() map[string]string
	OverrideConfig(c *config.ApplicationConfig) error
	OverrideServices(s *Services) error
	OverrideDatabase(d *Database) error
	OverrideHandlers(h *Handlers) error
}

func GetEnvironmentStrFromEnv() string {
	envStr, specified := os.LookupEnv(EnvironmentStringKey)
	if !specified || envStr == "" {
		envStr = EnvironmentDefault
	}
	return envStr
}

func Environment() *Env {
	return environment
}

// ApplyFlagDefaults overrides flag defaults with the environment's values.
// Must run after the command has defined its flags and before parsing results
// are consumed.
func (e *Env) ApplyFlagDefaults(flags *pflag.FlagSet) error {
	return setConfigDefaults(flags, environments[e.Name].Flags())
}

// Initialize loads the environment's resources from an already-loaded
// configuration. Flag parsing and config loading happen in the command layer.
func (e *Env) Initialize(cfg *config.ApplicationConfig) error {
	e.Config = cfg

	// Structured logging comes up first so everything after it is captured
	logger.Initialize(logger.Config{
		Level:   e.Config.Logging.Level,
		Format:  e.Config.Logging.Format,
		Output:  e.Config.Logging.Output,
		Version: api.Version,
	})

	slog.Info("Initializing environment", "environment", e.Name)

	envImpl, found := environments[e.Name]
	if !found {
		slog.Error("Unknown runtime environment", "environment", e.Name)
		os.Exit(1)
	}

	if err := envImpl.OverrideConfig(e.Config); err != nil {
		slog.Error("Failed to configure ApplicationConfig", "error", err)
		os.Exit(1)
	}

	// each env sets the db explicitly because the DB impl has a `once` init section
	if err := envImpl.OverrideDatabase(&e.Database); err != nil {
		slog.Error("Failed to configure Database", "error", err)
		os.Exit(1)
	}

	// The event bus must exist before services load; the resource service and
	// the scheduler both publish to it.
	e.Services.EventBus = events.NewBus(e.Config.Controller.EventQueueSize)

	e.LoadServices()
	if err := envImpl.OverrideServices(&e.Services); err != nil {
		slog.Error("Failed to configure Services", "error", err)
		os.Exit(1)
	}

	if seedErr := e.Seed(); seedErr != nil {
		return seedErr
	}

	if err := envImpl.OverrideHandlers(&e.Handlers); err != nil {
		slog.Error("Failed to configure Handlers", "error", err)
		os.Exit(1)
	}

	return nil
}

func (e *Env) Seed() *errors.ServiceError {
	return nil
}

func (e *Env) LoadServices() {
	if e.Services.serviceRegistry == nil {
		e.Services.serviceRegistry = make(map[string]interface{})
	}

	// Auto-discovered services (no manual editing needed)
	registry.LoadDiscoveredServices(&e.Services, e)
}

func (e *Env) Teardown() {
	if e.Services.EventBus != nil {
		e.Services.EventBus.Close()
	}
	if e.Database.SessionFactory != nil {
		if err := e.Database.SessionFactory.Close(); err != nil {
			slog.Error("Error closing database session factory", "error", err)
		}
	}
}

func setConfigDefaults(flags *pflag.FlagSet, defaults map[string]string) error {
	for name, value := range defaults {
		if err := flags.Set(name, value); err != nil {
			slog.Error("Error setting flag", "flag", name, "error", err)
			return err
		}
	}
	return nil
}
