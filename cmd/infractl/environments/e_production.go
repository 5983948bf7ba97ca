package environments

import (
	"github.com/infractl/infractl/pkg/config"
	"github.com/infractl/infractl/pkg/db/db_session"
)

// productionEnvImpl is the deployed configuration. No overrides beyond the
// real database session factory; everything comes from config.
type productionEnvImpl struct {
	env *Env
}

var _ EnvironmentImpl = &productionEnvImpl{}

func (e *productionEnvImpl) OverrideDatabase(c *Database) error {
	c.SessionFactory = db_session.NewProdFactory(e.env.Config.Database)
	return nil
}

func (e *productionEnvImpl) OverrideConfig(c *config.ApplicationConfig) error {
	return nil
}

func (e *productionEnvImpl) OverrideServices(s *Services) error {
	return nil
}

func (e *productionEnvImpl) OverrideHandlers(h *Handlers) error {
	return nil
}

func (e *productionEnvImpl) Flags() map[string]string {
	return map[string]string{
		"log-format": "json",
	}
}
