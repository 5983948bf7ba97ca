package environments

import (
	"github.com/infractl/infractl/pkg/config"
	"github.com/infractl/infractl/pkg/db/db_session"
)

// embeddedDevelopmentEnvImpl runs the API with an embedded PostgreSQL instance (testcontainers).
// Intended for local/dev usage by dependent projects that want a fully autonomous API.
type embeddedDevelopmentEnvImpl struct {
	env *Env
}

var _ EnvironmentImpl = &embeddedDevelopmentEnvImpl{}

func (e *embeddedDevelopmentEnvImpl) OverrideDatabase(c *Database) error {
	c.SessionFactory = db_session.NewTestcontainerFactory(e.env.Config.Database)
	return nil
}

func (e *embeddedDevelopmentEnvImpl) OverrideConfig(c *config.ApplicationConfig) error {
	c.Server.HTTPS.Enabled = false
	c.Metrics.EnableHTTPS = false
	c.HealthCheck.EnableHTTPS = false
	return nil
}

func (e *embeddedDevelopmentEnvImpl) OverrideServices(_ *Services) error {
	return nil
}

func (e *embeddedDevelopmentEnvImpl) OverrideHandlers(_ *Handlers) error {
	return nil
}

func (e *embeddedDevelopmentEnvImpl) Flags() map[string]string {
	return map[string]string{
		"log-level":            "debug",
		"server-https-enabled": "false",
		"server-host":          "localhost",
		"server-port":          "8000",
	}
}
