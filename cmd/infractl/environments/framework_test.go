package environments

import (
	"os"
	"testing"

	"github.com/spf13/pflag"

	"github.com/infractl/infractl/cmd/infractl/environments/registry"
	"github.com/infractl/infractl/pkg/config"
)

func TestGetEnvironmentStrFromEnv(t *testing.T) {
	old, had := os.LookupEnv(EnvironmentStringKey)
	defer func() {
		if had {
			os.Setenv(EnvironmentStringKey, old)
		} else {
			os.Unsetenv(EnvironmentStringKey)
		}
	}()

	os.Unsetenv(EnvironmentStringKey)
	if got := GetEnvironmentStrFromEnv(); got != EnvironmentDefault {
		t.Errorf("expected default environment %q, got %q", EnvironmentDefault, got)
	}

	os.Setenv(EnvironmentStringKey, UnitTestingEnv)
	if got := GetEnvironmentStrFromEnv(); got != UnitTestingEnv {
		t.Errorf("expected %q, got %q", UnitTestingEnv, got)
	}
}

func TestLoadDiscoveredServices(t *testing.T) {
	var receivedEnv interface{}
	registry.RegisterService("FrameworkTestService", func(env interface{}) interface{} {
		receivedEnv = env
		return "located"
	})

	e := &Env{}
	e.LoadServices()

	if got := e.Services.GetService("FrameworkTestService"); got != "located" {
		t.Errorf("expected registered service locator, got %v", got)
	}
	if receivedEnv != e {
		t.Errorf("expected constructor to receive the environment")
	}
}

func TestApplyFlagDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	v := config.NewCommandConfig()
	appConfig := config.NewApplicationConfig()
	appConfig.ConfigureFlags(v, flags)

	env := Environment()
	if err := env.ApplyFlagDefaults(flags); err != nil {
		t.Errorf("unexpected error applying environment flag defaults: %v", err)
	}
}

func TestEnvironmentImplsRegistered(t *testing.T) {
	for _, name := range []string{
		DevelopmentEnv,
		UnitTestingEnv,
		IntegrationTestingEnv,
		ProductionEnv,
		EmbeddedDevelopmentEnv,
	} {
		if _, ok := environments[name]; !ok {
			t.Errorf("environment %q has no implementation", name)
		}
	}
}
