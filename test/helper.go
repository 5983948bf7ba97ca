package test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"gopkg.in/resty.v1"
	"gorm.io/gorm"

	"github.com/infractl/infractl/cmd/infractl/environments"
	"github.com/infractl/infractl/cmd/infractl/server"
	"github.com/infractl/infractl/pkg/config"
	"github.com/infractl/infractl/pkg/db"
	"github.com/infractl/infractl/pkg/logger"
	"github.com/infractl/infractl/test/factories"
)

var (
	helper *Helper
	once   sync.Once
)

type Helper struct {
	Ctx           context.Context
	DBFactory     db.SessionFactory
	AppConfig     *config.ApplicationConfig
	APIServer     server.Server
	MetricsServer server.Server
	HealthServer  server.Server
	T             *testing.T
	teardowns     []func() error
	Factories     factories.Factories
}

// NewHelper boots the full application once per test binary: environment,
// database, API server, metrics server, and health server. Subsequent calls
// reuse the same instance with the caller's testing.T swapped in.
func NewHelper(t *testing.T) *Helper {
	once.Do(func() {
		logger.Initialize(logger.Config{
			Level:   os.Getenv("LOGLEVEL"),
			Format:  "text",
			Output:  "stdout",
			Version: "test",
		})
		ctx := context.Background()

		if os.Getenv(environments.EnvironmentStringKey) == "" {
			os.Setenv(environments.EnvironmentStringKey, environments.IntegrationTestingEnv)
		}

		env := environments.Environment()

		v := config.NewCommandConfig()
		appConfig := config.NewApplicationConfig()
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		appConfig.ConfigureFlags(v, flags)
		if err := env.ApplyFlagDefaults(flags); err != nil {
			logger.WithError(err).ErrorContext(ctx, "Unable to apply environment flag defaults")
			os.Exit(1)
		}

		loadedConfig, err := config.LoadConfig(v, flags)
		if err != nil {
			logger.WithError(err).ErrorContext(ctx, "Unable to load test configuration")
			os.Exit(1)
		}

		if err := env.Initialize(loadedConfig); err != nil {
			logger.WithError(err).ErrorContext(ctx, "Unable to initialize testing environment")
			os.Exit(1)
		}

		helper = &Helper{
			Ctx:       ctx,
			AppConfig: env.Config,
			DBFactory: env.Database.SessionFactory,
		}

		helper.teardowns = []func() error{
			helper.CleanDB,
			helper.stopAPIServer,
			helper.teardownEnv,
		}
		helper.startAPIServer()
		helper.startMetricsServer()
		helper.startHealthServer()
	})
	helper.T = t
	return helper
}

func (helper *Helper) Env() *environments.Env {
	return environments.Environment()
}

func (helper *Helper) teardownEnv() error {
	helper.Env().Teardown()
	return nil
}

func (helper *Helper) Teardown() {
	for _, f := range helper.teardowns {
		err := f()
		if err != nil {
			helper.T.Errorf("error running teardown func: %s", err)
		}
	}
}

func (helper *Helper) startAPIServer() {
	ctx := context.Background()
	helper.APIServer = server.NewAPIServer()
	listener, err := helper.APIServer.Listen()
	if err != nil {
		logger.WithError(err).ErrorContext(ctx, "Unable to start test API server")
		os.Exit(1)
	}
	go func() {
		logger.Debug(ctx, "Test API server started")
		helper.APIServer.Serve(listener)
		logger.Debug(ctx, "Test API server stopped")
	}()
}

func (helper *Helper) stopAPIServer() error {
	if err := helper.APIServer.Stop(); err != nil {
		return fmt.Errorf("unable to stop api server: %s", err.Error())
	}
	return nil
}

func (helper *Helper) startMetricsServer() {
	ctx := context.Background()
	helper.MetricsServer = server.NewMetricsServer()
	go func() {
		logger.Debug(ctx, "Test metrics server started")
		helper.MetricsServer.Start()
		logger.Debug(ctx, "Test metrics server stopped")
	}()
}

func (helper *Helper) stopMetricsServer() error {
	if err := helper.MetricsServer.Stop(); err != nil {
		return fmt.Errorf("unable to stop metrics server: %s", err.Error())
	}
	return nil
}

func (helper *Helper) startHealthServer() {
	ctx := context.Background()
	helper.HealthServer = server.NewHealthServer()
	go func() {
		logger.Debug(ctx, "Test health server started")
		helper.HealthServer.Start()
		logger.Debug(ctx, "Test health server stopped")
	}()
}

func (helper *Helper) RestartServer() {
	ctx := context.Background()
	if err := helper.stopAPIServer(); err != nil {
		logger.WithError(err).WarnContext(ctx, "unable to stop api server on restart")
	}
	helper.startAPIServer()
	logger.Debug(ctx, "Test API server restarted")
}

func (helper *Helper) RestartMetricsServer() {
	ctx := context.Background()
	if err := helper.stopMetricsServer(); err != nil {
		logger.WithError(err).WarnContext(ctx, "unable to stop metrics server on restart")
	}
	helper.startMetricsServer()
	logger.Debug(ctx, "Test metrics server restarted")
}

// NewID creates a new unique identifier for test fixtures.
func (helper *Helper) NewID() string {
	return uuid.New().String()
}

func (helper *Helper) RestURL(path string) string {
	protocol := "http"
	if helper.AppConfig.Server.HTTPS.Enabled {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/api/v1%s", protocol, helper.AppConfig.Server.GetBindAddress(), path)
}

// APIURL builds a URL on the API port without the /api/v1 prefix, for
// endpoints mounted at the server root such as /health.
func (helper *Helper) APIURL(path string) string {
	protocol := "http"
	if helper.AppConfig.Server.HTTPS.Enabled {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s%s", protocol, helper.AppConfig.Server.GetBindAddress(), path)
}

func (helper *Helper) MetricsURL(path string) string {
	return fmt.Sprintf("http://%s%s", helper.AppConfig.Metrics.GetBindAddress(), path)
}

func (helper *Helper) HealthCheckURL(path string) string {
	return fmt.Sprintf("http://%s%s", helper.AppConfig.HealthCheck.GetBindAddress(), path)
}

// NewApiClient returns a REST client rooted at the test server's /api/v1 base.
func (helper *Helper) NewApiClient() *resty.Client {
	protocol := "http"
	if helper.AppConfig.Server.HTTPS.Enabled {
		protocol = "https"
	}
	client := resty.New()
	client.SetHostURL(fmt.Sprintf("%s://%s/api/v1", protocol, helper.AppConfig.Server.GetBindAddress()))
	client.SetHeader("Content-Type", "application/json")
	return client
}

func (helper *Helper) DeleteAll(table interface{}) {
	g2 := helper.DBFactory.New(context.Background())
	err := g2.Model(table).Unscoped().Delete(table).Error
	if err != nil {
		helper.T.Errorf("error deleting from table %v: %v", table, err)
	}
}

func (helper *Helper) Delete(obj interface{}) {
	g2 := helper.DBFactory.New(context.Background())
	err := g2.Unscoped().Delete(obj).Error
	if err != nil {
		helper.T.Errorf("error deleting object %v: %v", obj, err)
	}
}

func (helper *Helper) SkipIfShort() {
	if testing.Short() {
		helper.T.Skip("Skipping execution of test in short mode")
	}
}

func (helper *Helper) Count(table string) int64 {
	g2 := helper.DBFactory.New(context.Background())
	var count int64
	err := g2.Table(table).Count(&count).Error
	if err != nil {
		helper.T.Errorf("error getting count for table %s: %v", table, err)
	}
	return count
}

func (helper *Helper) MigrateDB() error {
	return db.Migrate(helper.DBFactory.New(context.Background()))
}

func (helper *Helper) MigrateDBTo(migrationID string) {
	db.MigrateTo(helper.DBFactory, migrationID)
}

func (helper *Helper) CleanDB() error {
	g2 := helper.DBFactory.New(context.Background())

	tables, err := helper.getAllTables(g2)
	if err != nil {
		helper.T.Errorf("error discovering tables: %v", err)
		return err
	}

	orderedTables, err := helper.orderTablesByDependencies(g2, tables)
	if err != nil {
		helper.T.Errorf("error ordering tables by dependencies: %v", err)
		return err
	}

	for _, table := range orderedTables {
		if g2.Migrator().HasTable(table) {
			if err := g2.Migrator().DropTable(table); err != nil {
				helper.T.Errorf("error dropping table %s: %v", table, err)
				return err
			}
		}
	}
	return nil
}

// System tables should not be dropped
var systemTables = []string{"migrations"}

func isSystemTable(tableName string) bool {
	for _, sysTable := range systemTables {
		if tableName == sysTable {
			return true
		}
	}
	return false
}

func (helper *Helper) getAllTables(g2 *gorm.DB) ([]string, error) {
	var tables []string
	query := `
		SELECT tablename
		FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename NOT IN (?)
		ORDER BY tablename
	`
	err := g2.Raw(query, systemTables).Scan(&tables).Error
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// Child tables (with foreign keys) come before parent tables to ensure safe deletion
func (helper *Helper) orderTablesByDependencies(g2 *gorm.DB, tables []string) ([]string, error) {
	dependencies := make(map[string][]string)

	for _, table := range tables {
		deps, err := helper.getTableDependencies(g2, table)
		if err != nil {
			return nil, err
		}

		filteredDeps := []string{}
		for _, dep := range deps {
			if !isSystemTable(dep) {
				filteredDeps = append(filteredDeps, dep)
			}
		}
		dependencies[table] = filteredDeps
	}

	ordered := []string{}
	visited := make(map[string]bool)
	visiting := make(map[string]bool)

	var visit func(string) error
	visit = func(table string) error {
		if visited[table] {
			return nil
		}
		if visiting[table] {
			err := fmt.Errorf("circular foreign key dependency detected involving table '%s'", table)
			helper.T.Errorf("%v", err)
			return err
		}

		visiting[table] = true
		for _, dep := range dependencies[table] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[table] = false
		visited[table] = true
		ordered = append(ordered, table)
		return nil
	}

	for _, table := range tables {
		if err := visit(table); err != nil {
			return nil, err
		}
	}

	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}

	return ordered, nil
}

func (helper *Helper) getTableDependencies(g2 *gorm.DB, tableName string) ([]string, error) {
	var dependencies []string
	query := `
		SELECT DISTINCT ccu.table_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = 'public'
			AND tc.table_name = ?
	`
	err := g2.Raw(query, tableName).Scan(&dependencies).Error
	if err != nil {
		return nil, err
	}
	return dependencies, nil
}

func (helper *Helper) ResetDB() error {
	if err := helper.CleanDB(); err != nil {
		return err
	}

	if err := helper.MigrateDB(); err != nil {
		return err
	}

	return nil
}
