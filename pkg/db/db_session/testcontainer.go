package db_session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/infractl/infractl/pkg/config"
	"github.com/infractl/infractl/pkg/db"
	dbContext "github.com/infractl/infractl/pkg/db/db_context"
	"github.com/infractl/infractl/pkg/logger"
)

type Testcontainer struct {
	config    *config.DatabaseConfig
	container *postgres.PostgresContainer
	g2        *gorm.DB
	sqlDB     *sql.DB
}

var _ db.SessionFactory = &Testcontainer{}

// NewTestcontainerFactory creates a SessionFactory using testcontainers.
// This starts a real PostgreSQL container for integration testing.
func NewTestcontainerFactory(config *config.DatabaseConfig) *Testcontainer {
	conn := &Testcontainer{
		config: config,
	}
	conn.Init(config)
	return conn
}

func (f *Testcontainer) Init(config *config.DatabaseConfig) {
	ctx := context.Background()

	logger.Info(ctx, "Starting PostgreSQL testcontainer...")

	container, err := postgres.Run(ctx,
		"postgres:14.2",
		postgres.WithDatabase(config.Name),
		postgres.WithUsername(config.Username),
		postgres.WithPassword(config.Password),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		logger.Error(ctx, "Failed to start PostgreSQL testcontainer", "error", err.Error())
		os.Exit(1)
	}

	f.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		logger.Error(ctx, "Failed to get connection string from testcontainer", "error", err.Error())
		os.Exit(1)
	}

	logger.Info(ctx, "PostgreSQL testcontainer started")

	f.sqlDB, err = sql.Open("postgres", connStr)
	if err != nil {
		logger.Error(ctx, "Failed to connect to testcontainer database", "error", err.Error())
		os.Exit(1)
	}

	f.sqlDB.SetMaxOpenConns(config.MaxOpenConnections)

	conf := &gorm.Config{
		PrepareStmt:            false,
		FullSaveAssociations:   false,
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	}

	if config.Debug {
		conf.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	f.g2, err = gorm.Open(gormpostgres.New(gormpostgres.Config{
		Conn:                 f.sqlDB,
		PreferSimpleProtocol: true,
	}), conf)
	if err != nil {
		logger.Error(ctx, "Failed to connect GORM to testcontainer database", "error", err.Error())
		os.Exit(1)
	}

	logger.Info(ctx, "Running database migrations on testcontainer...")
	if err := db.Migrate(f.g2); err != nil {
		logger.Error(ctx, "Failed to run migrations on testcontainer", "error", err.Error())
		os.Exit(1)
	}

	logger.Info(ctx, "Testcontainer database initialized successfully")
}

func (f *Testcontainer) DirectDB() *sql.DB {
	return f.sqlDB
}

func (f *Testcontainer) New(ctx context.Context) *gorm.DB {
	if tx, ok := dbContext.TransactionFromContext(ctx); ok {
		return tx.Gorm().Session(&gorm.Session{
			Context: ctx,
		})
	}
	conn := f.g2.Session(&gorm.Session{
		Context: ctx,
		Logger:  f.g2.Logger.LogMode(gormlogger.Silent),
	})
	if f.config.Debug {
		conn = conn.Debug()
	}
	return conn
}

func (f *Testcontainer) CheckConnection() error {
	_, err := f.sqlDB.Exec("SELECT 1")
	return err
}

func (f *Testcontainer) Close() error {
	ctx := context.Background()

	if f.sqlDB != nil {
		if err := f.sqlDB.Close(); err != nil {
			logger.Error(ctx, "Error closing SQL connection", "error", err.Error())
		}
	}

	if f.container != nil {
		logger.Info(ctx, "Stopping PostgreSQL testcontainer...")
		if err := f.container.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate testcontainer: %s", err)
		}
		logger.Info(ctx, "PostgreSQL testcontainer stopped")
	}

	return nil
}

func (f *Testcontainer) ResetDB() {
	ctx := context.Background()
	g2 := f.New(ctx)

	// Truncate in FK order; history references resources.
	tables := []string{
		"reconciliation_history",
		"resources",
		"resource_types",
		"admission_webhooks",
		"locks",
	}
	for _, table := range tables {
		if g2.Migrator().HasTable(table) {
			if err := g2.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
				logger.Error(ctx, "Error truncating table", logger.FieldTable, table, "error", err.Error())
			}
		}
	}
}

func (f *Testcontainer) NewListener(ctx context.Context, channel string, callback func(id string)) {
	connStr, err := f.container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		logger.Error(ctx, "Failed to get connection string for listener", "error", err.Error())
		return
	}

	newListener(ctx, connStr, channel, callback)
}
