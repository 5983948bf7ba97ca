package db

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/infractl/infractl/pkg/config"
)

// SessionFactory hands out database sessions. The production implementation
// maintains a single shared connection pool; the testcontainer implementation
// boots a disposable PostgreSQL instance.
type SessionFactory interface {
	Init(*config.DatabaseConfig)
	DirectDB() *sql.DB
	// New returns a session scoped to ctx. If ctx carries an open
	// transaction the session runs inside it.
	New(ctx context.Context) *gorm.DB
	CheckConnection() error
	NewListener(ctx context.Context, channel string, callback func(id string))
	ResetDB()
	Close() error
}
