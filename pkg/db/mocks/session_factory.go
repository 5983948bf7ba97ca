package mocks

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/infractl/infractl/pkg/config"
	"github.com/infractl/infractl/pkg/db"
)

var _ db.SessionFactory = &mockSessionFactory{}

// mockSessionFactory is a sqlmock-backed session factory for unit tests that
// never touch a real database.
type mockSessionFactory struct {
	directDB *sql.DB
	g2       *gorm.DB
	mock     sqlmock.Sqlmock
}

// NewMockSessionFactory returns a session factory over a sqlmock connection.
func NewMockSessionFactory() db.SessionFactory {
	directDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		panic(fmt.Sprintf("failed to create sqlmock connection: %v", err))
	}

	g2, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 directDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{PrepareStmt: false})
	if err != nil {
		panic(fmt.Sprintf("failed to open gorm over sqlmock: %v", err))
	}

	return &mockSessionFactory{
		directDB: directDB,
		g2:       g2,
		mock:     mock,
	}
}

func (f *mockSessionFactory) Init(_ *config.DatabaseConfig) {}

func (f *mockSessionFactory) DirectDB() *sql.DB {
	return f.directDB
}

func (f *mockSessionFactory) New(ctx context.Context) *gorm.DB {
	return f.g2.Session(&gorm.Session{Context: ctx})
}

func (f *mockSessionFactory) CheckConnection() error {
	return nil
}

func (f *mockSessionFactory) NewListener(_ context.Context, _ string, _ func(id string)) {
}

func (f *mockSessionFactory) ResetDB() {}

func (f *mockSessionFactory) Close() error {
	return f.directDB.Close()
}
