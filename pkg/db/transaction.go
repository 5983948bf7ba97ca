package db

import (
	"context"

	dbContext "github.com/infractl/infractl/pkg/db/db_context"
)

// newTransaction begins a database transaction on a fresh session.
func newTransaction(ctx context.Context, connection SessionFactory) (*dbContext.Transaction, error) {
	g2 := connection.New(ctx).Begin()
	if g2.Error != nil {
		return nil, g2.Error
	}
	return dbContext.NewTransaction(g2), nil
}
