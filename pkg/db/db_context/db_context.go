package db_context

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

type contextKey string

const transactionKey contextKey = "transaction"

// Transaction wraps an open database transaction together with a rollback
// flag. Service code marks the flag on failure; the middleware that opened
// the transaction resolves it when the request completes.
type Transaction struct {
	g2 *gorm.DB

	mu       sync.Mutex
	rollback bool
}

func NewTransaction(g2 *gorm.DB) *Transaction {
	return &Transaction{g2: g2}
}

// Gorm returns the gorm handle bound to this transaction.
func (t *Transaction) Gorm() *gorm.DB {
	return t.g2
}

func (t *Transaction) Commit() error {
	return t.g2.Commit().Error
}

func (t *Transaction) Rollback() error {
	return t.g2.Rollback().Error
}

func (t *Transaction) MarkedForRollback() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollback
}

func (t *Transaction) SetRollbackFlag(flag bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollback = flag
}

// WithTransaction stores the transaction in the context.
func WithTransaction(ctx context.Context, tx *Transaction) context.Context {
	return context.WithValue(ctx, transactionKey, tx)
}

// Transaction retrieves the transaction stored in the context, if any.
func TransactionFromContext(ctx context.Context) (*Transaction, bool) {
	tx, ok := ctx.Value(transactionKey).(*Transaction)
	return tx, ok
}
