package dao

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/db"
)

// HistoryDao defines the data access interface for reconciliation history.
type HistoryDao interface {
	// Create records one reconciliation attempt.
	Create(ctx context.Context, entry *api.ReconciliationHistory) (*api.ReconciliationHistory, error)

	// ListByResource returns attempts for a resource, newest first,
	// skipping offset entries.
	ListByResource(ctx context.Context, resourceID int64, limit, offset int) (api.ReconciliationHistoryList, error)
}

var _ HistoryDao = &sqlHistoryDao{}

type sqlHistoryDao struct {
	sessionFactory *db.SessionFactory
}

// NewHistoryDao creates a new HistoryDao instance.
func NewHistoryDao(sessionFactory *db.SessionFactory) HistoryDao {
	return &sqlHistoryDao{sessionFactory: sessionFactory}
}

func (d *sqlHistoryDao) Create(ctx context.Context, entry *api.ReconciliationHistory) (*api.ReconciliationHistory, error) {
	g2 := (*d.sessionFactory).New(ctx)
	if err := g2.Omit(clause.Associations).Create(entry).Error; err != nil {
		db.MarkForRollback(ctx, err)
		return nil, err
	}
	return entry, nil
}

func (d *sqlHistoryDao) ListByResource(ctx context.Context, resourceID int64, limit, offset int) (api.ReconciliationHistoryList, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var entries api.ReconciliationHistoryList
	query := g2.Where("resource_id = ?", resourceID).Order("reconcile_time DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
