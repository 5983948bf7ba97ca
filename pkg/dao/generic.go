package dao

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/infractl/infractl/pkg/db"
)

// GenericDao hands out model-scoped instance DAOs for search-driven listing.
type GenericDao interface {
	GetInstanceDao(ctx context.Context, model interface{}) GenericInstanceDao
}

// GenericInstanceDao runs count and fetch queries against a single model.
type GenericInstanceDao interface {
	// TableName resolves the table the model maps to.
	TableName() string

	// Count returns the number of rows matching the filter.
	Count(where sq.Sqlizer) (int64, error)

	// Fetch loads one page of rows matching the filter into list.
	Fetch(where sq.Sqlizer, orderBy []string, offset, limit int, list interface{}) error
}

var _ GenericDao = &sqlGenericDao{}

type sqlGenericDao struct {
	sessionFactory *db.SessionFactory
}

func NewGenericDao(sessionFactory *db.SessionFactory) GenericDao {
	return &sqlGenericDao{sessionFactory: sessionFactory}
}

func (d *sqlGenericDao) GetInstanceDao(ctx context.Context, model interface{}) GenericInstanceDao {
	return &sqlGenericInstanceDao{
		g2: (*d.sessionFactory).New(ctx).Model(model),
	}
}

type sqlGenericInstanceDao struct {
	g2 *gorm.DB
}

func (d *sqlGenericInstanceDao) TableName() string {
	return db.GetTableName(d.g2)
}

func (d *sqlGenericInstanceDao) query(where sq.Sqlizer) (*gorm.DB, error) {
	g2 := d.g2
	if where != nil {
		sql, values, err := where.ToSql()
		if err != nil {
			return nil, err
		}
		g2 = g2.Where(sql, values...)
	}
	return g2, nil
}

func (d *sqlGenericInstanceDao) Count(where sq.Sqlizer) (int64, error) {
	g2, err := d.query(where)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := g2.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (d *sqlGenericInstanceDao) Fetch(where sq.Sqlizer, orderBy []string, offset, limit int, list interface{}) error {
	g2, err := d.query(where)
	if err != nil {
		return err
	}
	for _, order := range orderBy {
		g2 = g2.Order(order)
	}
	return g2.Offset(offset).Limit(limit).Find(list).Error
}
