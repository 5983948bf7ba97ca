package dao

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/db"
)

// ResourceTypeDao defines the data access interface for resource type
// definitions.
type ResourceTypeDao interface {
	// Get retrieves a resource type by ID.
	Get(ctx context.Context, id int64) (*api.ResourceType, error)

	// GetByNameVersion retrieves a resource type by its (name, version) pair.
	GetByNameVersion(ctx context.Context, name, version string) (*api.ResourceType, error)

	// Create inserts a new resource type.
	Create(ctx context.Context, resourceType *api.ResourceType) (*api.ResourceType, error)

	// Replace updates an existing resource type.
	Replace(ctx context.Context, resourceType *api.ResourceType) (*api.ResourceType, error)

	// Delete removes a resource type by ID.
	Delete(ctx context.Context, id int64) error

	// All returns every registered resource type.
	All(ctx context.Context) (api.ResourceTypeList, error)
}

var _ ResourceTypeDao = &sqlResourceTypeDao{}

type sqlResourceTypeDao struct {
	sessionFactory *db.SessionFactory
}

// NewResourceTypeDao creates a new ResourceTypeDao instance.
func NewResourceTypeDao(sessionFactory *db.SessionFactory) ResourceTypeDao {
	return &sqlResourceTypeDao{sessionFactory: sessionFactory}
}

func (d *sqlResourceTypeDao) Get(ctx context.Context, id int64) (*api.ResourceType, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var resourceType api.ResourceType
	if err := g2.Take(&resourceType, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resourceType, nil
}

func (d *sqlResourceTypeDao) GetByNameVersion(ctx context.Context, name, version string) (*api.ResourceType, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var resourceType api.ResourceType
	if err := g2.Take(&resourceType, "name = ? AND version = ?", name, version).Error; err != nil {
		return nil, err
	}
	return &resourceType, nil
}

func (d *sqlResourceTypeDao) Create(ctx context.Context, resourceType *api.ResourceType) (*api.ResourceType, error) {
	g2 := (*d.sessionFactory).New(ctx)
	if err := g2.Omit(clause.Associations).Create(resourceType).Error; err != nil {
		db.MarkForRollback(ctx, err)
		return nil, err
	}
	return resourceType, nil
}

func (d *sqlResourceTypeDao) Replace(ctx context.Context, resourceType *api.ResourceType) (*api.ResourceType, error) {
	g2 := (*d.sessionFactory).New(ctx)
	if err := g2.Omit(clause.Associations).Save(resourceType).Error; err != nil {
		db.MarkForRollback(ctx, err)
		return nil, err
	}
	return resourceType, nil
}

func (d *sqlResourceTypeDao) Delete(ctx context.Context, id int64) error {
	g2 := (*d.sessionFactory).New(ctx)
	if err := g2.Delete(&api.ResourceType{}, "id = ?", id).Error; err != nil {
		db.MarkForRollback(ctx, err)
		return err
	}
	return nil
}

func (d *sqlResourceTypeDao) All(ctx context.Context) (api.ResourceTypeList, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var resourceTypes api.ResourceTypeList
	if err := g2.Order("name ASC, version ASC").Find(&resourceTypes).Error; err != nil {
		return nil, err
	}
	return resourceTypes, nil
}
