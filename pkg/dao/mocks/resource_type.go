package mocks

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/dao"
)

var _ dao.ResourceTypeDao = &resourceTypeDaoMock{}

type resourceTypeDaoMock struct {
	mu     sync.Mutex
	nextID int64
	types  api.ResourceTypeList
}

func NewResourceTypeDao() *resourceTypeDaoMock {
	return &resourceTypeDaoMock{}
}

func (d *resourceTypeDaoMock) Get(ctx context.Context, id int64) (*api.ResourceType, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rt := range d.types {
		if rt.ID == id {
			return rt, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (d *resourceTypeDaoMock) GetByNameVersion(ctx context.Context, name, version string) (*api.ResourceType, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rt := range d.types {
		if rt.Name == name && rt.Version == version {
			return rt, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (d *resourceTypeDaoMock) Create(ctx context.Context, resourceType *api.ResourceType) (*api.ResourceType, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rt := range d.types {
		if rt.Name == resourceType.Name && rt.Version == resourceType.Version {
			return nil, gorm.ErrDuplicatedKey
		}
	}
	d.nextID++
	resourceType.ID = d.nextID
	if resourceType.Status == "" {
		resourceType.Status = api.ResourceTypeActive
	}
	d.types = append(d.types, resourceType)
	return resourceType, nil
}

func (d *resourceTypeDaoMock) Replace(ctx context.Context, resourceType *api.ResourceType) (*api.ResourceType, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, rt := range d.types {
		if rt.ID == resourceType.ID {
			d.types[i] = resourceType
			return resourceType, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (d *resourceTypeDaoMock) Delete(ctx context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, rt := range d.types {
		if rt.ID == id {
			d.types = append(d.types[:i], d.types[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (d *resourceTypeDaoMock) All(ctx context.Context) (api.ResourceTypeList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append(api.ResourceTypeList{}, d.types...), nil
}
