package mocks

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/dao"
)

var _ dao.ResourceDao = &resourceDaoMock{}

// resourceDaoMock mirrors the claim semantics of the SQL implementation so
// scheduler and service tests can run without a database. Like the database,
// it hands out detached copies: a caller mutating a returned row changes
// nothing until it writes the row back through Save or UpdateObservedState.
type resourceDaoMock struct {
	mu        sync.Mutex
	nextID    int64
	resources api.ResourceList
}

func NewResourceDao() *resourceDaoMock {
	return &resourceDaoMock{}
}

func (d *resourceDaoMock) find(id int64) *api.Resource {
	for _, r := range d.resources {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func detached(r *api.Resource) *api.Resource {
	c := *r
	return &c
}

func (d *resourceDaoMock) Get(ctx context.Context, id int64) (*api.Resource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.find(id)
	if r == nil || r.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	return detached(r), nil
}

func (d *resourceDaoMock) GetIncludingDeleted(ctx context.Context, id int64) (*api.Resource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.find(id)
	if r == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return detached(r), nil
}

func (d *resourceDaoMock) GetByTypeAndName(ctx context.Context, typeName, typeVersion, name string) (*api.Resource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.resources {
		if r.DeletedAt.Valid {
			continue
		}
		if r.ResourceTypeName == typeName && r.ResourceTypeVersion == typeVersion && r.Name == name {
			return detached(r), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (d *resourceDaoMock) Create(ctx context.Context, resource *api.Resource) (*api.Resource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// Names are unique across all live resources, regardless of type. A
	// soft-deleted row releases the name for reuse.
	for _, r := range d.resources {
		if !r.DeletedAt.Valid && r.Name == resource.Name {
			return nil, gorm.ErrDuplicatedKey
		}
	}

	d.nextID++
	resource.ID = d.nextID
	if err := resource.BeforeCreate(nil); err != nil {
		return nil, err
	}
	now := time.Now()
	resource.CreatedAt = now
	resource.UpdatedAt = now
	d.resources = append(d.resources, detached(resource))
	return resource, nil
}

func (d *resourceDaoMock) Save(ctx context.Context, resource *api.Resource) (*api.Resource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, r := range d.resources {
		if r.ID == resource.ID {
			resource.UpdatedAt = time.Now()
			d.resources[i] = detached(resource)
			return resource, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (d *resourceDaoMock) UpdateObservedState(ctx context.Context, resource *api.Resource) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.find(resource.ID)
	if r == nil {
		return gorm.ErrRecordNotFound
	}
	r.Status = resource.Status
	r.StatusMessage = resource.StatusMessage
	r.ObservedGeneration = resource.ObservedGeneration
	r.RetryCount = resource.RetryCount
	r.LastReconcileTime = resource.LastReconcileTime
	r.NextReconcileTime = resource.NextReconcileTime
	r.Conditions = resource.Conditions
	r.Outputs = resource.Outputs
	r.UpdatedAt = time.Now()
	return nil
}

func (d *resourceDaoMock) MarkDeleting(ctx context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.find(id)
	if r == nil || r.DeletedAt.Valid {
		return nil
	}
	now := time.Now()
	r.DeletedAt = gorm.DeletedAt{Time: now, Valid: true}
	r.Status = api.StatusDeleting
	r.NextReconcileTime = &now
	r.UpdatedAt = now
	return nil
}

func (d *resourceDaoMock) HardDelete(ctx context.Context, id int64) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, r := range d.resources {
		if r.ID != id {
			continue
		}
		if !r.DeletedAt.Valid {
			return 0, nil
		}
		finalizers, err := r.FinalizerList()
		if err != nil {
			return 0, err
		}
		if len(finalizers) > 0 {
			return 0, nil
		}
		d.resources = append(d.resources[:i], d.resources[i+1:]...)
		return 1, nil
	}
	return 0, nil
}

func (d *resourceDaoMock) AddFinalizer(ctx context.Context, id int64, finalizer string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.find(id)
	if r == nil {
		return nil
	}
	finalizers, err := r.FinalizerList()
	if err != nil {
		return err
	}
	for _, f := range finalizers {
		if f == finalizer {
			return nil
		}
	}
	finalizers = append(finalizers, finalizer)
	encoded, err := json.Marshal(finalizers)
	if err != nil {
		return err
	}
	r.Finalizers = encoded
	r.UpdatedAt = time.Now()
	return nil
}

func (d *resourceDaoMock) RemoveFinalizer(ctx context.Context, id int64, finalizer string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.find(id)
	if r == nil {
		return nil
	}
	finalizers, err := r.FinalizerList()
	if err != nil {
		return err
	}
	remaining := make([]string, 0, len(finalizers))
	for _, f := range finalizers {
		if f != finalizer {
			remaining = append(remaining, f)
		}
	}
	encoded, err := json.Marshal(remaining)
	if err != nil {
		return err
	}
	r.Finalizers = encoded
	r.UpdatedAt = time.Now()
	return nil
}

func (d *resourceDaoMock) All(ctx context.Context) (api.ResourceList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var live api.ResourceList
	for _, r := range d.resources {
		if !r.DeletedAt.Valid {
			live = append(live, detached(r))
		}
	}
	return live, nil
}

func (d *resourceDaoMock) ListByType(ctx context.Context, typeName, typeVersion string) (api.ResourceList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched api.ResourceList
	for _, r := range d.resources {
		if r.DeletedAt.Valid {
			continue
		}
		if r.ResourceTypeName == typeName && r.ResourceTypeVersion == typeVersion {
			matched = append(matched, detached(r))
		}
	}
	return matched, nil
}

func (d *resourceDaoMock) CountByType(ctx context.Context, typeName, typeVersion string) (int64, error) {
	matched, err := d.ListByType(ctx, typeName, typeVersion)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// needsWork mirrors the due predicate of the SQL claim statement.
func needsWork(r *api.Resource, now time.Time, drift time.Duration) bool {
	if r.DeletedAt.Valid {
		return r.Status == api.StatusDeleting
	}
	if r.Status == api.StatusReconciling {
		return false
	}
	switch {
	case r.Status == api.StatusPending:
		return true
	case r.Status == api.StatusFailed && r.NextReconcileTime != nil && !r.NextReconcileTime.After(now):
		return true
	case r.Status == api.StatusReady && r.NextReconcileTime != nil && !r.NextReconcileTime.After(now):
		return true
	case r.Status == api.StatusReady && r.LastReconcileTime != nil && !r.LastReconcileTime.After(now.Add(-drift)):
		return true
	case r.Generation > r.ObservedGeneration:
		return true
	}
	return false
}

func (d *resourceDaoMock) ListNeedingReconciliation(ctx context.Context, typeNames []string, limit int, driftIntervalSeconds int) (api.ResourceList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	wantType := func(name string) bool {
		if len(typeNames) == 0 {
			return true
		}
		for _, t := range typeNames {
			if t == name {
				return true
			}
		}
		return false
	}

	now := time.Now()
	drift := time.Duration(driftIntervalSeconds) * time.Second
	var due api.ResourceList
	for _, r := range d.resources {
		if !wantType(r.ResourceTypeName) {
			continue
		}
		if needsWork(r, now, drift) {
			due = append(due, detached(r))
		}
		if limit > 0 && len(due) == limit {
			break
		}
	}
	return due, nil
}

func (d *resourceDaoMock) ClaimReconcileBatch(ctx context.Context, limit int, driftIntervalSeconds int) (api.ResourceList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	drift := time.Duration(driftIntervalSeconds) * time.Second

	var due api.ResourceList
	for _, r := range d.resources {
		if needsWork(r, now, drift) {
			due = append(due, r)
		}
	}

	rank := func(r *api.Resource) int {
		switch {
		case r.DeletedAt.Valid:
			return 0
		case r.Status == api.StatusPending:
			return 1
		case r.Status == api.StatusFailed:
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if rank(due[i]) != rank(due[j]) {
			return rank(due[i]) < rank(due[j])
		}
		return due[i].ID < due[j].ID
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make(api.ResourceList, 0, len(due))
	for _, r := range due {
		if !r.DeletedAt.Valid {
			r.Status = api.StatusReconciling
		}
		r.UpdatedAt = now
		claimed = append(claimed, detached(r))
	}

	return claimed, nil
}
