package dao

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/db"
)

// ResourceDao defines the data access interface for resources.
type ResourceDao interface {
	// Get retrieves a live resource by ID.
	Get(ctx context.Context, id int64) (*api.Resource, error)

	// GetIncludingDeleted retrieves a resource by ID even after it has been
	// soft-deleted. The scheduler uses this on the destroy path.
	GetIncludingDeleted(ctx context.Context, id int64) (*api.Resource, error)

	// GetByTypeAndName retrieves a live resource by type identity and name.
	GetByTypeAndName(ctx context.Context, typeName, typeVersion, name string) (*api.Resource, error)

	// Create inserts a new resource.
	Create(ctx context.Context, resource *api.Resource) (*api.Resource, error)

	// Save persists all fields of the resource, including soft-deleted rows.
	// Reserved for the write gateway, which owns the desired-state columns.
	Save(ctx context.Context, resource *api.Resource) (*api.Resource, error)

	// UpdateObservedState persists only the observed-state columns (status,
	// status_message, observed_generation, retry_count, reconcile timestamps,
	// conditions, outputs). Desired-state columns (spec, spec_hash,
	// generation, finalizers) are never touched, so a spec update landing
	// while an attempt is in flight survives the attempt's completion.
	UpdateObservedState(ctx context.Context, resource *api.Resource) error

	// MarkDeleting soft-deletes a resource: sets deleted_at, flips the status
	// to deleting and schedules an immediate destroy attempt.
	MarkDeleting(ctx context.Context, id int64) error

	// HardDelete removes a soft-deleted row whose finalizer list is empty.
	// Rows that are still live or still hold finalizers are left untouched;
	// the returned count is 0 in that case.
	HardDelete(ctx context.Context, id int64) (int64, error)

	// AddFinalizer appends a finalizer if not already present.
	AddFinalizer(ctx context.Context, id int64, finalizer string) error

	// RemoveFinalizer removes a finalizer if present.
	RemoveFinalizer(ctx context.Context, id int64, finalizer string) error

	// All returns every live resource.
	All(ctx context.Context) (api.ResourceList, error)

	// ListByType returns live resources of one type identity.
	ListByType(ctx context.Context, typeName, typeVersion string) (api.ResourceList, error)

	// CountByType counts live resources referencing a type identity.
	CountByType(ctx context.Context, typeName, typeVersion string) (int64, error)

	// ClaimReconcileBatch atomically selects up to limit due resources and
	// flips them to reconciling (rows on the destroy path stay deleting) so
	// concurrent claimers never hand out the same row twice.
	ClaimReconcileBatch(ctx context.Context, limit int, driftIntervalSeconds int) (api.ResourceList, error)

	// ListNeedingReconciliation returns resources of the given types that are
	// due for work, without claiming them: the same predicate as
	// ClaimReconcileBatch, including drift checks and soft-deleted rows
	// awaiting destroy. Reconciler loops use this for read-only inspection.
	ListNeedingReconciliation(ctx context.Context, typeNames []string, limit int, driftIntervalSeconds int) (api.ResourceList, error)
}

var _ ResourceDao = &sqlResourceDao{}

type sqlResourceDao struct {
	sessionFactory *db.SessionFactory
}

// NewResourceDao creates a new ResourceDao instance.
func NewResourceDao(sessionFactory *db.SessionFactory) ResourceDao {
	return &sqlResourceDao{sessionFactory: sessionFactory}
}

func (d *sqlResourceDao) Get(ctx context.Context, id int64) (*api.Resource, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var resource api.Resource
	if err := g2.Take(&resource, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

func (d *sqlResourceDao) GetIncludingDeleted(ctx context.Context, id int64) (*api.Resource, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var resource api.Resource
	if err := g2.Unscoped().Take(&resource, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

func (d *sqlResourceDao) GetByTypeAndName(ctx context.Context, typeName, typeVersion, name string) (*api.Resource, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var resource api.Resource
	err := g2.Take(&resource, "resource_type_name = ? AND resource_type_version = ? AND name = ?",
		typeName, typeVersion, name).Error
	if err != nil {
		return nil, err
	}
	return &resource, nil
}

func (d *sqlResourceDao) Create(ctx context.Context, resource *api.Resource) (*api.Resource, error) {
	g2 := (*d.sessionFactory).New(ctx)
	if err := g2.Omit(clause.Associations).Create(resource).Error; err != nil {
		db.MarkForRollback(ctx, err)
		return nil, err
	}
	return resource, nil
}

func (d *sqlResourceDao) Save(ctx context.Context, resource *api.Resource) (*api.Resource, error) {
	g2 := (*d.sessionFactory).New(ctx)
	if err := g2.Unscoped().Omit(clause.Associations).Save(resource).Error; err != nil {
		db.MarkForRollback(ctx, err)
		return nil, err
	}
	return resource, nil
}

// observedStateColumns are the columns the controller side is allowed to
// write. Keeping the list explicit means an attempt completing with a stale
// snapshot cannot roll back a spec update committed while it ran.
var observedStateColumns = []string{
	"status",
	"status_message",
	"observed_generation",
	"retry_count",
	"last_reconcile_time",
	"next_reconcile_time",
	"conditions",
	"outputs",
	"updated_at",
}

func (d *sqlResourceDao) UpdateObservedState(ctx context.Context, resource *api.Resource) error {
	g2 := (*d.sessionFactory).New(ctx)
	err := g2.Unscoped().Model(&api.Resource{}).
		Where("id = ?", resource.ID).
		Select(observedStateColumns).
		Updates(resource).Error
	if err != nil {
		db.MarkForRollback(ctx, err)
		return err
	}
	return nil
}

func (d *sqlResourceDao) MarkDeleting(ctx context.Context, id int64) error {
	g2 := (*d.sessionFactory).New(ctx)
	result := g2.Exec(`
		UPDATE resources
		SET deleted_at = NOW(),
		    status = ?,
		    next_reconcile_time = NOW(),
		    updated_at = NOW()
		WHERE id = ? AND deleted_at IS NULL`,
		api.StatusDeleting, id)
	if result.Error != nil {
		db.MarkForRollback(ctx, result.Error)
		return result.Error
	}
	return nil
}

func (d *sqlResourceDao) HardDelete(ctx context.Context, id int64) (int64, error) {
	g2 := (*d.sessionFactory).New(ctx)
	// The finalizer guard lives in the statement itself so a finalizer added
	// between read and delete still blocks the removal.
	result := g2.Exec(`
		DELETE FROM resources
		WHERE id = ? AND deleted_at IS NOT NULL AND finalizers = '[]'::jsonb`,
		id)
	if result.Error != nil {
		db.MarkForRollback(ctx, result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (d *sqlResourceDao) AddFinalizer(ctx context.Context, id int64, finalizer string) error {
	g2 := (*d.sessionFactory).New(ctx)
	// jsonb_exists instead of the jsonb ? operator, which collides with the
	// driver's placeholder syntax.
	result := g2.Exec(`
		UPDATE resources
		SET finalizers = CASE
		        WHEN jsonb_exists(finalizers, ?) THEN finalizers
		        ELSE finalizers || to_jsonb(?::text)
		    END,
		    updated_at = NOW()
		WHERE id = ?`,
		finalizer, finalizer, id)
	if result.Error != nil {
		db.MarkForRollback(ctx, result.Error)
		return result.Error
	}
	return nil
}

func (d *sqlResourceDao) RemoveFinalizer(ctx context.Context, id int64, finalizer string) error {
	g2 := (*d.sessionFactory).New(ctx)
	result := g2.Exec(`
		UPDATE resources
		SET finalizers = finalizers - ?::text,
		    updated_at = NOW()
		WHERE id = ?`,
		finalizer, id)
	if result.Error != nil {
		db.MarkForRollback(ctx, result.Error)
		return result.Error
	}
	return nil
}

func (d *sqlResourceDao) All(ctx context.Context) (api.ResourceList, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var resources api.ResourceList
	if err := g2.Order("created_at DESC").Find(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

func (d *sqlResourceDao) ListByType(ctx context.Context, typeName, typeVersion string) (api.ResourceList, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var resources api.ResourceList
	err := g2.Where("resource_type_name = ? AND resource_type_version = ?", typeName, typeVersion).
		Order("created_at DESC").
		Find(&resources).Error
	if err != nil {
		return nil, err
	}
	return resources, nil
}

func (d *sqlResourceDao) ListNeedingReconciliation(ctx context.Context, typeNames []string, limit int, driftIntervalSeconds int) (api.ResourceList, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var resources api.ResourceList
	// Same due predicate as claimBatchSQL, minus the status flip. Unscoped so
	// the destroy arm can see soft-deleted rows.
	query := g2.Unscoped().Where(`
		(
		    deleted_at IS NULL
		    AND status <> ?
		    AND (
		        status = ?
		        OR (status = ? AND next_reconcile_time IS NOT NULL AND next_reconcile_time <= NOW())
		        OR (status = ? AND next_reconcile_time IS NOT NULL AND next_reconcile_time <= NOW())
		        OR (status = ? AND last_reconcile_time IS NOT NULL AND last_reconcile_time <= NOW() - (? * INTERVAL '1 second'))
		        OR generation > observed_generation
		    )
		)
		OR (deleted_at IS NOT NULL AND status = ?)`,
		api.StatusReconciling,
		api.StatusPending,
		api.StatusFailed,
		api.StatusReady,
		api.StatusReady, driftIntervalSeconds,
		api.StatusDeleting)
	if len(typeNames) > 0 {
		query = query.Where("resource_type_name IN ?", typeNames)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("id").Find(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

func (d *sqlResourceDao) CountByType(ctx context.Context, typeName, typeVersion string) (int64, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var total int64
	err := g2.Model(&api.Resource{}).
		Where("resource_type_name = ? AND resource_type_version = ?", typeName, typeVersion).
		Count(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// claimBatchSQL selects due work and flips it to its in-flight status in one
// statement. FOR UPDATE SKIP LOCKED keeps concurrent claimers from blocking
// on, or double-claiming, the same rows. Deletions drain first, then new
// resources, then retries, then drift checks.
const claimBatchSQL = `
WITH due AS (
	SELECT id FROM resources
	WHERE (
	        deleted_at IS NULL
	        AND status <> 'reconciling'
	        AND (
	            status = 'pending'
	            OR (status = 'failed' AND next_reconcile_time IS NOT NULL AND next_reconcile_time <= NOW())
	            OR (status = 'ready' AND next_reconcile_time IS NOT NULL AND next_reconcile_time <= NOW())
	            OR (status = 'ready' AND last_reconcile_time IS NOT NULL AND last_reconcile_time <= NOW() - (? * INTERVAL '1 second'))
	            OR generation > observed_generation
	        )
	    )
	    OR (deleted_at IS NOT NULL AND status = 'deleting')
	ORDER BY
	    CASE
	        WHEN deleted_at IS NOT NULL THEN 0
	        WHEN status = 'pending' THEN 1
	        WHEN status = 'failed' THEN 2
	        ELSE 3
	    END,
	    id
	LIMIT ?
	FOR UPDATE SKIP LOCKED
)
UPDATE resources r
SET status = CASE WHEN r.deleted_at IS NOT NULL THEN 'deleting' ELSE 'reconciling' END,
    updated_at = NOW()
FROM due
WHERE r.id = due.id
RETURNING r.*`

func (d *sqlResourceDao) ClaimReconcileBatch(ctx context.Context, limit int, driftIntervalSeconds int) (api.ResourceList, error) {
	g2 := (*d.sessionFactory).New(ctx)
	var claimed api.ResourceList
	if err := g2.Raw(claimBatchSQL, driftIntervalSeconds, limit).Scan(&claimed).Error; err != nil {
		db.MarkForRollback(ctx, err)
		return nil, err
	}
	return claimed, nil
}
