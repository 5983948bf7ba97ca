package factories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/infractl/infractl/cmd/infractl/environments"
	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/db"
	"github.com/infractl/infractl/plugins/resources"
)

// NewResource creates a resource of the given type through the resource
// service, so the full admission and validation path runs.
func (f *Factories) NewResource(name, typeName, typeVersion string, spec map[string]interface{}) (*api.Resource, error) {
	resourceService := resources.Service(&environments.Environment().Services)
	if resourceService == nil {
		return nil, fmt.Errorf("resource service not initialized")
	}

	if spec == nil {
		spec = map[string]interface{}{"size": "small"}
	}

	request := &api.ResourceCreateRequest{
		Name:                name,
		ResourceTypeName:    typeName,
		ResourceTypeVersion: typeVersion,
		Spec:                spec,
	}

	created, err := resourceService.Create(context.Background(), request)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %s", err.Reason)
	}
	return created, nil
}

// NewResourceOfNewType registers a fresh resource type with a stub
// reconciler and creates one resource of it.
func (f *Factories) NewResourceOfNewType() (*StubReconciler, *api.Resource, error) {
	reconciler, typeName, typeVersion, err := f.NewReconciledType()
	if err != nil {
		return nil, nil, err
	}
	resource, err := f.NewResource(fmt.Sprintf("res-%s", f.NewID()), typeName, typeVersion, nil)
	if err != nil {
		return nil, nil, err
	}
	return reconciler, resource, nil
}

// reloadResource reloads a resource from the database to ensure all fields are current.
func reloadResource(dbSession *gorm.DB, resource *api.Resource) error {
	return dbSession.First(resource, "id = ?", resource.ID).Error
}

// NewResourceWithStatus creates a resource and forces its observed state,
// bypassing the scheduler.
func NewResourceWithStatus(
	f *Factories, dbFactory db.SessionFactory, typeName, typeVersion, status string, ready bool,
) (*api.Resource, error) {
	resource, err := f.NewResource(fmt.Sprintf("res-%s", f.NewID()), typeName, typeVersion, nil)
	if err != nil {
		return nil, err
	}

	readyStatus := api.ConditionFalse
	if ready {
		readyStatus = api.ConditionTrue
	}
	conditions := []api.ResourceCondition{
		{
			Type:               api.ConditionTypeReady,
			Status:             readyStatus,
			Reason:             api.ReasonReconcileSuccess,
			LastTransitionTime: time.Now(),
			ObservedGeneration: resource.Generation,
		},
	}
	conditionsJSON, err := json.Marshal(conditions)
	if err != nil {
		return nil, err
	}

	dbSession := dbFactory.New(context.Background())
	err = dbSession.Model(resource).Updates(map[string]interface{}{
		"status":              status,
		"observed_generation": resource.Generation,
		"conditions":          conditionsJSON,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := reloadResource(dbSession, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

// NewResourceDueNow creates a resource and backdates its next reconcile time
// so the scheduler claims it on the next tick.
func NewResourceDueNow(
	f *Factories, dbFactory db.SessionFactory, typeName, typeVersion string,
) (*api.Resource, error) {
	resource, err := f.NewResource(fmt.Sprintf("res-%s", f.NewID()), typeName, typeVersion, nil)
	if err != nil {
		return nil, err
	}

	past := time.Now().Add(-time.Minute)
	dbSession := dbFactory.New(context.Background())
	err = dbSession.Model(resource).Update("next_reconcile_time", past).Error
	if err != nil {
		return nil, err
	}

	if err := reloadResource(dbSession, resource); err != nil {
		return nil, err
	}
	return resource, nil
}
