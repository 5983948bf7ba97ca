package presenters

import (
	"encoding/json"
	"time"

	"github.com/infractl/infractl/pkg/api"
)

// Resource is the external representation of an api.Resource with the jsonb
// columns decoded into documents.
type Resource struct {
	ID                  int64                   `json:"id"`
	Name                string                  `json:"name"`
	ResourceTypeName    string                  `json:"resource_type_name"`
	ResourceTypeVersion string                  `json:"resource_type_version"`
	Spec                map[string]interface{}  `json:"spec"`
	Outputs             map[string]interface{}  `json:"outputs,omitempty"`
	Finalizers          []string                `json:"finalizers"`
	Status              string                  `json:"status"`
	StatusMessage       string                  `json:"status_message,omitempty"`
	Generation          int32                   `json:"generation"`
	ObservedGeneration  int32                   `json:"observed_generation"`
	SpecHash            string                  `json:"spec_hash"`
	RetryCount          int32                   `json:"retry_count"`
	LastReconcileTime   *time.Time              `json:"last_reconcile_time,omitempty"`
	NextReconcileTime   *time.Time              `json:"next_reconcile_time,omitempty"`
	Conditions          []api.ResourceCondition `json:"conditions"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
	DeletedAt           *time.Time              `json:"deleted_at,omitempty"`
}

// PresentResource converts a database model into its external representation.
func PresentResource(r *api.Resource) (*Resource, error) {
	spec, err := r.SpecDocument()
	if err != nil {
		return nil, err
	}

	finalizers, err := r.FinalizerList()
	if err != nil {
		return nil, err
	}
	if finalizers == nil {
		finalizers = []string{}
	}

	conditions, err := r.ConditionList()
	if err != nil {
		return nil, err
	}
	if conditions == nil {
		conditions = []api.ResourceCondition{}
	}

	var outputs map[string]interface{}
	if len(r.Outputs) > 0 {
		if err := json.Unmarshal(r.Outputs, &outputs); err != nil {
			return nil, err
		}
	}

	presented := &Resource{
		ID:                  r.ID,
		Name:                r.Name,
		ResourceTypeName:    r.ResourceTypeName,
		ResourceTypeVersion: r.ResourceTypeVersion,
		Spec:                spec,
		Outputs:             outputs,
		Finalizers:          finalizers,
		Status:              r.Status,
		StatusMessage:       r.StatusMessage,
		Generation:          r.Generation,
		ObservedGeneration:  r.ObservedGeneration,
		SpecHash:            r.SpecHash,
		RetryCount:          r.RetryCount,
		LastReconcileTime:   r.LastReconcileTime,
		NextReconcileTime:   r.NextReconcileTime,
		Conditions:          conditions,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}

	if r.DeletedAt.Valid {
		t := r.DeletedAt.Time
		presented.DeletedAt = &t
	}

	return presented, nil
}

// PresentResourceList converts a list of database models.
func PresentResourceList(resources api.ResourceList) ([]*Resource, error) {
	presented := make([]*Resource, 0, len(resources))
	for _, r := range resources {
		p, err := PresentResource(r)
		if err != nil {
			return nil, err
		}
		presented = append(presented, p)
	}
	return presented, nil
}
