// This file contains the Resource model: an instance of a ResourceType with a
// user-declared desired state that reconcilers drive toward.

package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Resource phase values
const (
	StatusPending     = "pending"
	StatusReconciling = "reconciling"
	StatusReady       = "ready"
	StatusFailed      = "failed"
	StatusDeleting    = "deleting"
)

// Reconciliation trigger reasons
const (
	TriggerSpecChange = "spec_change"
	TriggerDrift      = "drift"
	TriggerManual     = "manual"
	TriggerRetry      = "retry"
	TriggerDelete     = "delete"
)

// Resource is the central entity. Desired state lives in Spec; observed state
// is the phase plus conditions written back by reconcilers.
type Resource struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"size:63;not null"`

	// Type reference; must resolve to an existing ResourceType
	ResourceTypeName    string `json:"resource_type_name" gorm:"size:63;not null;index:idx_resources_type"`
	ResourceTypeVersion string `json:"resource_type_version" gorm:"size:63;not null;index:idx_resources_type"`

	// Desired state
	Spec     datatypes.JSON `json:"spec" gorm:"type:jsonb;not null"`
	SpecHash string         `json:"spec_hash" gorm:"size:64;not null"`

	// Observed state
	Generation         int32          `json:"generation" gorm:"default:1;not null"`
	ObservedGeneration int32          `json:"observed_generation" gorm:"default:0;not null"`
	Status             string         `json:"status" gorm:"size:32;not null;default:pending;index"`
	StatusMessage      string         `json:"status_message" gorm:"size:1024"`
	Conditions         datatypes.JSON `json:"conditions" gorm:"type:jsonb"`
	Outputs            datatypes.JSON `json:"outputs,omitempty" gorm:"type:jsonb"`

	// Scheduling state
	RetryCount        int32      `json:"retry_count" gorm:"default:0;not null"`
	LastReconcileTime *time.Time `json:"last_reconcile_time,omitempty"`
	NextReconcileTime *time.Time `json:"next_reconcile_time,omitempty" gorm:"index"`

	// Deletion protocol
	Finalizers datatypes.JSON `json:"finalizers" gorm:"type:jsonb;not null;default:'[]'"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the database table name for GORM.
func (Resource) TableName() string {
	return "resources"
}

// ResourceList is a slice of Resource pointers.
type ResourceList []*Resource

// ResourceIndex maps resource IDs to Resource pointers.
type ResourceIndex map[int64]*Resource

// Index creates a map of resources indexed by ID.
func (l ResourceList) Index() ResourceIndex {
	index := ResourceIndex{}
	for _, o := range l {
		index[o.ID] = o
	}
	return index
}

// BeforeCreate is a GORM hook that sets defaults before insert.
func (r *Resource) BeforeCreate(tx *gorm.DB) error {
	if r.Generation == 0 {
		r.Generation = 1
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if len(r.Finalizers) == 0 {
		r.Finalizers = datatypes.JSON([]byte("[]"))
	}
	if len(r.Conditions) == 0 {
		r.Conditions = datatypes.JSON([]byte("[]"))
	}
	if r.SpecHash == "" {
		hash, err := HashSpec(r.Spec)
		if err != nil {
			return err
		}
		r.SpecHash = hash
	}
	return nil
}

// IsDeleting reports whether the resource has been soft-deleted.
func (r *Resource) IsDeleting() bool {
	return r.DeletedAt.Valid
}

// FinalizerList decodes the jsonb finalizer sequence.
func (r *Resource) FinalizerList() ([]string, error) {
	if len(r.Finalizers) == 0 {
		return nil, nil
	}
	var finalizers []string
	if err := json.Unmarshal(r.Finalizers, &finalizers); err != nil {
		return nil, fmt.Errorf("malformed finalizers for resource %d: %w", r.ID, err)
	}
	return finalizers, nil
}

// HasFinalizer reports whether the named finalizer is present.
func (r *Resource) HasFinalizer(name string) bool {
	finalizers, err := r.FinalizerList()
	if err != nil {
		return false
	}
	for _, f := range finalizers {
		if f == name {
			return true
		}
	}
	return false
}

// ConditionList decodes the jsonb condition sequence, preserving insertion order.
func (r *Resource) ConditionList() ([]ResourceCondition, error) {
	if len(r.Conditions) == 0 {
		return nil, nil
	}
	var conditions []ResourceCondition
	if err := json.Unmarshal(r.Conditions, &conditions); err != nil {
		return nil, fmt.Errorf("malformed conditions for resource %d: %w", r.ID, err)
	}
	return conditions, nil
}

// SpecDocument decodes the spec jsonb into a generic document.
func (r *Resource) SpecDocument() (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(r.Spec, &doc); err != nil {
		return nil, fmt.Errorf("malformed spec for resource %d: %w", r.ID, err)
	}
	return doc, nil
}

// HashSpec computes the hex sha256 of the canonical JSON encoding of a spec.
// The document is decoded and re-encoded so that map keys sort recursively and
// key-order differences never bump the generation.
func HashSpec(spec []byte) (string, error) {
	var doc interface{}
	if err := json.Unmarshal(spec, &doc); err != nil {
		return "", fmt.Errorf("spec is not valid JSON: %w", err)
	}
	return HashSpecDocument(doc)
}

// HashSpecDocument computes the canonical spec hash of a decoded document.
func HashSpecDocument(doc interface{}) (string, error) {
	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ResourceCreateRequest is the POST body for creating a resource.
type ResourceCreateRequest struct {
	Name                string                 `json:"name"`
	ResourceTypeName    string                 `json:"resource_type_name"`
	ResourceTypeVersion string                 `json:"resource_type_version"`
	Spec                map[string]interface{} `json:"spec"`
}

// ResourceUpdateRequest is the PUT body replacing the desired spec.
type ResourceUpdateRequest struct {
	Spec map[string]interface{} `json:"spec"`
}

// FinalizerPatchRequest is the PUT body for finalizer edits; both lists are
// applied atomically with set semantics.
type FinalizerPatchRequest struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}
