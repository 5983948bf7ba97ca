package controller

import (
	"context"
	"time"

	"github.com/infractl/infractl/pkg/api"
)

// Result is what a reconciler reports after driving real infrastructure
// toward the desired spec.
type Result struct {
	// Outputs are provider-assigned values (endpoints, identifiers) exposed
	// on the resource.
	Outputs map[string]interface{}

	// PlanOutput and ApplyOutput capture tool output for the history record.
	PlanOutput  string
	ApplyOutput string

	ResourcesCreated int32
	ResourcesUpdated int32
	ResourcesDeleted int32

	// DriftDetected reports that the live state had diverged from the spec
	// before this attempt corrected it.
	DriftDetected bool

	// RequeueAfter asks for a re-check sooner than the drift interval.
	// Zero means the regular drift schedule.
	RequeueAfter time.Duration
}

// Reconciler drives external infrastructure for one resource type.
// Implementations are registered at startup and invoked by the scheduler.
type Reconciler interface {
	// Name identifies the reconciler in logs and finalizers.
	Name() string

	// Reconcile drives the external state toward the desired spec.
	Reconcile(ctx context.Context, rc *ReconcileContext) (*Result, error)

	// Destroy tears down the external state. Called on the deletion path;
	// it must be idempotent.
	Destroy(ctx context.Context, rc *ReconcileContext) error

	// Finalizer names the finalizer this reconciler guards deletion with.
	// It is added to every resource of the type at creation time and removed
	// only after Destroy succeeds.
	Finalizer() string
}

// ReconcileContext is the read-only view of the attempt handed to a
// reconciler.
type ReconcileContext struct {
	Resource      *api.Resource
	Spec          map[string]interface{}
	Generation    int32
	TriggerReason string
}

// NewReconcileContext builds the reconciler's view of a claimed resource.
func NewReconcileContext(resource *api.Resource, trigger string) (*ReconcileContext, error) {
	spec, err := resource.SpecDocument()
	if err != nil {
		return nil, err
	}
	return &ReconcileContext{
		Resource:      resource,
		Spec:          spec,
		Generation:    resource.Generation,
		TriggerReason: trigger,
	}, nil
}
