package status

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/infractl/infractl/pkg/api"
)

// Apply merges condition updates into the resource's condition list.
//
// Conditions are keyed by type. A condition whose status value is unchanged
// keeps its lastTransitionTime; only a real status flip advances it. Every
// applied condition records the resource's current generation as
// observedGeneration. New condition types append, preserving insertion order.
func Apply(r *api.Resource, now time.Time, updates []api.ResourceCondition) error {
	existing, err := r.ConditionList()
	if err != nil {
		return err
	}

	for _, update := range updates {
		update.ObservedGeneration = r.Generation
		update.LastTransitionTime = now

		found := false
		for i, current := range existing {
			if current.Type != update.Type {
				continue
			}
			if current.Status == update.Status {
				update.LastTransitionTime = current.LastTransitionTime
			}
			existing[i] = update
			found = true
			break
		}
		if !found {
			existing = append(existing, update)
		}
	}

	encoded, err := json.Marshal(existing)
	if err != nil {
		return err
	}
	r.Conditions = datatypes.JSON(encoded)
	return nil
}

// StartConditions marks the beginning of a reconcile attempt.
func StartConditions() []api.ResourceCondition {
	return []api.ResourceCondition{
		{
			Type:    api.ConditionTypeReady,
			Status:  api.ConditionUnknown,
			Reason:  api.ReasonReconcileStarted,
			Message: "Reconciliation in progress",
		},
		{
			Type:    api.ConditionTypeReconciling,
			Status:  api.ConditionTrue,
			Reason:  api.ReasonInProgress,
			Message: "Reconciliation in progress",
		},
	}
}

// SuccessConditions marks a completed, successful reconcile attempt.
func SuccessConditions() []api.ResourceCondition {
	return []api.ResourceCondition{
		{
			Type:    api.ConditionTypeReady,
			Status:  api.ConditionTrue,
			Reason:  api.ReasonReconcileSuccess,
			Message: "Resource reconciled successfully",
		},
		{
			Type:    api.ConditionTypeReconciling,
			Status:  api.ConditionFalse,
			Reason:  api.ReasonReconcileComplete,
			Message: "Reconciliation complete",
		},
		{
			Type:    api.ConditionTypeDegraded,
			Status:  api.ConditionFalse,
			Reason:  api.ReasonNoErrors,
			Message: "No errors detected",
		},
	}
}

// FailureConditions marks a completed, failed reconcile attempt. The reason
// identifies the error class; the message carries the reconciler's error text.
func FailureConditions(reason, message string) []api.ResourceCondition {
	if reason == "" {
		reason = api.ReasonReconcileFailed
	}
	return []api.ResourceCondition{
		{
			Type:    api.ConditionTypeReady,
			Status:  api.ConditionFalse,
			Reason:  reason,
			Message: message,
		},
		{
			Type:    api.ConditionTypeReconciling,
			Status:  api.ConditionFalse,
			Reason:  api.ReasonReconcileComplete,
			Message: "Reconciliation complete",
		},
		{
			Type:    api.ConditionTypeDegraded,
			Status:  api.ConditionTrue,
			Reason:  reason,
			Message: message,
		},
	}
}

// DeletingConditions marks a resource on the destroy path.
func DeletingConditions() []api.ResourceCondition {
	return []api.ResourceCondition{
		{
			Type:    api.ConditionTypeReady,
			Status:  api.ConditionUnknown,
			Reason:  api.ReasonDeleting,
			Message: "Resource is being deleted",
		},
		{
			Type:    api.ConditionTypeReconciling,
			Status:  api.ConditionFalse,
			Reason:  api.ReasonDeleting,
			Message: "Resource is being deleted",
		},
	}
}
