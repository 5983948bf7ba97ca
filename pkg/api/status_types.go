package api

import "time"

// ConditionStatus represents the status of a resource condition
type ConditionStatus string

const (
	ConditionTrue    ConditionStatus = "True"
	ConditionFalse   ConditionStatus = "False"
	ConditionUnknown ConditionStatus = "Unknown"
)

// Standard condition types maintained by the status engine. Reconcilers may
// merge additional domain-specific types into the same sequence.
const (
	ConditionTypeReady       = "Ready"
	ConditionTypeReconciling = "Reconciling"
	ConditionTypeDegraded    = "Degraded"
)

// Standard condition reasons
const (
	ReasonReconcileStarted  = "ReconcileStarted"
	ReasonInProgress        = "InProgress"
	ReasonReconcileSuccess  = "ReconcileSuccess"
	ReasonReconcileComplete = "ReconcileComplete"
	ReasonNoErrors          = "NoErrors"
	ReasonReconcileFailed   = "ReconcileFailed"
	ReasonDeleting          = "Deleting"
	ReasonNoReconciler      = "NoReconciler"
)

// ResourceCondition is a named boolean state with a transition timestamp.
// JSON tags match the database JSONB structure.
type ResourceCondition struct {
	Type               string          `json:"type"`
	Status             ConditionStatus `json:"status"`
	Reason             string          `json:"reason,omitempty"`
	Message            string          `json:"message,omitempty"`
	LastTransitionTime time.Time       `json:"lastTransitionTime"`
	ObservedGeneration int32           `json:"observedGeneration"`
}
