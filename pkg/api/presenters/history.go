package presenters

import (
	"time"

	"github.com/infractl/infractl/pkg/api"
)

// ReconciliationHistoryEntry is the external representation of one attempt.
type ReconciliationHistoryEntry struct {
	ID               int64     `json:"id"`
	ResourceID       int64     `json:"resource_id"`
	Generation       int32     `json:"generation"`
	Success          bool      `json:"success"`
	Phase            string    `json:"phase"`
	PlanOutput       string    `json:"plan_output,omitempty"`
	ApplyOutput      string    `json:"apply_output,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	ResourcesCreated int32     `json:"resources_created"`
	ResourcesUpdated int32     `json:"resources_updated"`
	ResourcesDeleted int32     `json:"resources_deleted"`
	DurationSeconds  float64   `json:"duration_seconds"`
	TriggerReason    string    `json:"trigger_reason"`
	DriftDetected    bool      `json:"drift_detected"`
	ReconcileTime    time.Time `json:"reconcile_time"`
}

// PresentReconciliationHistory converts a database model into its external representation.
func PresentReconciliationHistory(h *api.ReconciliationHistory) *ReconciliationHistoryEntry {
	return &ReconciliationHistoryEntry{
		ID:               h.ID,
		ResourceID:       h.ResourceID,
		Generation:       h.Generation,
		Success:          h.Success,
		Phase:            h.Phase,
		PlanOutput:       h.PlanOutput,
		ApplyOutput:      h.ApplyOutput,
		ErrorMessage:     h.ErrorMessage,
		ResourcesCreated: h.ResourcesCreated,
		ResourcesUpdated: h.ResourcesUpdated,
		ResourcesDeleted: h.ResourcesDeleted,
		DurationSeconds:  h.DurationSeconds,
		TriggerReason:    h.TriggerReason,
		DriftDetected:    h.DriftDetected,
		ReconcileTime:    h.ReconcileTime,
	}
}

// PresentReconciliationHistoryList converts a list of database models.
func PresentReconciliationHistoryList(entries api.ReconciliationHistoryList) []*ReconciliationHistoryEntry {
	presented := make([]*ReconciliationHistoryEntry, 0, len(entries))
	for _, h := range entries {
		presented = append(presented, PresentReconciliationHistory(h))
	}
	return presented
}
