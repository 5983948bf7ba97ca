package api

import "time"

// ReconciliationHistory is an append-only audit record of one reconcile attempt.
type ReconciliationHistory struct {
	ID         int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	ResourceID int64 `json:"resource_id" gorm:"not null;index:idx_history_resource_time"`

	Generation int32  `json:"generation" gorm:"not null"`
	Success    bool   `json:"success" gorm:"not null"`
	Phase      string `json:"phase" gorm:"size:32;not null"`

	PlanOutput   string `json:"plan_output,omitempty" gorm:"type:text"`
	ApplyOutput  string `json:"apply_output,omitempty" gorm:"type:text"`
	ErrorMessage string `json:"error_message,omitempty" gorm:"size:2048"`

	ResourcesCreated int32 `json:"resources_created" gorm:"default:0;not null"`
	ResourcesUpdated int32 `json:"resources_updated" gorm:"default:0;not null"`
	ResourcesDeleted int32 `json:"resources_deleted" gorm:"default:0;not null"`

	DurationSeconds float64 `json:"duration_seconds" gorm:"default:0;not null"`
	TriggerReason   string  `json:"trigger_reason" gorm:"size:32;not null"`
	DriftDetected   bool    `json:"drift_detected" gorm:"default:false;not null"`

	ReconcileTime time.Time `json:"reconcile_time" gorm:"not null;index:idx_history_resource_time,sort:desc"`
}

// TableName specifies the database table name for GORM.
func (ReconciliationHistory) TableName() string {
	return "reconciliation_history"
}

// ReconciliationHistoryList is a slice of ReconciliationHistory pointers.
type ReconciliationHistoryList []*ReconciliationHistory
