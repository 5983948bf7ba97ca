package api

import "time"

// Lock is schema scaffolding for a future multi-node leader-election mode.
// The single-node scheduler never reads or writes this table.
type Lock struct {
	ResourceKey          string    `json:"resource_key" gorm:"primaryKey;size:255"`
	HolderID             string    `json:"holder_id" gorm:"size:255;not null"`
	AcquiredAt           time.Time `json:"acquired_at" gorm:"not null"`
	LeaseDurationSeconds int32     `json:"lease_duration_seconds" gorm:"not null"`
}

// TableName specifies the database table name for GORM.
func (Lock) TableName() string {
	return "locks"
}
