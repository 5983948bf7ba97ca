// This file contains the ResourceType model: a named, versioned schema
// declaration that resources are validated against.

package api

import (
	"time"

	"gorm.io/datatypes"
)

// ResourceType status values
const (
	ResourceTypeActive     = "active"
	ResourceTypeDeprecated = "deprecated"
)

// ResourceType declares a schema for a family of resources. The (Name, Version)
// pair is immutable once created.
type ResourceType struct {
	ID          int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string         `json:"name" gorm:"size:63;not null;uniqueIndex:idx_resource_types_name_version"`
	Version     string         `json:"version" gorm:"size:63;not null;uniqueIndex:idx_resource_types_name_version"`
	Schema      datatypes.JSON `json:"schema" gorm:"type:jsonb;not null"`
	Description string         `json:"description" gorm:"size:1024"`
	Status      string         `json:"status" gorm:"size:32;not null;default:active"`
	Metadata    datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName specifies the database table name for GORM.
func (ResourceType) TableName() string {
	return "resource_types"
}

// ResourceTypeList is a slice of ResourceType pointers.
type ResourceTypeList []*ResourceType

// ResourceTypeCreateRequest is the POST body for registering a resource type.
type ResourceTypeCreateRequest struct {
	Name        string                 `json:"name"`
	Version     string                 `json:"version"`
	Schema      map[string]interface{} `json:"schema"`
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
