package presenters

import (
	"encoding/json"
	"time"

	"github.com/infractl/infractl/pkg/api"
)

// ResourceType is the external representation of an api.ResourceType.
type ResourceType struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	Version     string                 `json:"version"`
	Schema      map[string]interface{} `json:"schema"`
	Description string                 `json:"description,omitempty"`
	Status      string                 `json:"status"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// PresentResourceType converts a database model into its external representation.
func PresentResourceType(rt *api.ResourceType) (*ResourceType, error) {
	var schema map[string]interface{}
	if err := json.Unmarshal(rt.Schema, &schema); err != nil {
		return nil, err
	}

	var metadata map[string]interface{}
	if len(rt.Metadata) > 0 {
		if err := json.Unmarshal(rt.Metadata, &metadata); err != nil {
			return nil, err
		}
	}

	return &ResourceType{
		ID:          rt.ID,
		Name:        rt.Name,
		Version:     rt.Version,
		Schema:      schema,
		Description: rt.Description,
		Status:      rt.Status,
		Metadata:    metadata,
		CreatedAt:   rt.CreatedAt,
		UpdatedAt:   rt.UpdatedAt,
	}, nil
}

// PresentResourceTypeList converts a list of database models.
func PresentResourceTypeList(types api.ResourceTypeList) ([]*ResourceType, error) {
	presented := make([]*ResourceType, 0, len(types))
	for _, rt := range types {
		p, err := PresentResourceType(rt)
		if err != nil {
			return nil, err
		}
		presented = append(presented, p)
	}
	return presented, nil
}
