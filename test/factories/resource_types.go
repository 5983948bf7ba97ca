package factories

import (
	"context"
	"fmt"

	"github.com/bxcodec/faker/v3"

	"github.com/infractl/infractl/cmd/infractl/environments"
	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/plugins/resourcetypes"
)

// DefaultSchema is the JSON schema used by factory-created resource types. It
// accepts the default factory spec {"size": "small"}.
func DefaultSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"size": map[string]interface{}{
				"type": "string",
				"enum": []interface{}{"small", "medium", "large"},
			},
			"region": map[string]interface{}{
				"type": "string",
			},
		},
		"required":             []interface{}{"size"},
		"additionalProperties": false,
	}
}

// NewResourceType registers a resource type with the default schema.
func (f *Factories) NewResourceType(name, version string) (*api.ResourceType, error) {
	return f.NewResourceTypeWithSchema(name, version, DefaultSchema())
}

// NewResourceTypeWithSchema registers a resource type with the given schema.
func (f *Factories) NewResourceTypeWithSchema(name, version string, schema map[string]interface{}) (*api.ResourceType, error) {
	typeService := resourcetypes.Service(&environments.Environment().Services)
	if typeService == nil {
		return nil, fmt.Errorf("resource type service not initialized")
	}

	request := &api.ResourceTypeCreateRequest{
		Name:        name,
		Version:     version,
		Schema:      schema,
		Description: faker.Sentence(),
	}

	created, err := typeService.Register(context.Background(), request)
	if err != nil {
		return nil, fmt.Errorf("failed to register resource type: %s", err.Reason)
	}
	return created, nil
}
