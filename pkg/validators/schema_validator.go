package validators

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/infractl/infractl/pkg/errors"
)

// SpecValidator validates resource specs against the OpenAPI schema stored on
// their resource type. Compiled schemas are cached by their raw document so a
// hot type is only parsed once.
type SpecValidator struct {
	mu    sync.RWMutex
	cache map[string]*openapi3.Schema
}

// NewSpecValidator creates a new SpecValidator.
func NewSpecValidator() *SpecValidator {
	return &SpecValidator{
		cache: map[string]*openapi3.Schema{},
	}
}

// Compile parses and validates an OpenAPI schema document. Used at type
// registration time to reject malformed schemas up front.
func (v *SpecValidator) Compile(schemaDoc []byte) (*openapi3.Schema, error) {
	v.mu.RLock()
	cached, ok := v.cache[string(schemaDoc)]
	v.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var schema openapi3.Schema
	if err := schema.UnmarshalJSON(schemaDoc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if err := schema.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("schema is invalid: %w", err)
	}

	v.mu.Lock()
	v.cache[string(schemaDoc)] = &schema
	v.mu.Unlock()

	return &schema, nil
}

// ValidateSpec validates a spec document against a stored schema. Schema
// defaults are applied to the document first, so the returned spec is the one
// that should be persisted.
func (v *SpecValidator) ValidateSpec(schemaDoc []byte, spec map[string]interface{}) (map[string]interface{}, *errors.ServiceError) {
	schema, err := v.Compile(schemaDoc)
	if err != nil {
		return nil, errors.GeneralError("resource type schema is malformed: %v", err)
	}

	applyDefaults(schema, spec)

	if err := schema.VisitJSON(interface{}(spec)); err != nil {
		return nil, errors.ValidationWithDetails(
			"Spec validation failed",
			convertValidationError(err, "spec"),
		)
	}

	return spec, nil
}

// applyDefaults walks object properties and fills in missing keys that carry
// a schema default, recursing into nested objects that are present.
func applyDefaults(schema *openapi3.Schema, doc map[string]interface{}) {
	if schema == nil || doc == nil {
		return
	}
	for name, propRef := range schema.Properties {
		if propRef == nil || propRef.Value == nil {
			continue
		}
		prop := propRef.Value
		value, present := doc[name]
		if !present {
			if prop.Default != nil {
				doc[name] = prop.Default
			}
			continue
		}
		if nested, ok := value.(map[string]interface{}); ok {
			applyDefaults(prop, nested)
		}
	}
}

// convertValidationError converts OpenAPI validation errors to our ValidationDetail format
func convertValidationError(err error, prefix string) []errors.ValidationDetail {
	var details []errors.ValidationDetail

	switch e := err.(type) {
	case openapi3.MultiError:
		// Recursively process each sub-error
		for _, subErr := range e {
			subDetails := convertValidationError(subErr, prefix)
			details = append(details, subDetails...)
		}
	case *openapi3.SchemaError:
		// Extract field path from SchemaError
		field := prefix

		// Use JSONPointer which contains the actual data path
		// JSONPointer returns the path like ["platform", "gcp", "diskSize"]
		if len(e.JSONPointer()) > 0 {
			jsonPath := strings.Join(e.JSONPointer(), ".")
			if jsonPath != "" {
				field = prefix + "." + jsonPath
			}
		}

		// Use the error message (Reason) which already contains field information
		// Examples:
		//   - "property 'region' is missing"
		//   - "number must be at least 10"
		details = append(details, errors.ValidationDetail{
			Field: field,
			Error: e.Reason,
		})
	default:
		details = append(details, errors.ValidationDetail{
			Field: prefix,
			Error: err.Error(),
		})
	}

	return details
}

// NormalizeSchemaDocument re-encodes a schema document with sorted keys so
// equivalent registrations compare equal.
func NormalizeSchemaDocument(schemaDoc []byte) ([]byte, error) {
	var doc interface{}
	if err := json.Unmarshal(schemaDoc, &doc); err != nil {
		return nil, fmt.Errorf("schema is not valid JSON: %w", err)
	}
	return json.Marshal(doc)
}
