/*
Copyright (c) 2018 Red Hat, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// addCommonSchemas adds reusable schemas shared by all endpoints.
func addCommonSchemas(doc *openapi3.T) {
	// Error body
	doc.Components.Schemas["Error"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"detail"},
			Properties: openapi3.Schemas{
				"detail": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Description: "Human-readable explanation of the error",
						Example:     "infractl-21: spec is not a valid field name",
					},
				},
				"errors": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{
							Ref: "#/components/schemas/ValidationError",
						},
						Description: "Field-level validation errors, present for validation failures",
					},
				},
			},
			Description: "Error response body",
		},
	}

	// ValidationError schema
	doc.Components.Schemas["ValidationError"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"field", "error"},
			Properties: openapi3.Schemas{
				"field": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Description: "JSON path to the field that failed validation",
						Example:     "spec.region",
					},
				},
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Description: "Human-readable error message for this field",
						Example:     "property \"region\" is missing",
					},
				},
			},
			Description: "Field-level validation error detail",
		},
	}

	// Condition schema
	doc.Components.Schemas["ResourceCondition"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"type", "status", "lastTransitionTime", "observedGeneration"},
			Properties: openapi3.Schemas{
				"type": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Description: "Condition type, PascalCase",
						Example:     "Ready",
					},
				},
				"status": &openapi3.SchemaRef{
					Ref: "#/components/schemas/ConditionStatus",
				},
				"reason": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Description: "Machine-readable reason code",
					},
				},
				"message": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Description: "Human-readable message",
					},
				},
				"lastTransitionTime": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Format:      "date-time",
						Description: "When the condition last changed status",
					},
				},
				"observedGeneration": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"integer"},
						Format:      "int32",
						Description: "Generation of the spec this condition reflects",
					},
				},
			},
			Description: "Observed condition of a resource",
		},
	}

	// ConditionStatus enum
	doc.Components.Schemas["ConditionStatus"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"string"},
			Enum: []interface{}{"True", "False", "Unknown"},
		},
	}
}

// addCommonParameters adds reusable query parameters for pagination and search.
func addCommonParameters(doc *openapi3.T) {
	doc.Components.Parameters["id"] = &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:     "id",
			In:       "path",
			Required: true,
			Schema: &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type:   &openapi3.Types{"integer"},
					Format: "int64",
				},
			},
		},
	}

	doc.Components.Parameters["page"] = &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:     "page",
			In:       "query",
			Required: false,
			Schema: &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type:    &openapi3.Types{"integer"},
					Format:  "int32",
					Default: 1,
				},
			},
		},
	}

	doc.Components.Parameters["size"] = &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:     "size",
			In:       "query",
			Required: false,
			Schema: &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type:    &openapi3.Types{"integer"},
					Format:  "int32",
					Default: 100,
				},
			},
		},
	}

	doc.Components.Parameters["orderBy"] = &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:     "orderBy",
			In:       "query",
			Required: false,
			Schema: &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type:    &openapi3.Types{"string"},
					Default: "id asc",
				},
			},
		},
	}

	doc.Components.Parameters["search"] = &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:     "search",
			In:       "query",
			Required: false,
			Description: "Filter results using TSL (Tree Search Language) query syntax. " +
				"Examples: `status = 'failed'`, `name in ('a','b')`, `conditions.Ready = 'True'`, " +
				"`metadata.team = 'storage'`",
			Schema: &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"string"},
				},
			},
		},
	}
}

// boolPtr returns a pointer to a boolean value.
func boolPtr(b bool) *bool {
	return &b
}
