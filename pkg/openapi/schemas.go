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
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/infractl/infractl/pkg/api"
)

func stringProp(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: description},
	}
}

func int64Prop(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64", Description: description},
	}
}

func int32Prop(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32", Description: description},
	}
}

func timeProp(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time", Description: description},
	}
}

func objectProp(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:                 &openapi3.Types{"object"},
			AdditionalProperties: openapi3.AdditionalProperties{Has: boolPtr(true)},
			Description:          description,
		},
	}
}

func stringArrayProp(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"array"},
			Items:       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			Description: description,
		},
	}
}

func refArrayProp(ref, description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"array"},
			Items:       &openapi3.SchemaRef{Ref: ref},
			Description: description,
		},
	}
}

// listSchema builds the standard paginated envelope around an item schema ref.
func listSchema(itemRef, description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"kind", "page", "size", "total", "items"},
			Properties: openapi3.Schemas{
				"kind":  stringProp("List kind discriminator"),
				"page":  int32Prop("Requested page"),
				"size":  int32Prop("Number of items in this page"),
				"total": int64Prop("Total matching items"),
				"items": refArrayProp(itemRef, ""),
			},
			Description: description,
		},
	}
}

// addDomainSchemas adds the schemas for every entity and request body.
func addDomainSchemas(doc *openapi3.T) {
	doc.Components.Schemas["ObjectDocument"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"object"},
			Description: "Free-form JSON document",
			AdditionalProperties: openapi3.AdditionalProperties{
				Has: boolPtr(true),
			},
		},
	}

	doc.Components.Schemas["ResourceType"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"id", "name", "version", "schema", "status"},
			Properties: openapi3.Schemas{
				"id":          int64Prop("Resource type identifier"),
				"name":        stringProp("Type name, unique together with version"),
				"version":     stringProp("Type version, e.g. v1"),
				"schema":      objectProp("JSON Schema that specs of this type must satisfy"),
				"description": stringProp("Free-form description"),
				"status":      stringProp("Lifecycle status of the type"),
				"metadata":    objectProp("Arbitrary key/value annotations"),
				"created_at":  timeProp(""),
				"updated_at":  timeProp(""),
			},
			Description: "A registered kind of external infrastructure",
		},
	}

	doc.Components.Schemas["ResourceTypeCreateRequest"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"name", "version", "schema"},
			Properties: openapi3.Schemas{
				"name":        stringProp("Type name"),
				"version":     stringProp("Type version"),
				"schema":      objectProp("JSON Schema for specs of this type"),
				"description": stringProp("Free-form description"),
				"metadata":    objectProp("Arbitrary key/value annotations"),
			},
		},
	}

	doc.Components.Schemas["Resource"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Required: []string{
				"id", "name", "resource_type_name", "resource_type_version",
				"spec", "status", "generation", "observed_generation",
			},
			Properties: openapi3.Schemas{
				"id":                    int64Prop("Resource identifier"),
				"name":                  stringProp("Resource name, unique per type"),
				"resource_type_name":    stringProp("Name of the resource type"),
				"resource_type_version": stringProp("Version of the resource type"),
				"spec":                  objectProp("Desired state, validated against the type schema"),
				"outputs":               objectProp("Values produced by the last successful reconcile"),
				"finalizers":            stringArrayProp("Cleanup guards that block physical deletion"),
				"status": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Enum:        []interface{}{"pending", "reconciling", "ready", "failed", "deleting"},
						Description: "Coarse lifecycle phase",
					},
				},
				"status_message":      stringProp("Last error or informational message"),
				"generation":          int32Prop("Incremented on every spec change"),
				"observed_generation": int32Prop("Generation last acted on by a reconciler"),
				"spec_hash":           stringProp("Canonical hash of the spec document"),
				"retry_count":         int32Prop("Consecutive failed reconcile attempts"),
				"last_reconcile_time": timeProp("When the last reconcile attempt finished"),
				"next_reconcile_time": timeProp("When the scheduler will pick this resource up again"),
				"conditions":          refArrayProp("#/components/schemas/ResourceCondition", "Detailed observed conditions"),
				"created_at":          timeProp(""),
				"updated_at":          timeProp(""),
				"deleted_at":          timeProp("Set while deletion is awaiting finalizers"),
			},
			Description: "A managed piece of external infrastructure",
		},
	}

	doc.Components.Schemas["ResourceCreateRequest"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"name", "resource_type_name", "resource_type_version", "spec"},
			Properties: openapi3.Schemas{
				"name":                  stringProp("Resource name"),
				"resource_type_name":    stringProp("Name of an existing resource type"),
				"resource_type_version": stringProp("Version of the resource type"),
				"spec":                  objectProp("Desired state"),
			},
		},
	}

	doc.Components.Schemas["ResourceUpdateRequest"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"spec"},
			Properties: openapi3.Schemas{
				"spec": objectProp("Replacement desired state"),
			},
		},
	}

	doc.Components.Schemas["FinalizerPatchRequest"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"add":    stringArrayProp("Finalizers to add"),
				"remove": stringArrayProp("Finalizers to remove"),
			},
			Description: "Atomic finalizer edit with set semantics",
		},
	}

	doc.Components.Schemas["AdmissionWebhook"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"id", "name", "webhook_url", "webhook_type", "operations"},
			Properties: openapi3.Schemas{
				"id":                    int64Prop("Webhook identifier"),
				"name":                  stringProp("Webhook name, unique"),
				"resource_type_name":    stringProp("Restrict to one resource type, all types when absent"),
				"resource_type_version": stringProp("Restrict to one type version"),
				"webhook_url":           stringProp("HTTP(S) endpoint that receives admission reviews"),
				"webhook_type": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"string"},
						Enum: []interface{}{"mutating", "validating"},
					},
				},
				"operations":      stringArrayProp("Operations the webhook intercepts: CREATE, UPDATE, DELETE"),
				"timeout_seconds": int32Prop("Per-call timeout, 1 to 30 seconds"),
				"failure_policy": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Enum:        []interface{}{"Fail", "Ignore"},
						Description: "Whether an unreachable webhook blocks the request",
					},
				},
				"ordering":   int32Prop("Position within the chain, lowest first"),
				"created_at": timeProp(""),
				"updated_at": timeProp(""),
			},
			Description: "An admission webhook invoked before writes are persisted",
		},
	}

	doc.Components.Schemas["AdmissionWebhookRequest"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"name", "webhook_url", "webhook_type"},
			Properties: openapi3.Schemas{
				"name":                  stringProp("Webhook name"),
				"resource_type_name":    stringProp("Restrict to one resource type"),
				"resource_type_version": stringProp("Restrict to one type version"),
				"webhook_url":           stringProp("HTTP(S) endpoint"),
				"webhook_type":          stringProp("mutating or validating"),
				"operations":            stringArrayProp("Defaults to CREATE, UPDATE, DELETE"),
				"timeout_seconds":       int32Prop("Defaults to 10"),
				"failure_policy":        stringProp("Fail or Ignore, defaults to Fail"),
				"ordering":              int32Prop("Defaults to 0"),
			},
		},
	}

	doc.Components.Schemas["ReconciliationHistoryEntry"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"id", "resource_id", "generation", "success", "phase", "trigger_reason", "reconcile_time"},
			Properties: openapi3.Schemas{
				"id":                int64Prop("History entry identifier"),
				"resource_id":       int64Prop("Resource this attempt belongs to"),
				"generation":        int32Prop("Spec generation that was reconciled"),
				"success":           &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"phase":             stringProp("Attempt phase, e.g. apply or deleting"),
				"plan_output":       stringProp("Reconciler plan output"),
				"apply_output":      stringProp("Reconciler apply output"),
				"error_message":     stringProp("Failure detail when success is false"),
				"resources_created": int32Prop(""),
				"resources_updated": int32Prop(""),
				"resources_deleted": int32Prop(""),
				"duration_seconds":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "double"}},
				"trigger_reason":    stringProp("What caused the attempt: spec_change, drift, manual, retry, delete"),
				"drift_detected":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"reconcile_time":    timeProp("When the attempt finished"),
			},
			Description: "One reconcile attempt from the append-only audit trail",
		},
	}

	doc.Components.Schemas["Event"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"event_type", "resource_id", "timestamp"},
			Properties: openapi3.Schemas{
				"event_type": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"string"},
						Enum: []interface{}{"CREATED", "MODIFIED", "DELETED", "RECONCILED"},
					},
				},
				"resource_id":           int64Prop("Resource the event concerns"),
				"resource_name":         stringProp(""),
				"resource_type_name":    stringProp(""),
				"resource_type_version": stringProp(""),
				"resource_data":         objectProp("Snapshot of the resource at event time"),
				"timestamp":             timeProp(""),
			},
			Description: "A resource lifecycle event streamed over SSE",
		},
	}

	doc.Components.Schemas["ResourceTypeList"] = listSchema("#/components/schemas/ResourceType", "Paginated resource types")
	doc.Components.Schemas["ResourceList"] = listSchema("#/components/schemas/Resource", "Paginated resources")
	doc.Components.Schemas["AdmissionWebhookList"] = listSchema("#/components/schemas/AdmissionWebhook", "Paginated admission webhooks")
	doc.Components.Schemas["ReconciliationHistoryList"] = listSchema("#/components/schemas/ReconciliationHistoryEntry", "Reconcile attempts, newest first")
}

// addResourceTypeSpecSchema registers the stored JSON Schema of one resource
// type under components so clients can discover it. Types whose stored schema
// no longer decodes are skipped.
func addResourceTypeSpecSchema(doc *openapi3.T, rt *api.ResourceType) {
	var schema openapi3.Schema
	if err := json.Unmarshal(rt.Schema, &schema); err != nil {
		return
	}
	name := fmt.Sprintf("%s.%s.spec", rt.Name, rt.Version)
	doc.Components.Schemas[name] = &openapi3.SchemaRef{Value: &schema}
}
