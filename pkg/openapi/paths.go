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
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

const basePath = "/api/v1"

func idParamRef() *openapi3.ParameterRef {
	return &openapi3.ParameterRef{Ref: "#/components/parameters/id"}
}

func pathParam(name string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:     name,
			In:       "path",
			Required: true,
			Schema: &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
			},
		},
	}
}

func jsonBody(schemaRef string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: true,
			Content:  openapi3.NewContentWithJSONSchemaRef(&openapi3.SchemaRef{Ref: schemaRef}),
		},
	}
}

func jsonResponse(status int, description, schemaRef string) (string, *openapi3.ResponseRef) {
	return fmt.Sprintf("%d", status), &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &description,
			Content:     openapi3.NewContentWithJSONSchemaRef(&openapi3.SchemaRef{Ref: schemaRef}),
		},
	}
}

func emptyResponse(status int, description string) (string, *openapi3.ResponseRef) {
	return fmt.Sprintf("%d", status), &openapi3.ResponseRef{
		Value: &openapi3.Response{Description: &description},
	}
}

func errorResponse(status int, description string) (string, *openapi3.ResponseRef) {
	return jsonResponse(status, description, "#/components/schemas/Error")
}

func responses(pairs ...func(*openapi3.Responses)) *openapi3.Responses {
	r := openapi3.NewResponses()
	for _, add := range pairs {
		add(r)
	}
	return r
}

func set(code string, ref *openapi3.ResponseRef) func(*openapi3.Responses) {
	return func(r *openapi3.Responses) { r.Set(code, ref) }
}

func ok(schemaRef string) func(*openapi3.Responses) {
	code, ref := jsonResponse(http.StatusOK, "Success", schemaRef)
	return set(code, ref)
}

func created(schemaRef string) func(*openapi3.Responses) {
	code, ref := jsonResponse(http.StatusCreated, "Created", schemaRef)
	return set(code, ref)
}

func accepted(schemaRef string) func(*openapi3.Responses) {
	code, ref := jsonResponse(http.StatusAccepted, "Accepted", schemaRef)
	return set(code, ref)
}

func noContent() func(*openapi3.Responses) {
	code, ref := emptyResponse(http.StatusNoContent, "Deleted")
	return set(code, ref)
}

func badRequest() func(*openapi3.Responses) {
	code, ref := errorResponse(http.StatusBadRequest, "Invalid request")
	return set(code, ref)
}

func notFound() func(*openapi3.Responses) {
	code, ref := errorResponse(http.StatusNotFound, "Not found")
	return set(code, ref)
}

func conflict() func(*openapi3.Responses) {
	code, ref := errorResponse(http.StatusConflict, "Conflict")
	return set(code, ref)
}

func forbidden() func(*openapi3.Responses) {
	code, ref := errorResponse(http.StatusForbidden, "Denied by admission webhook")
	return set(code, ref)
}

// addPaths registers every REST path of the API.
func addPaths(doc *openapi3.T) {
	doc.Paths.Set(basePath+"/resource-types", &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "listResourceTypes",
			Summary:     "List registered resource types",
			Responses:   responses(ok("#/components/schemas/ResourceTypeList")),
		},
		Post: &openapi3.Operation{
			OperationID: "registerResourceType",
			Summary:     "Register a resource type",
			RequestBody: jsonBody("#/components/schemas/ResourceTypeCreateRequest"),
			Responses: responses(
				created("#/components/schemas/ResourceType"),
				badRequest(), conflict(),
			),
		},
	})

	doc.Paths.Set(basePath+"/resource-types/{id}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParamRef()},
		Get: &openapi3.Operation{
			OperationID: "getResourceType",
			Summary:     "Get a resource type",
			Responses:   responses(ok("#/components/schemas/ResourceType"), notFound()),
		},
		Put: &openapi3.Operation{
			OperationID: "updateResourceType",
			Summary:     "Update a resource type's schema, description, or metadata",
			RequestBody: jsonBody("#/components/schemas/ResourceTypeCreateRequest"),
			Responses: responses(
				ok("#/components/schemas/ResourceType"),
				badRequest(), notFound(),
			),
		},
		Delete: &openapi3.Operation{
			OperationID: "deleteResourceType",
			Summary:     "Delete a resource type with no remaining resources",
			Responses:   responses(noContent(), notFound(), conflict()),
		},
	})

	doc.Paths.Set(basePath+"/resource-types/{name}/{version}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{pathParam("name"), pathParam("version")},
		Get: &openapi3.Operation{
			OperationID: "getResourceTypeByKey",
			Summary:     "Get a resource type by name and version",
			Responses:   responses(ok("#/components/schemas/ResourceType"), notFound()),
		},
	})

	doc.Paths.Set(basePath+"/resources", &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "listResources",
			Summary:     "List resources with search, order-by, and paging",
			Parameters: openapi3.Parameters{
				{Ref: "#/components/parameters/search"},
				{Ref: "#/components/parameters/page"},
				{Ref: "#/components/parameters/size"},
				{Ref: "#/components/parameters/orderBy"},
			},
			Responses: responses(ok("#/components/schemas/ResourceList"), badRequest()),
		},
		Post: &openapi3.Operation{
			OperationID: "createResource",
			Summary:     "Create a resource",
			RequestBody: jsonBody("#/components/schemas/ResourceCreateRequest"),
			Responses: responses(
				created("#/components/schemas/Resource"),
				badRequest(), forbidden(), notFound(), conflict(),
			),
		},
	})

	doc.Paths.Set(basePath+"/resources/{id}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParamRef()},
		Get: &openapi3.Operation{
			OperationID: "getResource",
			Summary:     "Get a resource",
			Responses:   responses(ok("#/components/schemas/Resource"), notFound()),
		},
		Put: &openapi3.Operation{
			OperationID: "replaceResourceSpec",
			Summary:     "Replace the desired spec; identical specs are a no-op",
			RequestBody: jsonBody("#/components/schemas/ResourceUpdateRequest"),
			Responses: responses(
				ok("#/components/schemas/Resource"),
				badRequest(), forbidden(), notFound(),
			),
		},
		Delete: &openapi3.Operation{
			OperationID: "deleteResource",
			Summary:     "Begin deleting a resource; finalizers gate physical removal",
			Responses: responses(
				accepted("#/components/schemas/Resource"),
				forbidden(), notFound(),
			),
		},
	})

	doc.Paths.Set(basePath+"/resources/by-name/{type}/{version}/{name}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{
			pathParam("type"), pathParam("version"), pathParam("name"),
		},
		Get: &openapi3.Operation{
			OperationID: "getResourceByName",
			Summary:     "Get a resource by type identity and name",
			Responses:   responses(ok("#/components/schemas/Resource"), notFound()),
		},
	})

	doc.Paths.Set(basePath+"/resources/{id}/outputs", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParamRef()},
		Get: &openapi3.Operation{
			OperationID: "getResourceOutputs",
			Summary:     "Get the provider-assigned outputs of a resource",
			Responses:   responses(ok("#/components/schemas/ObjectDocument"), notFound()),
		},
	})

	doc.Paths.Set(basePath+"/resources/{id}/spec", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParamRef()},
		Put: &openapi3.Operation{
			OperationID: "updateResourceSpec",
			Summary:     "Replace the desired spec; identical specs are a no-op",
			RequestBody: jsonBody("#/components/schemas/ResourceUpdateRequest"),
			Responses: responses(
				ok("#/components/schemas/Resource"),
				badRequest(), forbidden(), notFound(),
			),
		},
	})

	doc.Paths.Set(basePath+"/resources/{id}/reconcile", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParamRef()},
		Post: &openapi3.Operation{
			OperationID: "reconcileResource",
			Summary:     "Request an immediate reconcile attempt",
			Responses: responses(
				accepted("#/components/schemas/Resource"),
				notFound(),
			),
		},
	})

	doc.Paths.Set(basePath+"/resources/{id}/finalizers", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParamRef()},
		Put: &openapi3.Operation{
			OperationID: "patchResourceFinalizers",
			Summary:     "Add and remove finalizers atomically",
			RequestBody: jsonBody("#/components/schemas/FinalizerPatchRequest"),
			Responses: responses(
				ok("#/components/schemas/Resource"),
				badRequest(), notFound(),
			),
		},
	})

	doc.Paths.Set(basePath+"/resources/{id}/history", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParamRef()},
		Get: &openapi3.Operation{
			OperationID: "listResourceHistory",
			Summary:     "List reconcile attempts for a resource, newest first",
			Parameters: openapi3.Parameters{
				{
					Value: &openapi3.Parameter{
						Name:     "limit",
						In:       "query",
						Required: false,
						Schema: &openapi3.SchemaRef{
							Value: &openapi3.Schema{
								Type:    &openapi3.Types{"integer"},
								Format:  "int32",
								Default: 50,
							},
						},
					},
				},
				{
					Value: &openapi3.Parameter{
						Name:     "offset",
						In:       "query",
						Required: false,
						Schema: &openapi3.SchemaRef{
							Value: &openapi3.Schema{
								Type:    &openapi3.Types{"integer"},
								Format:  "int32",
								Default: 0,
							},
						},
					},
				},
			},
			Responses: responses(ok("#/components/schemas/ReconciliationHistoryList"), notFound()),
		},
	})

	doc.Paths.Set(basePath+"/admission-webhooks", &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "listAdmissionWebhooks",
			Summary:     "List admission webhooks",
			Responses:   responses(ok("#/components/schemas/AdmissionWebhookList")),
		},
		Post: &openapi3.Operation{
			OperationID: "registerAdmissionWebhook",
			Summary:     "Register an admission webhook",
			RequestBody: jsonBody("#/components/schemas/AdmissionWebhookRequest"),
			Responses: responses(
				created("#/components/schemas/AdmissionWebhook"),
				badRequest(), conflict(),
			),
		},
	})

	doc.Paths.Set(basePath+"/admission-webhooks/{id}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParamRef()},
		Get: &openapi3.Operation{
			OperationID: "getAdmissionWebhook",
			Summary:     "Get an admission webhook",
			Responses:   responses(ok("#/components/schemas/AdmissionWebhook"), notFound()),
		},
		Put: &openapi3.Operation{
			OperationID: "updateAdmissionWebhook",
			Summary:     "Update an admission webhook",
			RequestBody: jsonBody("#/components/schemas/AdmissionWebhookRequest"),
			Responses: responses(
				ok("#/components/schemas/AdmissionWebhook"),
				badRequest(), notFound(),
			),
		},
		Delete: &openapi3.Operation{
			OperationID: "deleteAdmissionWebhook",
			Summary:     "Delete an admission webhook",
			Responses:   responses(noContent(), notFound()),
		},
	})

	streamDescription := "Server-sent event stream of resource lifecycle events"
	doc.Paths.Set(basePath+"/events", &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "streamEvents",
			Summary:     "Stream resource events over SSE",
			Parameters: openapi3.Parameters{
				{
					Value: &openapi3.Parameter{
						Name:   "resource_type_name",
						In:     "query",
						Schema: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
					},
				},
				{
					Value: &openapi3.Parameter{
						Name:   "resource_id",
						In:     "query",
						Schema: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
					},
				},
				{
					Value: &openapi3.Parameter{
						Name:        "event_types",
						In:          "query",
						Description: "Comma-separated event types to receive",
						Schema:      &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
					},
				},
			},
			Responses: responses(
				set("200", &openapi3.ResponseRef{
					Value: &openapi3.Response{
						Description: &streamDescription,
						Content: openapi3.Content{
							"text/event-stream": &openapi3.MediaType{
								Schema: &openapi3.SchemaRef{Ref: "#/components/schemas/Event"},
							},
						},
					},
				}),
				badRequest(),
			),
		},
	})

	doc.Paths.Set(basePath+"/resources/{id}/events", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParamRef()},
		Get: &openapi3.Operation{
			OperationID: "streamResourceEvents",
			Summary:     "Stream lifecycle events for one resource as server-sent events",
			Responses: responses(
				set("200", &openapi3.ResponseRef{
					Value: &openapi3.Response{
						Description: &streamDescription,
						Content: openapi3.Content{
							"text/event-stream": &openapi3.MediaType{
								Schema: &openapi3.SchemaRef{Ref: "#/components/schemas/Event"},
							},
						},
					},
				}),
				badRequest(), notFound(),
			),
		},
	})
}
