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
	"testing"

	. "github.com/onsi/gomega"
	"gorm.io/datatypes"

	"github.com/infractl/infractl/pkg/api"
)

func TestGenerateSpec_NoRegisteredTypes(t *testing.T) {
	RegisterTestingT(t)

	spec := GenerateSpec(nil)

	Expect(spec).ToNot(BeNil())
	Expect(spec.OpenAPI).To(Equal("3.0.0"))
	Expect(spec.Info.Title).To(Equal("InfraCtl API"))
	Expect(spec.Components.Schemas).ToNot(BeNil())
	Expect(spec.Components.Parameters).ToNot(BeNil())

	// Common schemas are present regardless of registered types
	Expect(spec.Components.Schemas["Error"]).ToNot(BeNil())
	Expect(spec.Components.Schemas["ValidationError"]).ToNot(BeNil())
	Expect(spec.Components.Schemas["ResourceCondition"]).ToNot(BeNil())
	Expect(spec.Components.Schemas["Resource"]).ToNot(BeNil())
	Expect(spec.Components.Schemas["ResourceType"]).ToNot(BeNil())
	Expect(spec.Components.Schemas["AdmissionWebhook"]).ToNot(BeNil())
	Expect(spec.Components.Schemas["ReconciliationHistoryEntry"]).ToNot(BeNil())
	Expect(spec.Components.Schemas["Event"]).ToNot(BeNil())

	// Common parameters
	Expect(spec.Components.Parameters["page"]).ToNot(BeNil())
	Expect(spec.Components.Parameters["size"]).ToNot(BeNil())
	Expect(spec.Components.Parameters["search"]).ToNot(BeNil())
}

func TestGenerateSpec_Paths(t *testing.T) {
	RegisterTestingT(t)

	spec := GenerateSpec(nil)

	Expect(spec.Paths.Find("/api/v1/resource-types")).ToNot(BeNil())
	Expect(spec.Paths.Find("/api/v1/resource-types/{id}")).ToNot(BeNil())
	Expect(spec.Paths.Find("/api/v1/resources")).ToNot(BeNil())
	Expect(spec.Paths.Find("/api/v1/resources/{id}")).ToNot(BeNil())
	Expect(spec.Paths.Find("/api/v1/resources/{id}/spec")).ToNot(BeNil())
	Expect(spec.Paths.Find("/api/v1/resources/{id}/reconcile")).ToNot(BeNil())
	Expect(spec.Paths.Find("/api/v1/resources/{id}/finalizers")).ToNot(BeNil())
	Expect(spec.Paths.Find("/api/v1/resources/{id}/history")).ToNot(BeNil())
	Expect(spec.Paths.Find("/api/v1/admission-webhooks")).ToNot(BeNil())
	Expect(spec.Paths.Find("/api/v1/admission-webhooks/{id}")).ToNot(BeNil())
	Expect(spec.Paths.Find("/api/v1/events")).ToNot(BeNil())

	reconcile := spec.Paths.Find("/api/v1/resources/{id}/reconcile")
	Expect(reconcile.Post).ToNot(BeNil())
	Expect(reconcile.Post.Responses.Status(202)).ToNot(BeNil())
}

func TestGenerateSpec_WithRegisteredTypes(t *testing.T) {
	RegisterTestingT(t)

	types := api.ResourceTypeList{
		{
			Name:    "gcs-bucket",
			Version: "v1",
			Schema: datatypes.JSON([]byte(`{
				"type": "object",
				"required": ["region"],
				"properties": {"region": {"type": "string"}}
			}`)),
		},
	}

	spec := GenerateSpec(types)

	bucketSpec := spec.Components.Schemas["gcs-bucket.v1.spec"]
	Expect(bucketSpec).ToNot(BeNil())
	Expect(bucketSpec.Value.Required).To(ContainElement("region"))
}

func TestGenerateSpec_SkipsUndecodableTypeSchema(t *testing.T) {
	RegisterTestingT(t)

	types := api.ResourceTypeList{
		{
			Name:    "broken",
			Version: "v1",
			Schema:  datatypes.JSON([]byte(`{`)),
		},
	}

	spec := GenerateSpec(types)
	Expect(spec.Components.Schemas["broken.v1.spec"]).To(BeNil())
}

func TestGenerateSpec_JSON(t *testing.T) {
	RegisterTestingT(t)

	spec := GenerateSpec(nil)

	data, err := spec.MarshalJSON()
	Expect(err).To(BeNil())
	Expect(data).ToNot(BeEmpty())
	Expect(string(data)).To(ContainSubstring(`"openapi":"3.0.0"`))
	Expect(string(data)).To(ContainSubstring(`"InfraCtl API"`))
}
