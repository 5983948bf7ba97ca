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

// Package openapi generates the OpenAPI specification for the REST surface.
// The document is mostly static; the spec schemas of registered resource
// types are merged in so clients can discover what each type accepts.

package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/infractl/infractl/pkg/api"
)

// GenerateSpec builds an OpenAPI 3.0 document. The registered resource types
// contribute named spec schemas under components.
func GenerateSpec(types api.ResourceTypeList) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:   "InfraCtl API",
			Version: "1.0.0",
			License: &openapi3.License{
				Name: "Apache 2.0",
				URL:  "https://www.apache.org/licenses/LICENSE-2.0",
			},
			Description: "InfraCtl manages arbitrary external infrastructure through registered " +
				"resource types, declarative resource specs, and pluggable reconcilers. " +
				"Desired state is stored durably; a scheduler drives reconcilers to converge " +
				"real infrastructure and writes observed state back.",
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas:    make(openapi3.Schemas),
			Parameters: make(openapi3.ParametersMap),
		},
	}

	addCommonSchemas(doc)
	addCommonParameters(doc)
	addDomainSchemas(doc)
	addPaths(doc)

	// Registered type schemas, keyed "<name>.<version>.spec".
	for _, rt := range types {
		addResourceTypeSpecSchema(doc, rt)
	}

	return doc
}
