package handlers

import (
	"net/http"
)

type versionMetadata struct {
	Kind        string               `json:"kind"`
	ID          string               `json:"id"`
	HREF        string               `json:"href"`
	Collections []collectionMetadata `json:"collections"`
}

type collectionMetadata struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
	HREF string `json:"href"`
}

type metadataHandler struct{}

func NewMetadataHandler() *metadataHandler {
	return &metadataHandler{}
}

// Get serves the API index so clients can discover the collections.
func (h metadataHandler) Get(w http.ResponseWriter, r *http.Request) {
	metadata := versionMetadata{
		Kind: "APIVersion",
		ID:   "v1",
		HREF: "/api/v1",
		Collections: []collectionMetadata{
			{Kind: "ResourceTypeList", ID: "resource-types", HREF: "/api/v1/resource-types"},
			{Kind: "ResourceList", ID: "resources", HREF: "/api/v1/resources"},
			{Kind: "AdmissionWebhookList", ID: "admission-webhooks", HREF: "/api/v1/admission-webhooks"},
			{Kind: "EventStream", ID: "events", HREF: "/api/v1/events"},
		},
	}
	writeJSONResponse(w, http.StatusOK, metadata)
}
