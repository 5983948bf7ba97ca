package handlers

import (
	"context"
	"embed"
	"io/fs"
	"net/http"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/errors"
	"github.com/infractl/infractl/pkg/logger"
	"github.com/infractl/infractl/pkg/openapi"
)

//go:embed openapi-ui.html
var openapiui embed.FS

type openAPIHandler struct {
	openAPIDefinitions []byte
	uiContent          []byte
}

// NewOpenAPIHandler generates the OpenAPI document once at startup, merging
// in the spec schemas of the resource types registered at that point.
func NewOpenAPIHandler(ctx context.Context, types api.ResourceTypeList) (*openAPIHandler, error) {
	spec := openapi.GenerateSpec(types)

	data, err := spec.MarshalJSON()
	if err != nil {
		return nil, errors.GeneralError(
			"can't marshal OpenAPI specification to JSON: %v",
			err,
		)
	}
	logger.Info(ctx, "Generated OpenAPI specification", "resource_types", len(types))

	// Load the OpenAPI UI HTML content
	uiContent, err := fs.ReadFile(openapiui, "openapi-ui.html")
	if err != nil {
		return nil, errors.GeneralError(
			"can't load OpenAPI UI HTML from embedded file: %v",
			err,
		)
	}

	return &openAPIHandler{
		openAPIDefinitions: data,
		uiContent:          uiContent,
	}, nil
}

func (h *openAPIHandler) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.openAPIDefinitions); err != nil {
		// Response already committed, can't report error
		logger.Error(r.Context(), "Failed to write OpenAPI specification response",
			"endpoint", r.URL.Path, "error", err.Error())
		return
	}
}

func (h *openAPIHandler) GetOpenAPIUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.uiContent); err != nil {
		// Response already committed, can't report error
		logger.Error(r.Context(), "Failed to write OpenAPI UI response",
			"endpoint", r.URL.Path, "error", err.Error())
		return
	}
}
