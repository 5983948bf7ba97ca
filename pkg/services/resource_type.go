package services

import (
	"context"
	"encoding/json"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/errors"
	"github.com/infractl/infractl/pkg/logger"
	"github.com/infractl/infractl/pkg/validators"
)

// ResourceTypeService manages the schema declarations resources are validated
// against. The (name, version) pair is immutable after registration.
type ResourceTypeService interface {
	Register(ctx context.Context, request *api.ResourceTypeCreateRequest) (*api.ResourceType, *errors.ServiceError)
	Get(ctx context.Context, id int64) (*api.ResourceType, *errors.ServiceError)
	GetByNameVersion(ctx context.Context, name, version string) (*api.ResourceType, *errors.ServiceError)
	All(ctx context.Context) (api.ResourceTypeList, *errors.ServiceError)
	Update(ctx context.Context, id int64, request *api.ResourceTypeCreateRequest) (*api.ResourceType, *errors.ServiceError)
	Delete(ctx context.Context, id int64) *errors.ServiceError
}

func NewResourceTypeService(
	resourceTypeDao dao.ResourceTypeDao,
	resourceDao dao.ResourceDao,
	validator *validators.SpecValidator,
) ResourceTypeService {
	return &sqlResourceTypeService{
		resourceTypeDao: resourceTypeDao,
		resourceDao:     resourceDao,
		validator:       validator,
	}
}

var _ ResourceTypeService = &sqlResourceTypeService{}

type sqlResourceTypeService struct {
	resourceTypeDao dao.ResourceTypeDao
	resourceDao     dao.ResourceDao
	validator       *validators.SpecValidator
}

// compileSchema checks the schema document is a valid OpenAPI schema and
// returns its normalized encoding.
func (s *sqlResourceTypeService) compileSchema(schema map[string]interface{}) ([]byte, *errors.ServiceError) {
	if len(schema) == 0 {
		return nil, errors.Validation("schema is required")
	}

	encoded, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.Validation("schema is not valid JSON: %s", err)
	}
	if _, err := s.validator.Compile(encoded); err != nil {
		return nil, errors.Validation("schema is not a valid OpenAPI schema: %s", err)
	}

	normalized, err := validators.NormalizeSchemaDocument(encoded)
	if err != nil {
		return nil, errors.Validation("schema cannot be normalized: %s", err)
	}
	return normalized, nil
}

func (s *sqlResourceTypeService) Register(ctx context.Context, request *api.ResourceTypeCreateRequest) (*api.ResourceType, *errors.ServiceError) {
	if serviceErr := validateName("name", request.Name); serviceErr != nil {
		return nil, serviceErr
	}
	if serviceErr := validateVersion(request.Version); serviceErr != nil {
		return nil, serviceErr
	}

	schema, serviceErr := s.compileSchema(request.Schema)
	if serviceErr != nil {
		return nil, serviceErr
	}

	resourceType := &api.ResourceType{
		Name:        request.Name,
		Version:     request.Version,
		Schema:      schema,
		Description: request.Description,
		Status:      api.ResourceTypeActive,
	}
	if request.Metadata != nil {
		metadata, err := json.Marshal(request.Metadata)
		if err != nil {
			return nil, errors.Validation("metadata is not valid JSON: %s", err)
		}
		resourceType.Metadata = metadata
	}

	created, err := s.resourceTypeDao.Create(ctx, resourceType)
	if err != nil {
		return nil, handleCreateError("ResourceType", err)
	}

	ctx = logger.WithResourceType(ctx, created.Name)
	logger.Info(ctx, "Registered resource type", "version", created.Version)
	return created, nil
}

func (s *sqlResourceTypeService) Get(ctx context.Context, id int64) (*api.ResourceType, *errors.ServiceError) {
	resourceType, err := s.resourceTypeDao.Get(ctx, id)
	if err != nil {
		return nil, handleGetError("ResourceType", "id", id, err)
	}
	return resourceType, nil
}

func (s *sqlResourceTypeService) GetByNameVersion(ctx context.Context, name, version string) (*api.ResourceType, *errors.ServiceError) {
	resourceType, err := s.resourceTypeDao.GetByNameVersion(ctx, name, version)
	if err != nil {
		return nil, handleGetError("ResourceType", "name", name+"/"+version, err)
	}
	return resourceType, nil
}

func (s *sqlResourceTypeService) All(ctx context.Context) (api.ResourceTypeList, *errors.ServiceError) {
	resourceTypes, err := s.resourceTypeDao.All(ctx)
	if err != nil {
		return nil, errors.GeneralError("Unable to list resource types: %s", err)
	}
	return resourceTypes, nil
}

// Update replaces the mutable fields of a resource type. Name and version are
// immutable; a new schema generation is a new version, not an update, so a
// changed schema here only relaxes descriptions and defaults at the caller's
// risk.
func (s *sqlResourceTypeService) Update(ctx context.Context, id int64, request *api.ResourceTypeCreateRequest) (*api.ResourceType, *errors.ServiceError) {
	resourceType, err := s.resourceTypeDao.Get(ctx, id)
	if err != nil {
		return nil, handleGetError("ResourceType", "id", id, err)
	}

	if request.Name != "" && request.Name != resourceType.Name {
		return nil, errors.Validation("resource type name is immutable")
	}
	if request.Version != "" && request.Version != resourceType.Version {
		return nil, errors.Validation("resource type version is immutable")
	}

	if request.Schema != nil {
		schema, serviceErr := s.compileSchema(request.Schema)
		if serviceErr != nil {
			return nil, serviceErr
		}
		resourceType.Schema = schema
	}
	if request.Description != "" {
		resourceType.Description = request.Description
	}
	if request.Metadata != nil {
		metadata, err := json.Marshal(request.Metadata)
		if err != nil {
			return nil, errors.Validation("metadata is not valid JSON: %s", err)
		}
		resourceType.Metadata = metadata
	}

	updated, err := s.resourceTypeDao.Replace(ctx, resourceType)
	if err != nil {
		return nil, handleUpdateError("ResourceType", err)
	}
	return updated, nil
}

func (s *sqlResourceTypeService) Delete(ctx context.Context, id int64) *errors.ServiceError {
	resourceType, err := s.resourceTypeDao.Get(ctx, id)
	if err != nil {
		return handleGetError("ResourceType", "id", id, err)
	}

	count, err := s.resourceDao.CountByType(ctx, resourceType.Name, resourceType.Version)
	if err != nil {
		return errors.GeneralError("Unable to count resources of type %s/%s: %s", resourceType.Name, resourceType.Version, err)
	}
	if count > 0 {
		return errors.Conflict("Resource type %s/%s still has %d resources", resourceType.Name, resourceType.Version, count)
	}

	if err := s.resourceTypeDao.Delete(ctx, id); err != nil {
		return handleDeleteError("ResourceType", err)
	}

	ctx = logger.WithResourceType(ctx, resourceType.Name)
	logger.Info(ctx, "Deleted resource type", "version", resourceType.Version)
	return nil
}
