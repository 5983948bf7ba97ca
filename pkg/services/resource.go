package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"

	"github.com/infractl/infractl/pkg/admission"
	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/api/presenters"
	"github.com/infractl/infractl/pkg/controller"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/errors"
	"github.com/infractl/infractl/pkg/events"
	"github.com/infractl/infractl/pkg/logger"
	"github.com/infractl/infractl/pkg/validators"
)

// ResourceService is the write gateway for resources. Every mutation passes
// through type resolution, schema validation, and the admission chain before
// it reaches the store.
type ResourceService interface {
	Get(ctx context.Context, id int64) (*api.Resource, *errors.ServiceError)
	GetByName(ctx context.Context, typeName, typeVersion, name string) (*api.Resource, *errors.ServiceError)
	Create(ctx context.Context, request *api.ResourceCreateRequest) (*api.Resource, *errors.ServiceError)
	UpdateSpec(ctx context.Context, id int64, request *api.ResourceUpdateRequest) (*api.Resource, *errors.ServiceError)
	Delete(ctx context.Context, id int64) *errors.ServiceError
	All(ctx context.Context) (api.ResourceList, *errors.ServiceError)
	ListByType(ctx context.Context, typeName, typeVersion string) (api.ResourceList, *errors.ServiceError)

	// Reconcile requests an immediate reconcile attempt out of band.
	Reconcile(ctx context.Context, id int64) (*api.Resource, *errors.ServiceError)

	// PatchFinalizers adds and removes finalizers. Removing the last
	// finalizer from a deleting resource completes its deletion.
	PatchFinalizers(ctx context.Context, id int64, request *api.FinalizerPatchRequest) (*api.Resource, *errors.ServiceError)
}

func NewResourceService(
	resourceDao dao.ResourceDao,
	resourceTypeDao dao.ResourceTypeDao,
	registry *controller.Registry,
	chain *admission.Chain,
	validator *validators.SpecValidator,
	bus *events.Bus,
) ResourceService {
	return &sqlResourceService{
		resourceDao:     resourceDao,
		resourceTypeDao: resourceTypeDao,
		registry:        registry,
		chain:           chain,
		validator:       validator,
		bus:             bus,
	}
}

var _ ResourceService = &sqlResourceService{}

type sqlResourceService struct {
	resourceDao     dao.ResourceDao
	resourceTypeDao dao.ResourceTypeDao
	registry        *controller.Registry
	chain           *admission.Chain
	validator       *validators.SpecValidator
	bus             *events.Bus
}

func (s *sqlResourceService) Get(ctx context.Context, id int64) (*api.Resource, *errors.ServiceError) {
	resource, err := s.resourceDao.Get(ctx, id)
	if err != nil {
		return nil, handleGetError("Resource", "id", id, err)
	}
	return resource, nil
}

func (s *sqlResourceService) GetByName(ctx context.Context, typeName, typeVersion, name string) (*api.Resource, *errors.ServiceError) {
	resource, err := s.resourceDao.GetByTypeAndName(ctx, typeName, typeVersion, name)
	if err != nil {
		return nil, handleGetError("Resource", "name", name, err)
	}
	return resource, nil
}

func (s *sqlResourceService) All(ctx context.Context) (api.ResourceList, *errors.ServiceError) {
	resources, err := s.resourceDao.All(ctx)
	if err != nil {
		return nil, errors.GeneralError("Unable to list resources: %s", err)
	}
	return resources, nil
}

func (s *sqlResourceService) ListByType(ctx context.Context, typeName, typeVersion string) (api.ResourceList, *errors.ServiceError) {
	resources, err := s.resourceDao.ListByType(ctx, typeName, typeVersion)
	if err != nil {
		return nil, errors.GeneralError("Unable to list resources of type %s/%s: %s", typeName, typeVersion, err)
	}
	return resources, nil
}

// validateSpec checks size and schema, returning the spec with defaults
// applied.
func (s *sqlResourceService) validateSpec(resourceType *api.ResourceType, spec map[string]interface{}) (map[string]interface{}, *errors.ServiceError) {
	if spec == nil {
		return nil, errors.Validation("spec is required")
	}
	encoded, err := json.Marshal(spec)
	if err != nil {
		return nil, errors.Validation("spec is not valid JSON: %s", err)
	}
	if len(encoded) > maxSpecBytes {
		return nil, errors.Validation("spec exceeds the maximum size of %d bytes", maxSpecBytes)
	}
	return s.validator.ValidateSpec(resourceType.Schema, spec)
}

// admissionDocument is the resource view handed to admission webhooks.
func admissionDocument(name, typeName, typeVersion string, spec map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":                  name,
		"resource_type_name":    typeName,
		"resource_type_version": typeVersion,
		"spec":                  spec,
	}
}

func specFromAdmission(result *admission.Result, fallback map[string]interface{}) map[string]interface{} {
	if result == nil || result.Resource == nil {
		return fallback
	}
	if spec, ok := result.Resource["spec"].(map[string]interface{}); ok {
		return spec
	}
	return fallback
}

func (s *sqlResourceService) Create(ctx context.Context, request *api.ResourceCreateRequest) (*api.Resource, *errors.ServiceError) {
	if serviceErr := validateName("name", request.Name); serviceErr != nil {
		return nil, serviceErr
	}

	resourceType, err := s.resourceTypeDao.GetByNameVersion(ctx, request.ResourceTypeName, request.ResourceTypeVersion)
	if err != nil {
		return nil, handleGetError("ResourceType", "name", request.ResourceTypeName+"/"+request.ResourceTypeVersion, err)
	}

	spec, serviceErr := s.validateSpec(resourceType, request.Spec)
	if serviceErr != nil {
		return nil, serviceErr
	}

	// Creating a resource nobody will ever reconcile is always a mistake.
	reconciler, ok := s.registry.Get(resourceType.Name)
	if !ok {
		return nil, errors.NoReconcilerForType(resourceType.Name)
	}

	doc := admissionDocument(request.Name, resourceType.Name, resourceType.Version, spec)
	admitted, serviceErr := s.chain.Admit(ctx, api.OperationCreate, resourceType.Name, resourceType.Version, doc, nil)
	if serviceErr != nil {
		return nil, serviceErr
	}

	// Mutating webhooks may have rewritten the spec; it must still conform.
	spec, serviceErr = s.validateSpec(resourceType, specFromAdmission(admitted, spec))
	if serviceErr != nil {
		return nil, errors.Validation("spec is invalid after admission mutation: %s", serviceErr.Reason)
	}

	encodedSpec, marshalErr := json.Marshal(spec)
	if marshalErr != nil {
		return nil, errors.GeneralError("Unable to encode spec: %s", marshalErr)
	}
	encodedFinalizers, marshalErr := json.Marshal([]string{reconciler.Finalizer()})
	if marshalErr != nil {
		return nil, errors.GeneralError("Unable to encode finalizers: %s", marshalErr)
	}

	resource := &api.Resource{
		Name:                request.Name,
		ResourceTypeName:    resourceType.Name,
		ResourceTypeVersion: resourceType.Version,
		Spec:                datatypes.JSON(encodedSpec),
		Status:              api.StatusPending,
		Finalizers:          datatypes.JSON(encodedFinalizers),
	}

	created, err := s.resourceDao.Create(ctx, resource)
	if err != nil {
		return nil, handleCreateError("Resource", err)
	}

	ctx = logger.WithResourceID(ctx, strconv.FormatInt(created.ID, 10))
	ctx = logger.WithResourceType(ctx, created.ResourceTypeName)
	logger.Info(ctx, "Created resource", "name", created.Name)

	s.publishEvent(ctx, events.EventCreated, created)
	return created, nil
}

func (s *sqlResourceService) UpdateSpec(ctx context.Context, id int64, request *api.ResourceUpdateRequest) (*api.Resource, *errors.ServiceError) {
	resource, err := s.resourceDao.Get(ctx, id)
	if err != nil {
		return nil, handleGetError("Resource", "id", id, err)
	}

	resourceType, err := s.resourceTypeDao.GetByNameVersion(ctx, resource.ResourceTypeName, resource.ResourceTypeVersion)
	if err != nil {
		return nil, handleGetError("ResourceType", "name", resource.ResourceTypeName+"/"+resource.ResourceTypeVersion, err)
	}

	spec, serviceErr := s.validateSpec(resourceType, request.Spec)
	if serviceErr != nil {
		return nil, serviceErr
	}

	oldSpec, specErr := resource.SpecDocument()
	if specErr != nil {
		return nil, errors.GeneralError("Unable to decode stored spec: %s", specErr)
	}

	doc := admissionDocument(resource.Name, resource.ResourceTypeName, resource.ResourceTypeVersion, spec)
	oldDoc := admissionDocument(resource.Name, resource.ResourceTypeName, resource.ResourceTypeVersion, oldSpec)
	admitted, serviceErr := s.chain.Admit(ctx, api.OperationUpdate, resource.ResourceTypeName, resource.ResourceTypeVersion, doc, oldDoc)
	if serviceErr != nil {
		return nil, serviceErr
	}

	spec, serviceErr = s.validateSpec(resourceType, specFromAdmission(admitted, spec))
	if serviceErr != nil {
		return nil, errors.Validation("spec is invalid after admission mutation: %s", serviceErr.Reason)
	}

	hash, hashErr := api.HashSpecDocument(spec)
	if hashErr != nil {
		return nil, errors.GeneralError("Unable to hash spec: %s", hashErr)
	}

	// Semantically identical specs never bump the generation.
	if hash == resource.SpecHash {
		return resource, nil
	}

	encodedSpec, marshalErr := json.Marshal(spec)
	if marshalErr != nil {
		return nil, errors.GeneralError("Unable to encode spec: %s", marshalErr)
	}

	resource.Spec = datatypes.JSON(encodedSpec)
	resource.SpecHash = hash
	resource.Generation++
	resource.Status = api.StatusPending
	resource.StatusMessage = ""
	resource.RetryCount = 0
	resource.NextReconcileTime = nil

	updated, err := s.resourceDao.Save(ctx, resource)
	if err != nil {
		return nil, handleUpdateError("Resource", err)
	}

	ctx = logger.WithResourceID(ctx, strconv.FormatInt(updated.ID, 10))
	ctx = logger.WithResourceType(ctx, updated.ResourceTypeName)
	logger.Info(ctx, "Updated resource spec", logger.FieldGeneration, updated.Generation)

	s.publishEvent(ctx, events.EventModified, updated)
	return updated, nil
}

func (s *sqlResourceService) Delete(ctx context.Context, id int64) *errors.ServiceError {
	resource, err := s.resourceDao.GetIncludingDeleted(ctx, id)
	if err != nil {
		return handleGetError("Resource", "id", id, err)
	}
	// Deletion is idempotent; a second delete changes nothing.
	if resource.IsDeleting() {
		return nil
	}

	oldSpec, specErr := resource.SpecDocument()
	if specErr != nil {
		return errors.GeneralError("Unable to decode stored spec: %s", specErr)
	}
	oldDoc := admissionDocument(resource.Name, resource.ResourceTypeName, resource.ResourceTypeVersion, oldSpec)
	if _, serviceErr := s.chain.Admit(ctx, api.OperationDelete, resource.ResourceTypeName, resource.ResourceTypeVersion, oldDoc, oldDoc); serviceErr != nil {
		return serviceErr
	}

	if err := s.resourceDao.MarkDeleting(ctx, id); err != nil {
		return handleDeleteError("Resource", err)
	}

	ctx = logger.WithResourceID(ctx, strconv.FormatInt(id, 10))
	ctx = logger.WithResourceType(ctx, resource.ResourceTypeName)
	logger.Info(ctx, "Marked resource for deletion")

	// The DELETED event fires once the row is actually removed; marking only
	// changes observable state.
	if marked, err := s.resourceDao.GetIncludingDeleted(ctx, id); err == nil {
		s.publishEvent(ctx, events.EventModified, marked)
	}
	return nil
}

func (s *sqlResourceService) Reconcile(ctx context.Context, id int64) (*api.Resource, *errors.ServiceError) {
	resource, err := s.resourceDao.Get(ctx, id)
	if err != nil {
		return nil, handleGetError("Resource", "id", id, err)
	}

	// An attempt is already running; requesting another would race it.
	if resource.Status == api.StatusReconciling {
		return resource, nil
	}

	now := time.Now()
	resource.Status = api.StatusPending
	resource.NextReconcileTime = &now
	resource.RetryCount = 0

	// Only the scheduling fields change; the spec stays whatever it is.
	if err := s.resourceDao.UpdateObservedState(ctx, resource); err != nil {
		return nil, handleUpdateError("Resource", err)
	}

	ctx = logger.WithResourceID(ctx, strconv.FormatInt(id, 10))
	logger.Info(ctx, "Requested out-of-band reconcile")
	return resource, nil
}

func (s *sqlResourceService) PatchFinalizers(ctx context.Context, id int64, request *api.FinalizerPatchRequest) (*api.Resource, *errors.ServiceError) {
	if _, err := s.resourceDao.GetIncludingDeleted(ctx, id); err != nil {
		return nil, handleGetError("Resource", "id", id, err)
	}

	for _, finalizer := range append(append([]string{}, request.Add...), request.Remove...) {
		if finalizer == "" {
			return nil, errors.Validation("finalizer cannot be empty")
		}
		if len(finalizer) > 253 {
			return nil, errors.Validation("finalizer '%s' exceeds 253 characters", finalizer)
		}
	}

	for _, finalizer := range request.Add {
		if err := s.resourceDao.AddFinalizer(ctx, id, finalizer); err != nil {
			return nil, errors.GeneralError("Unable to add finalizer: %s", err)
		}
	}
	for _, finalizer := range request.Remove {
		if err := s.resourceDao.RemoveFinalizer(ctx, id, finalizer); err != nil {
			return nil, errors.GeneralError("Unable to remove finalizer: %s", err)
		}
	}

	updated, err := s.resourceDao.GetIncludingDeleted(ctx, id)
	if err != nil {
		return nil, handleGetError("Resource", "id", id, err)
	}

	// Releasing the last finalizer of a deleting resource completes the
	// deletion right away instead of waiting for the next scheduler pass.
	finalizers, err := updated.FinalizerList()
	if err != nil {
		return nil, errors.GeneralError("Unable to decode finalizers: %s", err)
	}
	if updated.IsDeleting() && len(finalizers) == 0 {
		removed, err := s.resourceDao.HardDelete(ctx, id)
		if err != nil {
			return nil, errors.GeneralError("Unable to complete deletion: %s", err)
		}
		if removed > 0 {
			s.publishEvent(ctx, events.EventDeleted, updated)
		}
	}
	return updated, nil
}

func (s *sqlResourceService) publishEvent(ctx context.Context, eventType events.EventType, resource *api.Resource) {
	if s.bus == nil {
		return
	}
	var data interface{}
	if presented, err := presenters.PresentResource(resource); err == nil {
		data = presented
	}
	s.bus.Publish(ctx, events.Event{
		EventType:           eventType,
		ResourceID:          resource.ID,
		ResourceName:        resource.Name,
		ResourceTypeName:    resource.ResourceTypeName,
		ResourceTypeVersion: resource.ResourceTypeVersion,
		ResourceData:        data,
	})
}
