package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/infractl/infractl/pkg/admission"
	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/controller"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/dao/mocks"
	"github.com/infractl/infractl/pkg/errors"
	"github.com/infractl/infractl/pkg/events"
	"github.com/infractl/infractl/pkg/validators"
)

const bucketSchema = `{
	"type": "object",
	"required": ["region"],
	"properties": {
		"region": {"type": "string"},
		"versioning": {"type": "boolean", "default": false},
		"replicas": {"type": "integer", "minimum": 1, "maximum": 10}
	}
}`

type fakeReconciler struct{ name string }

func (r *fakeReconciler) Name() string { return r.name }
func (r *fakeReconciler) Reconcile(ctx context.Context, rc *controller.ReconcileContext) (*controller.Result, error) {
	return &controller.Result{}, nil
}
func (r *fakeReconciler) Destroy(ctx context.Context, rc *controller.ReconcileContext) error {
	return nil
}
func (r *fakeReconciler) Finalizer() string { return r.name + "/cleanup" }

type resourceServiceFixture struct {
	service       ResourceService
	resources     dao.ResourceDao
	resourceTypes dao.ResourceTypeDao
	registry      *controller.Registry
	webhooks      dao.WebhookDao
	bus           *events.Bus
	reconciler    *fakeReconciler
}

func newResourceServiceFixture(t *testing.T) *resourceServiceFixture {
	t.Helper()

	resources := mocks.NewResourceDao()
	resourceTypes := mocks.NewResourceTypeDao()
	webhooks := mocks.NewWebhookDao()
	bus := events.NewBus(16)
	t.Cleanup(bus.Close)

	_, err := resourceTypes.Create(context.Background(), &api.ResourceType{
		Name:    "gcs-bucket",
		Version: "v1",
		Schema:  datatypes.JSON([]byte(bucketSchema)),
	})
	require.NoError(t, err)

	reconciler := &fakeReconciler{name: "gcs-bucket-reconciler"}
	registry := controller.NewRegistry()
	require.NoError(t, registry.Register("gcs-bucket", reconciler))

	service := NewResourceService(
		resources,
		resourceTypes,
		registry,
		admission.NewChain(webhooks),
		validators.NewSpecValidator(),
		bus,
	)

	return &resourceServiceFixture{
		service:       service,
		resources:     resources,
		resourceTypes: resourceTypes,
		registry:      registry,
		webhooks:      webhooks,
		bus:           bus,
		reconciler:    reconciler,
	}
}

func createRequest(name string) *api.ResourceCreateRequest {
	return &api.ResourceCreateRequest{
		Name:                name,
		ResourceTypeName:    "gcs-bucket",
		ResourceTypeVersion: "v1",
		Spec:                map[string]interface{}{"region": "us-central1"},
	}
}

func TestCreateResource(t *testing.T) {
	f := newResourceServiceFixture(t)
	sub := f.bus.Subscribe(events.Filter{EventTypes: []events.EventType{events.EventCreated}})

	created, serviceErr := f.service.Create(context.Background(), createRequest("primary-bucket"))
	require.Nil(t, serviceErr)

	assert.Equal(t, api.StatusPending, created.Status)
	assert.Equal(t, int32(1), created.Generation)
	assert.Equal(t, int32(0), created.ObservedGeneration)
	assert.True(t, created.HasFinalizer("gcs-bucket-reconciler/cleanup"))
	assert.NotEmpty(t, created.SpecHash)

	// Schema defaults are applied before persistence.
	spec, err := created.SpecDocument()
	require.NoError(t, err)
	assert.Equal(t, false, spec["versioning"])

	event := <-sub.Events()
	assert.Equal(t, events.EventCreated, event.EventType)
	assert.Equal(t, "primary-bucket", event.ResourceName)
}

func TestCreateResourceUnknownType(t *testing.T) {
	f := newResourceServiceFixture(t)

	request := createRequest("primary-bucket")
	request.ResourceTypeName = "unknown"

	_, serviceErr := f.service.Create(context.Background(), request)
	require.NotNil(t, serviceErr)
	assert.True(t, serviceErr.Is404())
}

func TestCreateResourceInvalidName(t *testing.T) {
	f := newResourceServiceFixture(t)

	for _, name := range []string{"", "-leading-hyphen", "Uppercase", "has_underscore"} {
		_, serviceErr := f.service.Create(context.Background(), createRequest(name))
		require.NotNil(t, serviceErr, "name %q should be rejected", name)
		assert.Equal(t, errors.ErrorValidation, serviceErr.Code)
	}
}

func TestCreateResourceSpecValidation(t *testing.T) {
	f := newResourceServiceFixture(t)

	request := createRequest("primary-bucket")
	request.Spec = map[string]interface{}{"replicas": float64(3)}

	_, serviceErr := f.service.Create(context.Background(), request)
	require.NotNil(t, serviceErr)
	assert.Equal(t, errors.ErrorValidation, serviceErr.Code)
	require.NotEmpty(t, serviceErr.Details)
	assert.Contains(t, serviceErr.Details[0].Field, "spec")
	assert.Contains(t, serviceErr.Details[0].Error, "region")
}

func TestCreateResourceNoReconciler(t *testing.T) {
	resources := mocks.NewResourceDao()
	resourceTypes := mocks.NewResourceTypeDao()
	_, err := resourceTypes.Create(context.Background(), &api.ResourceType{
		Name:    "gcs-bucket",
		Version: "v1",
		Schema:  datatypes.JSON([]byte(bucketSchema)),
	})
	require.NoError(t, err)

	service := NewResourceService(
		resources,
		resourceTypes,
		controller.NewRegistry(),
		admission.NewChain(mocks.NewWebhookDao()),
		validators.NewSpecValidator(),
		nil,
	)

	_, serviceErr := service.Create(context.Background(), createRequest("primary-bucket"))
	require.NotNil(t, serviceErr)
	assert.Equal(t, errors.ErrorNoReconcilerForType, serviceErr.Code)
}

func TestCreateResourceDuplicateName(t *testing.T) {
	f := newResourceServiceFixture(t)
	ctx := context.Background()

	_, serviceErr := f.service.Create(ctx, createRequest("primary-bucket"))
	require.Nil(t, serviceErr)

	_, serviceErr = f.service.Create(ctx, createRequest("primary-bucket"))
	require.NotNil(t, serviceErr)
	assert.True(t, serviceErr.IsConflict())
}

func TestCreateResourceNameUniqueAcrossTypes(t *testing.T) {
	f := newResourceServiceFixture(t)
	ctx := context.Background()

	_, err := f.resourceTypes.Create(ctx, &api.ResourceType{
		Name:    "dns-zone",
		Version: "v1",
		Schema:  datatypes.JSON([]byte(bucketSchema)),
	})
	require.NoError(t, err)
	require.NoError(t, f.registry.Register("dns-zone", &fakeReconciler{name: "dns-zone-reconciler"}))

	created, serviceErr := f.service.Create(ctx, createRequest("primary-bucket"))
	require.Nil(t, serviceErr)

	// Names identify resources globally; a different type does not free one.
	_, serviceErr = f.service.Create(ctx, &api.ResourceCreateRequest{
		Name:                "primary-bucket",
		ResourceTypeName:    "dns-zone",
		ResourceTypeVersion: "v1",
		Spec:                map[string]interface{}{"region": "us-central1"},
	})
	require.NotNil(t, serviceErr)
	assert.True(t, serviceErr.IsConflict())

	// A soft-deleted resource releases its name.
	require.NoError(t, f.resources.MarkDeleting(ctx, created.ID))
	_, serviceErr = f.service.Create(ctx, createRequest("primary-bucket"))
	assert.Nil(t, serviceErr)
}

func TestCreateResourceAdmissionDenied(t *testing.T) {
	f := newResourceServiceFixture(t)
	ctx := context.Background()

	denier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(admission.Response{Allowed: false, Message: "region is locked down"})
	}))
	defer denier.Close()

	_, err := f.webhooks.Create(ctx, &api.AdmissionWebhook{
		Name:        "region-policy",
		WebhookType: api.WebhookTypeValidating,
		WebhookURL:  denier.URL,
	})
	require.NoError(t, err)

	_, serviceErr := f.service.Create(ctx, createRequest("primary-bucket"))
	require.NotNil(t, serviceErr)
	assert.True(t, serviceErr.IsForbidden())
	assert.Contains(t, serviceErr.Reason, "region is locked down")
}

func TestCreateResourceMutatingWebhookRewritesSpec(t *testing.T) {
	f := newResourceServiceFixture(t)
	ctx := context.Background()

	mutator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(admission.Response{
			Allowed: true,
			Patches: []admission.PatchOp{
				{Op: "add", Path: "/spec/versioning", Value: true},
			},
		})
	}))
	defer mutator.Close()

	_, err := f.webhooks.Create(ctx, &api.AdmissionWebhook{
		Name:        "versioning-defaulter",
		WebhookType: api.WebhookTypeMutating,
		WebhookURL:  mutator.URL,
	})
	require.NoError(t, err)

	created, serviceErr := f.service.Create(ctx, createRequest("primary-bucket"))
	require.Nil(t, serviceErr)

	spec, specErr := created.SpecDocument()
	require.NoError(t, specErr)
	assert.Equal(t, true, spec["versioning"])
}

func TestUpdateSpecBumpsGeneration(t *testing.T) {
	f := newResourceServiceFixture(t)
	ctx := context.Background()
	sub := f.bus.Subscribe(events.Filter{EventTypes: []events.EventType{events.EventModified}})

	created, serviceErr := f.service.Create(ctx, createRequest("primary-bucket"))
	require.Nil(t, serviceErr)

	updated, serviceErr := f.service.UpdateSpec(ctx, created.ID, &api.ResourceUpdateRequest{
		Spec: map[string]interface{}{"region": "us-east1"},
	})
	require.Nil(t, serviceErr)

	assert.Equal(t, int32(2), updated.Generation)
	assert.Equal(t, api.StatusPending, updated.Status)
	assert.Equal(t, int32(0), updated.RetryCount)
	assert.Nil(t, updated.NextReconcileTime)

	event := <-sub.Events()
	assert.Equal(t, events.EventModified, event.EventType)
}

func TestUpdateSpecIdenticalIsNoOp(t *testing.T) {
	f := newResourceServiceFixture(t)
	ctx := context.Background()

	created, serviceErr := f.service.Create(ctx, createRequest("primary-bucket"))
	require.Nil(t, serviceErr)
	originalHash := created.SpecHash

	// Same document with keys in a different order hashes identically.
	spec, err := created.SpecDocument()
	require.NoError(t, err)
	updated, serviceErr := f.service.UpdateSpec(ctx, created.ID, &api.ResourceUpdateRequest{Spec: spec})
	require.Nil(t, serviceErr)

	assert.Equal(t, int32(1), updated.Generation)
	assert.Equal(t, originalHash, updated.SpecHash)
}

func TestDeleteResourceIsIdempotent(t *testing.T) {
	f := newResourceServiceFixture(t)
	ctx := context.Background()

	created, serviceErr := f.service.Create(ctx, createRequest("primary-bucket"))
	require.Nil(t, serviceErr)

	require.Nil(t, f.service.Delete(ctx, created.ID))
	require.Nil(t, f.service.Delete(ctx, created.ID))

	marked, err := f.resources.GetIncludingDeleted(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, marked.IsDeleting())
	assert.Equal(t, api.StatusDeleting, marked.Status)
}

func TestPatchFinalizersCompletesDeletion(t *testing.T) {
	f := newResourceServiceFixture(t)
	ctx := context.Background()
	sub := f.bus.Subscribe(events.Filter{EventTypes: []events.EventType{events.EventDeleted}})

	created, serviceErr := f.service.Create(ctx, createRequest("primary-bucket"))
	require.Nil(t, serviceErr)
	require.Nil(t, f.service.Delete(ctx, created.ID))

	_, serviceErr = f.service.PatchFinalizers(ctx, created.ID, &api.FinalizerPatchRequest{
		Remove: []string{"gcs-bucket-reconciler/cleanup"},
	})
	require.Nil(t, serviceErr)

	_, err := f.resources.GetIncludingDeleted(ctx, created.ID)
	assert.Error(t, err)

	event := <-sub.Events()
	assert.Equal(t, events.EventDeleted, event.EventType)
}

func TestReconcileRequestsImmediateAttempt(t *testing.T) {
	f := newResourceServiceFixture(t)
	ctx := context.Background()

	created, serviceErr := f.service.Create(ctx, createRequest("primary-bucket"))
	require.Nil(t, serviceErr)

	updated, serviceErr := f.service.Reconcile(ctx, created.ID)
	require.Nil(t, serviceErr)
	assert.Equal(t, api.StatusPending, updated.Status)
	require.NotNil(t, updated.NextReconcileTime)
}

func TestReconcileIsNoOpWhileAttemptRuns(t *testing.T) {
	f := newResourceServiceFixture(t)
	ctx := context.Background()

	created, serviceErr := f.service.Create(ctx, createRequest("primary-bucket"))
	require.Nil(t, serviceErr)

	created.Status = api.StatusReconciling
	_, err := f.resources.Save(ctx, created)
	require.NoError(t, err)

	updated, serviceErr := f.service.Reconcile(ctx, created.ID)
	require.Nil(t, serviceErr)
	assert.Equal(t, api.StatusReconciling, updated.Status)
	assert.Nil(t, updated.NextReconcileTime)
}
