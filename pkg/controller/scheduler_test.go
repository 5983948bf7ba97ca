package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/config"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/dao/mocks"
	"github.com/infractl/infractl/pkg/events"
)

type stubReconciler struct {
	name        string
	result      *Result
	err         error
	destroyErr  error
	reconciles  int
	destroys    int
	lastTrigger string
}

func (r *stubReconciler) Name() string { return r.name }

func (r *stubReconciler) Reconcile(ctx context.Context, rc *ReconcileContext) (*Result, error) {
	r.reconciles++
	r.lastTrigger = rc.TriggerReason
	return r.result, r.err
}

func (r *stubReconciler) Destroy(ctx context.Context, rc *ReconcileContext) error {
	r.destroys++
	r.lastTrigger = rc.TriggerReason
	return r.destroyErr
}

func (r *stubReconciler) Finalizer() string { return r.name + "/cleanup" }

type schedulerFixture struct {
	scheduler  *Scheduler
	resources  dao.ResourceDao
	history    dao.HistoryDao
	bus        *events.Bus
	reconciler *stubReconciler
}

func newFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	resources := mocks.NewResourceDao()
	history := mocks.NewHistoryDao()
	bus := events.NewBus(16)
	reconciler := &stubReconciler{name: "gcs-bucket-reconciler", result: &Result{}}

	registry := NewRegistry()
	require.NoError(t, registry.Register("gcs-bucket", reconciler))

	scheduler, err := NewScheduler(config.NewControllerConfig(), registry, resources, history, bus)
	require.NoError(t, err)
	t.Cleanup(bus.Close)

	return &schedulerFixture{
		scheduler:  scheduler,
		resources:  resources,
		history:    history,
		bus:        bus,
		reconciler: reconciler,
	}
}

func (f *schedulerFixture) createResource(t *testing.T) *api.Resource {
	t.Helper()
	r, err := f.resources.Create(context.Background(), &api.Resource{
		Name:                "primary-bucket",
		ResourceTypeName:    "gcs-bucket",
		ResourceTypeVersion: "v1",
		Spec:                datatypes.JSON([]byte(`{"region":"us-central1"}`)),
		Finalizers:          datatypes.JSON([]byte(`["gcs-bucket-reconciler/cleanup"]`)),
	})
	require.NoError(t, err)
	return r
}

// claimOne claims the next due resource and runs it synchronously.
func (f *schedulerFixture) claimAndProcess(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	claimed, err := f.resources.ClaimReconcileBatch(ctx, 1, f.scheduler.cfg.DriftIntervalSec)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	f.scheduler.process(ctx, claimed[0])
}

func TestBackoffSchedule(t *testing.T) {
	base := 60 * time.Second
	cap := 61440 * time.Second

	assert.Equal(t, 60*time.Second, Backoff(1, base, cap))
	assert.Equal(t, 120*time.Second, Backoff(2, base, cap))
	assert.Equal(t, 240*time.Second, Backoff(3, base, cap))
	assert.Equal(t, 61440*time.Second, Backoff(11, base, cap))
	assert.Equal(t, 61440*time.Second, Backoff(12, base, cap))
	assert.Equal(t, 61440*time.Second, Backoff(40, base, cap))

	// retryCount below 1 behaves like the first attempt
	assert.Equal(t, 60*time.Second, Backoff(0, base, cap))
}

func TestRegistryRejectsDuplicateRegistration(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("gcs-bucket", &stubReconciler{name: "a"}))

	err := registry.Register("gcs-bucket", &stubReconciler{name: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has reconciler")

	got, ok := registry.Get("gcs-bucket")
	require.True(t, ok)
	assert.Equal(t, "a", got.Name())
}

func TestSuccessfulReconcileMarksReady(t *testing.T) {
	f := newFixture(t)
	created := f.createResource(t)
	f.reconciler.result = &Result{
		Outputs:          map[string]interface{}{"url": "gs://primary-bucket"},
		ResourcesCreated: 1,
	}

	sub := f.bus.Subscribe(events.Filter{})
	f.claimAndProcess(t)

	r, err := f.resources.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, api.StatusReady, r.Status)
	assert.Equal(t, r.Generation, r.ObservedGeneration)
	assert.Equal(t, int32(0), r.RetryCount)
	assert.NotNil(t, r.LastReconcileTime)
	assert.Contains(t, string(r.Outputs), "gs://primary-bucket")

	// The next attempt is the scheduled drift check.
	require.NotNil(t, r.NextReconcileTime)
	drift := f.scheduler.cfg.DriftInterval()
	assert.InDelta(t, drift.Seconds(), time.Until(*r.NextReconcileTime).Seconds(), 5)

	conditions, err := r.ConditionList()
	require.NoError(t, err)
	assert.Len(t, conditions, 3)

	entries, err := f.history.ListByResource(context.Background(), created.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.Equal(t, api.TriggerSpecChange, entries[0].TriggerReason)
	assert.Equal(t, int32(1), entries[0].ResourcesCreated)

	event := <-sub.Events()
	assert.Equal(t, events.EventReconciled, event.EventType)
	assert.Equal(t, created.ID, event.ResourceID)
}

func TestSpecUpdateDuringAttemptSurvivesCompletion(t *testing.T) {
	f := newFixture(t)
	created := f.createResource(t)
	ctx := context.Background()

	// Claim the first generation, but do not complete it yet.
	claimed, err := f.resources.ClaimReconcileBatch(ctx, 1, f.scheduler.cfg.DriftIntervalSec)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// While the attempt is in flight, an API caller commits a new spec.
	updated, err := f.resources.Get(ctx, created.ID)
	require.NoError(t, err)
	updated.Generation = 2
	updated.Spec = datatypes.JSON([]byte(`{"region":"europe-west1"}`))
	updated.SpecHash = "edited"
	updated.Status = api.StatusPending
	_, err = f.resources.Save(ctx, updated)
	require.NoError(t, err)

	// Completing the stale attempt must not roll the spec back.
	f.scheduler.process(ctx, claimed[0])

	r, err := f.resources.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), r.Generation)
	assert.Equal(t, "edited", r.SpecHash)
	assert.Contains(t, string(r.Spec), "europe-west1")
	assert.Equal(t, int32(1), r.ObservedGeneration,
		"completion records the generation it actually reconciled")

	// generation > observed_generation keeps the new spec claimable.
	claimed, err = f.resources.ClaimReconcileBatch(ctx, 1, f.scheduler.cfg.DriftIntervalSec)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	f.scheduler.process(ctx, claimed[0])

	r, err = f.resources.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), r.ObservedGeneration)
	assert.Equal(t, 2, f.reconciler.reconciles)
}

func TestRequeueAfterSchedulesEarlyRecheck(t *testing.T) {
	f := newFixture(t)
	created := f.createResource(t)
	f.reconciler.result = &Result{RequeueAfter: 30 * time.Second}

	f.claimAndProcess(t)

	ctx := context.Background()
	r, err := f.resources.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, api.StatusReady, r.Status)
	require.NotNil(t, r.NextReconcileTime)
	assert.InDelta(t, 30, time.Until(*r.NextReconcileTime).Seconds(), 5)

	// A ready resource with a due requeue is claimed before its drift window.
	due := time.Now().Add(-time.Second)
	r.NextReconcileTime = &due
	_, err = f.resources.Save(ctx, r)
	require.NoError(t, err)

	f.reconciler.result = &Result{}
	f.claimAndProcess(t)
	assert.Equal(t, 2, f.reconciler.reconciles)
}

func TestFailedReconcileSchedulesBackoffRetry(t *testing.T) {
	f := newFixture(t)
	created := f.createResource(t)
	f.reconciler.err = errors.New("provider quota exceeded")

	f.claimAndProcess(t)

	r, err := f.resources.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, api.StatusFailed, r.Status)
	assert.Equal(t, int32(1), r.RetryCount)
	require.NotNil(t, r.NextReconcileTime)

	wait := time.Until(*r.NextReconcileTime)
	assert.InDelta(t, 60, wait.Seconds(), 5)

	entries, err := f.history.ListByResource(context.Background(), created.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "provider quota exceeded", entries[0].ErrorMessage)
}

func TestRetryTriggerAfterFailure(t *testing.T) {
	f := newFixture(t)
	created := f.createResource(t)
	f.reconciler.err = errors.New("transient")
	f.claimAndProcess(t)

	// Make the retry due now, then let it succeed.
	r, err := f.resources.Get(context.Background(), created.ID)
	require.NoError(t, err)
	due := time.Now().Add(-time.Second)
	r.NextReconcileTime = &due
	_, err = f.resources.Save(context.Background(), r)
	require.NoError(t, err)

	f.reconciler.err = nil
	f.claimAndProcess(t)

	assert.Equal(t, api.TriggerRetry, f.reconciler.lastTrigger)

	r, err = f.resources.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, api.StatusReady, r.Status)
	assert.Equal(t, int32(0), r.RetryCount)
}

func TestNoReconcilerParksResourceAsFailed(t *testing.T) {
	f := newFixture(t)
	r, err := f.resources.Create(context.Background(), &api.Resource{
		Name:                "mystery",
		ResourceTypeName:    "unknown-type",
		ResourceTypeVersion: "v1",
		Spec:                datatypes.JSON([]byte(`{}`)),
	})
	require.NoError(t, err)

	f.claimAndProcess(t)

	got, err := f.resources.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, api.StatusFailed, got.Status)

	conditions, err := got.ConditionList()
	require.NoError(t, err)
	var ready *api.ResourceCondition
	for i := range conditions {
		if conditions[i].Type == api.ConditionTypeReady {
			ready = &conditions[i]
		}
	}
	require.NotNil(t, ready)
	assert.Equal(t, api.ReasonNoReconciler, ready.Reason)
}

func TestNoReconcilerLeavesDeletingResourceClaimable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.resources.Create(ctx, &api.Resource{
		Name:                "mystery",
		ResourceTypeName:    "unknown-type",
		ResourceTypeVersion: "v1",
		Spec:                datatypes.JSON([]byte(`{}`)),
	})
	require.NoError(t, err)
	require.NoError(t, f.resources.MarkDeleting(ctx, r.ID))

	f.claimAndProcess(t)

	// The miss never flips the status to failed: a soft-deleted row that
	// left the deleting status would drop out of the claim query for good.
	got, err := f.resources.GetIncludingDeleted(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, api.StatusDeleting, got.Status)
	assert.True(t, got.DeletedAt.Valid)
	assert.Equal(t, int32(1), got.RetryCount)
	assert.Contains(t, got.StatusMessage, "no reconciler registered")

	entries, err := f.history.ListByResource(ctx, r.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, api.StatusDeleting, entries[0].Phase)

	// Still claimable for when the reconciler set changes.
	claimed, err := f.resources.ClaimReconcileBatch(ctx, 1, f.scheduler.cfg.DriftIntervalSec)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, r.ID, claimed[0].ID)
}

func TestDestroyPathRemovesFinalizerAndRow(t *testing.T) {
	f := newFixture(t)
	created := f.createResource(t)
	ctx := context.Background()

	require.NoError(t, f.resources.MarkDeleting(ctx, created.ID))
	sub := f.bus.Subscribe(events.Filter{})

	f.claimAndProcess(t)

	assert.Equal(t, 1, f.reconciler.destroys)
	assert.Equal(t, api.TriggerDelete, f.reconciler.lastTrigger)

	_, err := f.resources.GetIncludingDeleted(ctx, created.ID)
	assert.Error(t, err)

	event := <-sub.Events()
	assert.Equal(t, events.EventDeleted, event.EventType)
}

func TestDestroyBlockedByForeignFinalizer(t *testing.T) {
	f := newFixture(t)
	created := f.createResource(t)
	ctx := context.Background()

	require.NoError(t, f.resources.AddFinalizer(ctx, created.ID, "billing/export"))
	require.NoError(t, f.resources.MarkDeleting(ctx, created.ID))

	f.claimAndProcess(t)

	// Destroy ran and our finalizer is gone, but the row survives.
	r, err := f.resources.GetIncludingDeleted(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, r.HasFinalizer("gcs-bucket-reconciler/cleanup"))
	assert.True(t, r.HasFinalizer("billing/export"))
	assert.Equal(t, api.StatusDeleting, r.Status)
}

func TestDestroyFailureRetries(t *testing.T) {
	f := newFixture(t)
	created := f.createResource(t)
	ctx := context.Background()

	f.reconciler.destroyErr = errors.New("provider unavailable")
	require.NoError(t, f.resources.MarkDeleting(ctx, created.ID))

	f.claimAndProcess(t)

	r, err := f.resources.GetIncludingDeleted(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, api.StatusDeleting, r.Status)
	assert.True(t, r.HasFinalizer("gcs-bucket-reconciler/cleanup"))
	assert.Equal(t, int32(1), r.RetryCount)

	entries, err := f.history.ListByResource(ctx, created.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, api.StatusDeleting, entries[0].Phase)
}

func TestDriftTriggerForStaleReadyResource(t *testing.T) {
	f := newFixture(t)
	created := f.createResource(t)
	ctx := context.Background()

	f.claimAndProcess(t)

	// Age the last reconcile past the drift interval.
	r, err := f.resources.Get(ctx, created.ID)
	require.NoError(t, err)
	stale := time.Now().Add(-10 * time.Minute)
	r.LastReconcileTime = &stale
	_, err = f.resources.Save(ctx, r)
	require.NoError(t, err)

	f.claimAndProcess(t)
	assert.Equal(t, api.TriggerDrift, f.reconciler.lastTrigger)
}

func TestClaimOrderingPrefersDeletions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.createResource(t)
	second, err := f.resources.Create(ctx, &api.Resource{
		Name:                "secondary-bucket",
		ResourceTypeName:    "gcs-bucket",
		ResourceTypeVersion: "v1",
		Spec:                datatypes.JSON([]byte(`{"region":"us-east1"}`)),
	})
	require.NoError(t, err)
	require.NoError(t, f.resources.MarkDeleting(ctx, second.ID))

	claimed, err := f.resources.ClaimReconcileBatch(ctx, 2, f.scheduler.cfg.DriftIntervalSec)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, second.ID, claimed[0].ID)
	assert.Equal(t, first.ID, claimed[1].ID)
}

func TestSchedulerStartStopDrains(t *testing.T) {
	f := newFixture(t)
	f.createResource(t)

	ctx := context.Background()
	f.scheduler.Start(ctx)
	time.Sleep(200 * time.Millisecond)
	f.scheduler.Stop(ctx)

	assert.Equal(t, 1, f.reconciler.reconciles)
}
