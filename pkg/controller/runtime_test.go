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
	"github.com/infractl/infractl/pkg/dao/mocks"
)

type stubAction struct {
	name string
	runs int
}

func (a *stubAction) Name() string { return a.name }

func (a *stubAction) Run(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	a.runs++
	return map[string]interface{}{"handled": true}, nil
}

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	return NewRuntime(config.NewControllerConfig(), mocks.NewResourceDao(), mocks.NewHistoryDao(), NewActionRegistry())
}

func seedResource(t *testing.T, rt *Runtime) *api.Resource {
	t.Helper()
	r, err := rt.resourceDao.Create(context.Background(), &api.Resource{
		Name:                "primary-bucket",
		ResourceTypeName:    "gcs-bucket",
		ResourceTypeVersion: "v1",
		Spec:                datatypes.JSON([]byte(`{"region":"us-central1"}`)),
		Finalizers:          datatypes.JSON([]byte(`["gcs-bucket-reconciler/cleanup"]`)),
		Status:              api.StatusPending,
	})
	require.NoError(t, err)
	return r
}

func TestRuntimeResourcesNeedingReconciliation(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()
	r := seedResource(t, rt)

	due, err := rt.ResourcesNeedingReconciliation(ctx, []string{"gcs-bucket"}, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, r.ID, due[0].ID)

	// The query does not claim, so the status is untouched
	assert.Equal(t, api.StatusPending, due[0].Status)

	none, err := rt.ResourcesNeedingReconciliation(ctx, []string{"other-type"}, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRuntimeDueListIncludesDriftAndDeletions(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	// Ready and recently reconciled: not due.
	settled := seedResource(t, rt)
	recent := time.Now().Add(-time.Minute)
	settled.Status = api.StatusReady
	settled.ObservedGeneration = settled.Generation
	settled.LastReconcileTime = &recent
	_, err := rt.resourceDao.Save(ctx, settled)
	require.NoError(t, err)

	due, err := rt.ResourcesNeedingReconciliation(ctx, []string{"gcs-bucket"}, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	// Past the drift interval the same resource comes due again.
	stale := time.Now().Add(-rt.cfg.DriftInterval() - time.Minute)
	settled.LastReconcileTime = &stale
	_, err = rt.resourceDao.Save(ctx, settled)
	require.NoError(t, err)

	due, err = rt.ResourcesNeedingReconciliation(ctx, []string{"gcs-bucket"}, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, settled.ID, due[0].ID)

	// Soft-deleted resources awaiting destroy are due too.
	require.NoError(t, rt.resourceDao.MarkDeleting(ctx, settled.ID))

	due, err = rt.ResourcesNeedingReconciliation(ctx, []string{"gcs-bucket"}, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, api.StatusDeleting, due[0].Status)
	assert.True(t, due[0].DeletedAt.Valid)
}

func TestRuntimeUpdateStatusAndCondition(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()
	r := seedResource(t, rt)

	observed := int32(1)
	require.NoError(t, rt.UpdateStatus(ctx, r.ID, api.StatusReady, "provisioned", &observed))

	updated, err := rt.resourceDao.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, api.StatusReady, updated.Status)
	assert.Equal(t, "provisioned", updated.StatusMessage)
	assert.Equal(t, int32(1), updated.ObservedGeneration)

	require.NoError(t, rt.SetCondition(ctx, r.ID, api.ResourceCondition{
		Type:   api.ConditionTypeReady,
		Status: api.ConditionTrue,
		Reason: api.ReasonReconcileSuccess,
	}))

	updated, err = rt.resourceDao.Get(ctx, r.ID)
	require.NoError(t, err)
	conditions, err := updated.ConditionList()
	require.NoError(t, err)
	require.Len(t, conditions, 1)
	assert.Equal(t, api.ConditionTypeReady, conditions[0].Type)
	assert.Equal(t, api.ConditionTrue, conditions[0].Status)
}

func TestRuntimeRecordReconciliation(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()
	r := seedResource(t, rt)

	result := &Result{
		ResourcesCreated: 2,
		DriftDetected:    true,
	}
	require.NoError(t, rt.RecordReconciliation(ctx, r.ID, result, api.TriggerDrift,
		errors.New("quota exceeded"), 3*time.Second))

	entries, err := rt.historyDao.ListByResource(ctx, r.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "quota exceeded", entries[0].ErrorMessage)
	assert.Equal(t, api.TriggerDrift, entries[0].TriggerReason)
	assert.Equal(t, int32(2), entries[0].ResourcesCreated)
	assert.True(t, entries[0].DriftDetected)
	assert.InDelta(t, 3.0, entries[0].DurationSeconds, 0.01)
}

func TestRuntimeFinalizerGuardedHardDelete(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()
	r := seedResource(t, rt)

	require.NoError(t, rt.resourceDao.MarkDeleting(ctx, r.ID))

	// Blocked while a finalizer remains
	removed, err := rt.HardDelete(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	finalizers, err := rt.Finalizers(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, finalizers, 1)

	require.NoError(t, rt.RemoveFinalizer(ctx, r.ID, finalizers[0]))
	removed, err = rt.HardDelete(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestRuntimeActionPluginLookup(t *testing.T) {
	actions := NewActionRegistry()
	plugin := &stubAction{name: "dns-update"}
	require.NoError(t, actions.Register(plugin))
	assert.Error(t, actions.Register(plugin), "duplicate name is rejected")

	rt := NewRuntime(config.NewControllerConfig(), mocks.NewResourceDao(), mocks.NewHistoryDao(), actions)

	found, ok := rt.ActionPlugin("dns-update")
	require.True(t, ok)
	out, err := found.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, true, out["handled"])
	assert.Equal(t, 1, plugin.runs)

	_, ok = rt.ActionPlugin("unknown")
	assert.False(t, ok)
}

type loopingReconciler struct {
	stubReconciler
	started chan struct{}
	stopped chan struct{}
}

func (r *loopingReconciler) Run(ctx context.Context, rt *Runtime) {
	close(r.started)
	select {
	case <-rt.Done():
	case <-ctx.Done():
	}
	close(r.stopped)
}

func TestRegistryStartAndStopLoops(t *testing.T) {
	registry := NewRegistry()
	runner := &loopingReconciler{
		stubReconciler: stubReconciler{name: "gcs-bucket-reconciler"},
		started:        make(chan struct{}),
		stopped:        make(chan struct{}),
	}
	require.NoError(t, registry.Register("gcs-bucket", runner))
	require.NoError(t, registry.Register("plain-type", &stubReconciler{name: "plain"}))

	rt := NewRuntime(nil, mocks.NewResourceDao(), mocks.NewHistoryDao(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registry.StartAll(ctx, rt)

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler loop never started")
	}

	registry.StopAll(rt, 2*time.Second)

	select {
	case <-runner.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler loop never stopped")
	}
}
