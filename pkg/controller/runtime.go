package controller

import (
	"context"
	"sync"
	"time"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/config"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/logger"
	"github.com/infractl/infractl/pkg/status"
)

// Runtime is the only surface handed to reconciler loops and third-party
// reconciler code. It wraps the store behind the same invariants the
// scheduler honors: the finalizer guard on hard deletes, the condition
// transition-time rule, and append-only history.
type Runtime struct {
	cfg         *config.ControllerConfig
	resourceDao dao.ResourceDao
	historyDao  dao.HistoryDao
	actions     *ActionRegistry

	done     chan struct{}
	shutOnce sync.Once
}

// NewRuntime builds the reconciler-facing store façade.
func NewRuntime(cfg *config.ControllerConfig, resourceDao dao.ResourceDao, historyDao dao.HistoryDao, actions *ActionRegistry) *Runtime {
	if cfg == nil {
		cfg = config.NewControllerConfig()
	}
	if actions == nil {
		actions = NewActionRegistry()
	}
	return &Runtime{
		cfg:         cfg,
		resourceDao: resourceDao,
		historyDao:  historyDao,
		actions:     actions,
		done:        make(chan struct{}),
	}
}

// ResourcesNeedingReconciliation returns due resources of the given types
// without claiming them: new or changed specs, retries whose backoff expired,
// drift checks that came due, and soft-deleted resources awaiting destroy.
// Snapshots only; claiming stays with the scheduler.
func (rt *Runtime) ResourcesNeedingReconciliation(ctx context.Context, typeNames []string, limit int) (api.ResourceList, error) {
	return rt.resourceDao.ListNeedingReconciliation(ctx, typeNames, limit, rt.cfg.DriftIntervalSec)
}

// UpdateStatus writes the status phase and message. Publishing the change is
// the scheduler's responsibility, not the caller's.
func (rt *Runtime) UpdateStatus(ctx context.Context, id int64, statusValue, message string, observedGeneration *int32) error {
	resource, err := rt.resourceDao.GetIncludingDeleted(ctx, id)
	if err != nil {
		return err
	}
	resource.Status = statusValue
	resource.StatusMessage = message
	if observedGeneration != nil {
		resource.ObservedGeneration = *observedGeneration
	}
	return rt.resourceDao.UpdateObservedState(ctx, resource)
}

// SetCondition merges one condition by type under the transition-time rule.
func (rt *Runtime) SetCondition(ctx context.Context, id int64, condition api.ResourceCondition) error {
	resource, err := rt.resourceDao.GetIncludingDeleted(ctx, id)
	if err != nil {
		return err
	}
	if err := status.Apply(resource, time.Now(), []api.ResourceCondition{condition}); err != nil {
		return err
	}
	return rt.resourceDao.UpdateObservedState(ctx, resource)
}

// RecordReconciliation appends a history entry for an attempt the caller ran
// itself. attemptErr nil means the attempt succeeded.
func (rt *Runtime) RecordReconciliation(ctx context.Context, id int64, result *Result, trigger string, attemptErr error, duration time.Duration) error {
	resource, err := rt.resourceDao.GetIncludingDeleted(ctx, id)
	if err != nil {
		return err
	}

	entry := &api.ReconciliationHistory{
		ResourceID:      id,
		Generation:      resource.Generation,
		Success:         attemptErr == nil,
		Phase:           resource.Status,
		TriggerReason:   trigger,
		DurationSeconds: duration.Seconds(),
		ReconcileTime:   time.Now(),
	}
	if attemptErr != nil {
		entry.ErrorMessage = attemptErr.Error()
	}
	if result != nil {
		entry.PlanOutput = result.PlanOutput
		entry.ApplyOutput = result.ApplyOutput
		entry.ResourcesCreated = result.ResourcesCreated
		entry.ResourcesUpdated = result.ResourcesUpdated
		entry.ResourcesDeleted = result.ResourcesDeleted
		entry.DriftDetected = result.DriftDetected
	}

	_, err = rt.historyDao.Create(ctx, entry)
	return err
}

// Finalizers returns the resource's current finalizer list.
func (rt *Runtime) Finalizers(ctx context.Context, id int64) ([]string, error) {
	resource, err := rt.resourceDao.GetIncludingDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	return resource.FinalizerList()
}

// RemoveFinalizer removes one finalizer if present.
func (rt *Runtime) RemoveFinalizer(ctx context.Context, id int64, finalizer string) error {
	return rt.resourceDao.RemoveFinalizer(ctx, id, finalizer)
}

// HardDelete removes a soft-deleted resource. It reports false when the
// finalizer guard blocked the removal.
func (rt *Runtime) HardDelete(ctx context.Context, id int64) (bool, error) {
	rows, err := rt.resourceDao.HardDelete(ctx, id)
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ActionPlugin looks up an action plugin by name.
func (rt *Runtime) ActionPlugin(name string) (ActionPlugin, bool) {
	return rt.actions.Get(name)
}

// Done is the shutdown signal reconciler loops must observe.
func (rt *Runtime) Done() <-chan struct{} {
	return rt.done
}

func (rt *Runtime) shutdown() {
	rt.shutOnce.Do(func() {
		close(rt.done)
	})
}

// Runner is the optional long-running loop a reconciler may carry alongside
// its claim-driven Reconcile. Run blocks until rt.Done() fires.
type Runner interface {
	Run(ctx context.Context, rt *Runtime)
}

// StartAll launches the loop of every registered reconciler that carries
// one. Reconcilers without a Runner are driven purely by the scheduler.
func (r *Registry) StartAll(ctx context.Context, rt *Runtime) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for typeName, reconciler := range r.reconcilers {
		runner, ok := reconciler.(Runner)
		if !ok {
			continue
		}
		r.runWG.Add(1)
		go func(typeName string, name string, runner Runner) {
			defer r.runWG.Done()
			logger.Info(ctx, "Reconciler loop started",
				"reconciler", name, "resource_type", typeName)
			runner.Run(ctx, rt)
			logger.Info(ctx, "Reconciler loop stopped", "reconciler", name)
		}(typeName, reconciler.Name(), runner)
	}
}

// StopAll signals shutdown through the runtime and waits for reconciler
// loops to exit, giving up after the grace period.
func (r *Registry) StopAll(rt *Runtime, grace time.Duration) {
	rt.shutdown()

	finished := make(chan struct{})
	go func() {
		r.runWG.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(grace):
		logger.Warn(context.Background(), "Reconciler loops did not stop within the grace period",
			"grace", grace.String())
	}
}
