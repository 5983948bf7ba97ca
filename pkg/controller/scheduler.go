package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"gorm.io/datatypes"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/api/presenters"
	"github.com/infractl/infractl/pkg/config"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/events"
	"github.com/infractl/infractl/pkg/logger"
	"github.com/infractl/infractl/pkg/status"
)

// Backoff computes the retry delay for the given attempt count:
// base * 2^(retryCount-1), capped.
func Backoff(retryCount int32, base, cap time.Duration) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	delay := base
	for i := int32(1); i < retryCount; i++ {
		delay *= 2
		if delay >= cap {
			return cap
		}
	}
	if delay > cap {
		return cap
	}
	return delay
}

// Scheduler periodically claims due resources and runs their reconcilers on a
// bounded worker pool. A single scheduler instance per process; concurrent
// claim safety comes from the database, re-entry safety from the active set.
type Scheduler struct {
	cfg       *config.ControllerConfig
	registry  *Registry
	resources dao.ResourceDao
	history   dao.HistoryDao
	bus       *events.Bus

	pool *ants.Pool

	mu     sync.Mutex
	active map[int64]struct{}

	stopCh   chan struct{}
	loopDone chan struct{}
	inflight sync.WaitGroup

	now func() time.Time
}

// NewScheduler creates a Scheduler over the given registry and stores.
func NewScheduler(cfg *config.ControllerConfig, registry *Registry, resources dao.ResourceDao, history dao.HistoryDao, bus *events.Bus) (*Scheduler, error) {
	pool, err := ants.NewPool(cfg.MaxConcurrentReconciles)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Scheduler{
		cfg:       cfg,
		registry:  registry,
		resources: resources,
		history:   history,
		bus:       bus,
		pool:      pool,
		active:    map[int64]struct{}{},
		stopCh:    make(chan struct{}),
		loopDone:  make(chan struct{}),
		now:       time.Now,
	}, nil
}

// Start launches the tick loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info(ctx, "Starting reconciliation scheduler",
		"interval", s.cfg.ReconcileInterval().String(),
		"max_concurrent", s.cfg.MaxConcurrentReconciles)

	go func() {
		defer close(s.loopDone)
		ticker := time.NewTicker(s.cfg.ReconcileInterval())
		defer ticker.Stop()

		// First pass right away instead of waiting out a full interval.
		s.Tick(ctx)
		for {
			select {
			case <-ticker.C:
				s.Tick(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the tick loop and waits up to the shutdown grace period for
// in-flight reconciles to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	close(s.stopCh)
	<-s.loopDone

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info(ctx, "Scheduler drained cleanly")
	case <-time.After(s.cfg.ShutdownGrace()):
		logger.Warn(ctx, "Shutdown grace period expired with reconciles still in flight")
	}
	s.pool.Release()
}

// Tick claims one batch of due resources and dispatches them to the pool.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	capacity := s.cfg.MaxConcurrentReconciles - len(s.active)
	s.mu.Unlock()
	if capacity <= 0 {
		return
	}

	claimed, err := s.resources.ClaimReconcileBatch(ctx, capacity, s.cfg.DriftIntervalSec)
	if err != nil {
		logger.WithError(err).ErrorContext(ctx, "Failed to claim reconcile batch")
		return
	}

	for _, resource := range claimed {
		resource := resource
		if !s.tryActivate(resource.ID) {
			continue
		}
		s.inflight.Add(1)
		if err := s.pool.Submit(func() {
			defer s.inflight.Done()
			defer s.release(resource.ID)
			s.process(ctx, resource)
		}); err != nil {
			s.inflight.Done()
			s.release(resource.ID)
			logger.WithError(err).ErrorContext(ctx, "Failed to submit reconcile task")
		}
	}
}

func (s *Scheduler) tryActivate(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[id]; ok {
		return false
	}
	s.active[id] = struct{}{}
	return true
}

func (s *Scheduler) release(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}

// deriveTrigger classifies why this attempt is running. Claiming has already
// flipped the phase, so the classification reads the scheduling fields.
func (s *Scheduler) deriveTrigger(r *api.Resource) string {
	switch {
	case r.IsDeleting():
		return api.TriggerDelete
	case r.RetryCount > 0:
		return api.TriggerRetry
	case r.Generation > r.ObservedGeneration:
		return api.TriggerSpecChange
	case r.LastReconcileTime == nil ||
		!r.LastReconcileTime.After(s.now().Add(-s.cfg.DriftInterval())):
		return api.TriggerDrift
	default:
		return api.TriggerManual
	}
}

// process runs one reconcile or destroy attempt to completion.
func (s *Scheduler) process(ctx context.Context, resource *api.Resource) {
	activeReconciles.Inc()
	defer activeReconciles.Dec()

	trigger := s.deriveTrigger(resource)
	ctx = logger.WithResourceID(ctx, fmt.Sprintf("%d", resource.ID))
	ctx = logger.WithResourceType(ctx, resource.ResourceTypeName)

	reconciler, ok := s.registry.Get(resource.ResourceTypeName)
	if !ok {
		message := fmt.Sprintf("no reconciler registered for resource type %q", resource.ResourceTypeName)
		if resource.IsDeleting() {
			// A soft-deleted row must keep its deleting status or the claim
			// query stops seeing it. Record the miss and leave it claimable
			// for when the reconciler comes back.
			s.skipDestroy(ctx, resource, trigger, message)
			return
		}
		// Types lose their reconciler only when the process restarts with a
		// different plugin set; park the resource as failed until one shows up.
		s.completeFailure(ctx, resource, trigger, api.ReasonNoReconciler, message, 0)
		return
	}

	if resource.IsDeleting() {
		s.processDestroy(ctx, resource, reconciler, trigger)
		return
	}
	s.processReconcile(ctx, resource, reconciler, trigger)
}

func (s *Scheduler) processReconcile(ctx context.Context, resource *api.Resource, reconciler Reconciler, trigger string) {
	started := s.now()

	logger.Info(ctx, "Reconciling resource",
		logger.FieldReconciler, reconciler.Name(),
		logger.FieldTriggerReason, trigger,
		logger.FieldGeneration, resource.Generation)

	if err := status.Apply(resource, started, status.StartConditions()); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Failed to apply start conditions")
	}
	if err := s.resources.UpdateObservedState(ctx, resource); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Failed to persist reconcile start")
		return
	}

	rc, err := NewReconcileContext(resource, trigger)
	if err != nil {
		s.completeFailure(ctx, resource, trigger, api.ReasonReconcileFailed, err.Error(), s.now().Sub(started).Seconds())
		return
	}

	result, err := reconciler.Reconcile(ctx, rc)
	duration := s.now().Sub(started)
	reconcileDuration.WithLabelValues(resource.ResourceTypeName).Observe(duration.Seconds())

	if err != nil {
		s.completeFailure(ctx, resource, trigger, api.ReasonReconcileFailed, err.Error(), duration.Seconds())
		return
	}
	s.completeSuccess(ctx, resource, trigger, result, duration.Seconds())
}

func (s *Scheduler) completeSuccess(ctx context.Context, resource *api.Resource, trigger string, result *Result, durationSeconds float64) {
	now := s.now()
	if result == nil {
		result = &Result{}
	}

	resource.Status = api.StatusReady
	resource.StatusMessage = ""
	resource.ObservedGeneration = resource.Generation
	resource.RetryCount = 0
	resource.LastReconcileTime = &now
	// Reconcilers can ask for an earlier recheck; otherwise the next attempt
	// is the scheduled drift detection pass.
	next := now.Add(s.cfg.DriftInterval())
	if result.RequeueAfter > 0 {
		next = now.Add(result.RequeueAfter)
	}
	resource.NextReconcileTime = &next

	if result.Outputs != nil {
		encoded, err := json.Marshal(result.Outputs)
		if err != nil {
			logger.WithError(err).ErrorContext(ctx, "Failed to encode reconciler outputs")
		} else {
			resource.Outputs = datatypes.JSON(encoded)
		}
	}

	if err := status.Apply(resource, now, status.SuccessConditions()); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Failed to apply success conditions")
	}
	if err := s.resources.UpdateObservedState(ctx, resource); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Failed to persist reconcile success")
		return
	}

	s.recordHistory(ctx, &api.ReconciliationHistory{
		ResourceID:       resource.ID,
		Generation:       resource.Generation,
		Success:          true,
		Phase:            api.StatusReady,
		PlanOutput:       result.PlanOutput,
		ApplyOutput:      result.ApplyOutput,
		ResourcesCreated: result.ResourcesCreated,
		ResourcesUpdated: result.ResourcesUpdated,
		ResourcesDeleted: result.ResourcesDeleted,
		DurationSeconds:  durationSeconds,
		TriggerReason:    trigger,
		DriftDetected:    result.DriftDetected,
		ReconcileTime:    now,
	})

	reconcilesTotal.WithLabelValues("success", trigger).Inc()
	s.publishEvent(ctx, events.EventReconciled, resource)

	logger.Info(ctx, "Resource reconciled",
		logger.FieldPhase, resource.Status,
		logger.FieldTriggerReason, trigger)
}

func (s *Scheduler) completeFailure(ctx context.Context, resource *api.Resource, trigger, reason, message string, durationSeconds float64) {
	now := s.now()

	resource.Status = api.StatusFailed
	resource.StatusMessage = message
	resource.RetryCount++
	next := now.Add(Backoff(resource.RetryCount, s.cfg.BackoffBase(), s.cfg.BackoffCap()))
	resource.NextReconcileTime = &next
	resource.LastReconcileTime = &now

	if err := status.Apply(resource, now, status.FailureConditions(reason, message)); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Failed to apply failure conditions")
	}
	if err := s.resources.UpdateObservedState(ctx, resource); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Failed to persist reconcile failure")
		return
	}

	s.recordHistory(ctx, &api.ReconciliationHistory{
		ResourceID:      resource.ID,
		Generation:      resource.Generation,
		Success:         false,
		Phase:           api.StatusFailed,
		ErrorMessage:    message,
		DurationSeconds: durationSeconds,
		TriggerReason:   trigger,
		ReconcileTime:   now,
	})

	reconcilesTotal.WithLabelValues("failure", trigger).Inc()
	s.publishEvent(ctx, events.EventReconciled, resource)

	logger.Warn(ctx, "Resource reconcile failed",
		logger.FieldTriggerReason, trigger,
		"retry_count", resource.RetryCount,
		"next_attempt", next.Format(time.RFC3339),
		"error", message)
}

// skipDestroy records a destroy attempt that could not run. The resource
// stays in the deleting status so later claim batches pick it up again.
func (s *Scheduler) skipDestroy(ctx context.Context, resource *api.Resource, trigger, message string) {
	now := s.now()

	resource.StatusMessage = message
	resource.RetryCount++
	next := now.Add(Backoff(resource.RetryCount, s.cfg.BackoffBase(), s.cfg.BackoffCap()))
	resource.NextReconcileTime = &next
	if err := s.resources.UpdateObservedState(ctx, resource); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Failed to persist skipped destroy")
	}

	s.recordHistory(ctx, &api.ReconciliationHistory{
		ResourceID:    resource.ID,
		Generation:    resource.Generation,
		Success:       false,
		Phase:         api.StatusDeleting,
		ErrorMessage:  message,
		TriggerReason: trigger,
		ReconcileTime: now,
	})

	reconcilesTotal.WithLabelValues("failure", trigger).Inc()
	logger.Warn(ctx, "Destroy skipped",
		logger.FieldTriggerReason, trigger,
		"error", message)
}

func (s *Scheduler) processDestroy(ctx context.Context, resource *api.Resource, reconciler Reconciler, trigger string) {
	started := s.now()

	logger.Info(ctx, "Destroying resource",
		logger.FieldReconciler, reconciler.Name(),
		logger.FieldTriggerReason, trigger)

	if err := status.Apply(resource, started, status.DeletingConditions()); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Failed to apply deleting conditions")
	}
	if err := s.resources.UpdateObservedState(ctx, resource); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Failed to persist destroy start")
		return
	}

	rc, err := NewReconcileContext(resource, trigger)
	if err == nil {
		err = reconciler.Destroy(ctx, rc)
	}
	duration := s.now().Sub(started)

	if err != nil {
		now := s.now()
		resource.StatusMessage = err.Error()
		resource.RetryCount++
		if updateErr := s.resources.UpdateObservedState(ctx, resource); updateErr != nil {
			logger.WithError(updateErr).ErrorContext(ctx, "Failed to persist destroy failure")
		}
		s.recordHistory(ctx, &api.ReconciliationHistory{
			ResourceID:      resource.ID,
			Generation:      resource.Generation,
			Success:         false,
			Phase:           api.StatusDeleting,
			ErrorMessage:    err.Error(),
			DurationSeconds: duration.Seconds(),
			TriggerReason:   trigger,
			ReconcileTime:   now,
		})
		reconcilesTotal.WithLabelValues("failure", trigger).Inc()
		logger.WithError(err).WarnContext(ctx, "Resource destroy failed; will retry")
		return
	}

	// External state is gone; drop our finalizer. The row is only removed
	// once every finalizer holder has released it.
	if err := s.resources.RemoveFinalizer(ctx, resource.ID, reconciler.Finalizer()); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Failed to remove finalizer after destroy")
		return
	}

	s.recordHistory(ctx, &api.ReconciliationHistory{
		ResourceID:      resource.ID,
		Generation:      resource.Generation,
		Success:         true,
		Phase:           api.StatusDeleting,
		DurationSeconds: duration.Seconds(),
		TriggerReason:   trigger,
		ReconcileTime:   s.now(),
	})
	reconcilesTotal.WithLabelValues("success", trigger).Inc()

	removed, err := s.resources.HardDelete(ctx, resource.ID)
	if err != nil {
		logger.WithError(err).ErrorContext(ctx, "Failed to hard-delete resource")
		return
	}
	if removed == 0 {
		logger.Info(ctx, "Resource retained by remaining finalizers")
		return
	}

	s.publishEvent(ctx, events.EventDeleted, resource)
	logger.Info(ctx, "Resource deleted")
}

func (s *Scheduler) recordHistory(ctx context.Context, entry *api.ReconciliationHistory) {
	if _, err := s.history.Create(ctx, entry); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Failed to record reconciliation history")
	}
}

func (s *Scheduler) publishEvent(ctx context.Context, eventType events.EventType, resource *api.Resource) {
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
