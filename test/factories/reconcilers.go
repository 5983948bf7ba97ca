package factories

import (
	"context"
	"fmt"
	"sync"

	"github.com/infractl/infractl/cmd/infractl/environments"
	"github.com/infractl/infractl/pkg/controller"
	"github.com/infractl/infractl/plugins/controllers"
)

// StubReconciler is an in-memory reconciler for tests. By default every
// reconcile and destroy succeeds; tests override the function fields to
// simulate failures or inspect the context they were handed.
type StubReconciler struct {
	ReconcilerName string
	ReconcileFn    func(ctx context.Context, rc *controller.ReconcileContext) (*controller.Result, error)
	DestroyFn      func(ctx context.Context, rc *controller.ReconcileContext) error

	mu         sync.Mutex
	reconciles int
	destroys   int
}

var _ controller.Reconciler = &StubReconciler{}

func NewStubReconciler(name string) *StubReconciler {
	return &StubReconciler{ReconcilerName: name}
}

func (s *StubReconciler) Name() string {
	return s.ReconcilerName
}

func (s *StubReconciler) Finalizer() string {
	return fmt.Sprintf("%s/cleanup", s.ReconcilerName)
}

func (s *StubReconciler) Reconcile(ctx context.Context, rc *controller.ReconcileContext) (*controller.Result, error) {
	s.mu.Lock()
	s.reconciles++
	s.mu.Unlock()
	if s.ReconcileFn != nil {
		return s.ReconcileFn(ctx, rc)
	}
	return &controller.Result{ResourcesCreated: 1}, nil
}

func (s *StubReconciler) Destroy(ctx context.Context, rc *controller.ReconcileContext) error {
	s.mu.Lock()
	s.destroys++
	s.mu.Unlock()
	if s.DestroyFn != nil {
		return s.DestroyFn(ctx, rc)
	}
	return nil
}

func (s *StubReconciler) Reconciles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciles
}

func (s *StubReconciler) Destroys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroys
}

// RegisterReconciler registers a reconciler for a resource type in the shared
// registry used by the resource service and the scheduler.
func (f *Factories) RegisterReconciler(typeName string, reconciler controller.Reconciler) error {
	registry := controllers.Registry(&environments.Environment().Services)
	if registry == nil {
		return fmt.Errorf("reconciler registry not initialized")
	}
	return registry.Register(typeName, reconciler)
}

// NewReconciledType registers a resource type with the default schema plus a
// stub reconciler for it, the minimum needed before resources of the type can
// be created.
func (f *Factories) NewReconciledType() (*StubReconciler, string, string, error) {
	typeName := fmt.Sprintf("type-%s", f.NewID())
	resourceType, err := f.NewResourceType(typeName, "v1")
	if err != nil {
		return nil, "", "", err
	}
	reconciler := NewStubReconciler(fmt.Sprintf("%s-reconciler", typeName))
	if err := f.RegisterReconciler(resourceType.Name, reconciler); err != nil {
		return nil, "", "", err
	}
	return reconciler, resourceType.Name, resourceType.Version, nil
}
