package controller

import (
	"fmt"
	"sync"
)

// Registry maps resource type names to the reconciler responsible for them.
// A type has exactly one reconciler; registering a second one is a conflict.
type Registry struct {
	mu          sync.RWMutex
	reconcilers map[string]Reconciler
	runWG       sync.WaitGroup
}

// NewRegistry creates an empty reconciler registry.
func NewRegistry() *Registry {
	return &Registry{
		reconcilers: make(map[string]Reconciler),
	}
}

// Register binds a reconciler to a resource type name.
func (r *Registry) Register(resourceTypeName string, reconciler Reconciler) error {
	if resourceTypeName == "" {
		return fmt.Errorf("resource type name is required")
	}
	if reconciler == nil {
		return fmt.Errorf("reconciler is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.reconcilers[resourceTypeName]; ok {
		return fmt.Errorf("resource type %q already has reconciler %q", resourceTypeName, existing.Name())
	}
	r.reconcilers[resourceTypeName] = reconciler
	return nil
}

// Get returns the reconciler for a resource type name.
func (r *Registry) Get(resourceTypeName string) (Reconciler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reconciler, ok := r.reconcilers[resourceTypeName]
	return reconciler, ok
}

// Count returns the number of registered reconcilers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reconcilers)
}

// TypeNames returns the registered resource type names.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.reconcilers))
	for name := range r.reconcilers {
		names = append(names, name)
	}
	return names
}

// Global default registry; reconciler plugins register into it from init().
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the global default registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register binds a reconciler in the default registry.
func Register(resourceTypeName string, reconciler Reconciler) error {
	return defaultRegistry.Register(resourceTypeName, reconciler)
}

// Get looks up a reconciler in the default registry.
func Get(resourceTypeName string) (Reconciler, bool) {
	return defaultRegistry.Get(resourceTypeName)
}
