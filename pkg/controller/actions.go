package controller

import (
	"context"
	"fmt"
	"sync"
)

// ActionPlugin is an out-of-core capability a reconciler can look up by name,
// such as a notification hook or an inventory exporter. The core never calls
// plugins itself.
type ActionPlugin interface {
	// Name identifies the plugin for registry lookups.
	Name() string

	// Run executes the action with plugin-defined parameters.
	Run(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)
}

// ActionRegistry maps action plugin names to their implementations.
type ActionRegistry struct {
	mu      sync.RWMutex
	plugins map[string]ActionPlugin
}

// NewActionRegistry creates an empty action plugin registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{
		plugins: make(map[string]ActionPlugin),
	}
}

// Register adds an action plugin under its name.
func (r *ActionRegistry) Register(plugin ActionPlugin) error {
	if plugin == nil || plugin.Name() == "" {
		return fmt.Errorf("action plugin with a name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[plugin.Name()]; ok {
		return fmt.Errorf("action plugin %q is already registered", plugin.Name())
	}
	r.plugins[plugin.Name()] = plugin
	return nil
}

// Get returns the action plugin registered under name.
func (r *ActionRegistry) Get(name string) (ActionPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plugin, ok := r.plugins[name]
	return plugin, ok
}

// Global default action registry; action plugins register into it from init().
var defaultActions = NewActionRegistry()

// DefaultActions returns the global default action registry.
func DefaultActions() *ActionRegistry {
	return defaultActions
}

// RegisterAction adds an action plugin to the default registry.
func RegisterAction(plugin ActionPlugin) error {
	return defaultActions.Register(plugin)
}
