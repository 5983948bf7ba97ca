// Package registry collects service locator constructors contributed by
// plugins at init time, so the environment can instantiate every service
// without a hand-maintained wiring list.
package registry

import "sync"

// ServiceReceiver is implemented by environments.Services. Declared here so
// plugins can register before the environments package is initialized without
// creating an import cycle.
type ServiceReceiver interface {
	SetService(name string, svc interface{})
}

type serviceConstructor func(env interface{}) interface{}

var (
	mu           sync.Mutex
	constructors = make(map[string]serviceConstructor)
)

// RegisterService records a named service locator constructor. Called from
// plugin init() functions.
func RegisterService(name string, ctor func(env interface{}) interface{}) {
	mu.Lock()
	defer mu.Unlock()
	constructors[name] = ctor
}

// LoadDiscoveredServices instantiates every registered constructor against
// env and stores the results in the receiver.
func LoadDiscoveredServices(receiver ServiceReceiver, env interface{}) {
	mu.Lock()
	defer mu.Unlock()
	for name, ctor := range constructors {
		receiver.SetService(name, ctor(env))
	}
}
