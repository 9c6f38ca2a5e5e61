package notifier

import (
	"fmt"
	"sort"
	"sync"
)

// Factory is a constructor function that creates a new Sender from
// provider-specific settings.
type Factory func(settings map[string]string) (Sender, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a sender factory available by name.
// It is typically called from an init() function in the adapter package.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("notifier: duplicate registration for %q", name))
	}
	factories[name] = factory
}

// New creates a new Sender by name using the registered factory.
func New(name string, settings map[string]string) (Sender, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("notifier: unknown provider %q", name)
	}
	return factory(settings)
}

// Available returns the sorted names of all registered senders.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
