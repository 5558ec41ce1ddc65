package tracker

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a new WorklogTracker instance.
type Factory func() WorklogTracker

// Registry manages registered tracker adapters. Adapters register
// themselves at init time; the registry provides access by name.
type Registry struct {
	mu       sync.RWMutex
	trackers map[string]Factory
}

var globalRegistry = &Registry{
	trackers: make(map[string]Factory),
}

// Register adds a tracker factory to the global registry. Called from
// adapter init() functions; name should be lowercase.
func Register(name string, factory Factory) {
	globalRegistry.Register(name, factory)
}

// Get retrieves a factory from the global registry, or nil.
func Get(name string) Factory {
	return globalRegistry.Get(name)
}

// List returns the names of all registered trackers, sorted.
func List() []string {
	return globalRegistry.List()
}

// New creates a new instance of the named tracker.
func New(name string) (WorklogTracker, error) {
	return globalRegistry.New(name)
}

func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers[name] = factory
}

func (r *Registry) Get(name string) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trackers[name]
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.trackers))
	for name := range r.trackers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) New(name string) (WorklogTracker, error) {
	factory := r.Get(name)
	if factory == nil {
		return nil, fmt.Errorf("unknown tracker %q (available: %v)", name, r.List())
	}
	return factory(), nil
}
