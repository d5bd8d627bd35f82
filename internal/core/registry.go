package core

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps target keys to import targets.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]Target
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]Target)}
}

// Register adds a target to the registry.
// Panics if a target with the same key is already registered.
func (r *Registry) Register(t Target) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := t.Info().Key
	if _, exists := r.targets[key]; exists {
		panic(fmt.Sprintf("import target already registered: %s", key))
	}
	r.targets[key] = t
}

// Get returns a target by key.
// Returns false if not found.
func (r *Registry) Get(key string) (Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.targets[key]
	return t, ok
}

// All returns all registered targets sorted by key.
func (r *Registry) All() []Target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Target, 0, len(r.targets))
	for _, t := range r.targets {
		result = append(result, t)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info().Key < result[j].Info().Key
	})

	return result
}

// Keys returns the registered keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.targets))
	for k := range r.targets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the number of registered targets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}
