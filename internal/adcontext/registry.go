package adcontext

import (
	"fmt"
	"strings"
	"sync"
)

// Registry holds the rule types known to the process, in registration order.
type Registry struct {
	mu          sync.RWMutex
	definitions []Definition
	factories   map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a rule type. It is meant for process start only.
func (r *Registry) Register(def Definition, factory Factory) error {
	if strings.TrimSpace(def.ID) == "" {
		return fmt.Errorf("rule type id cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("rule type %q: factory cannot be nil", def.ID)
	}
	if def.Label == "" {
		def.Label = def.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[def.ID]; exists {
		return fmt.Errorf("rule type %q already registered", def.ID)
	}
	r.definitions = append(r.definitions, def)
	r.factories[def.ID] = factory
	return nil
}

// Definitions returns a copy of all definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, len(r.definitions))
	copy(out, r.definitions)
	return out
}

// HasDefinition reports whether id is registered.
func (r *Registry) HasDefinition(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[id]
	return ok
}

// CreateInstance builds a fresh plugin for id.
func (r *Registry) CreateInstance(id string) (Plugin, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRuleType, id)
	}
	return factory(), nil
}
