package shipper

import (
	"fmt"
	"sync"
)

// Registry manages registered shipping carriers. Registration order is
// preserved and becomes the precedence order of composites built from it.
type Registry struct {
	shippers []Shipper
	index    map[string]int
	mu       sync.RWMutex
}

// NewRegistry creates a new shipper registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]int),
	}
}

// Register adds a shipper to the registry. Registering a name again
// replaces the shipper but keeps its original position.
func (r *Registry) Register(s Shipper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[s.Name()]; ok {
		r.shippers[i] = s
		return
	}
	r.index[s.Name()] = len(r.shippers)
	r.shippers = append(r.shippers, s)
}

// Get returns a shipper by name.
func (r *Registry) Get(name string) (Shipper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.index[name]; ok {
		return r.shippers[i], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// All returns all registered shippers in registration order.
func (r *Registry) All() []Shipper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Shipper(nil), r.shippers...)
}

// Names returns the names of all registered shippers in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.shippers))
	for i, s := range r.shippers {
		names[i] = s.Name()
	}
	return names
}

// Count returns the number of registered shippers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shippers)
}

// Composite builds a CompositeService over the named carriers, in the order
// given. With no names it composes every registered carrier in registration
// order. Naming a carrier twice is an error.
func (r *Registry) Composite(names ...string) (*CompositeService, error) {
	if len(names) == 0 {
		all := r.All()
		services := make([]Service, len(all))
		for i, s := range all {
			services[i] = s
		}
		return NewCompositeService(services...), nil
	}

	services := make([]Service, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCarrier, name)
		}
		seen[name] = true
		s, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return NewCompositeService(services...), nil
}
