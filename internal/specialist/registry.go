package specialist

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xiaot623/hati/internal/domain"
)

// Registry stores specialists keyed by id. It is built once at startup and
// injected into the dispatcher.
type Registry struct {
	mu          sync.RWMutex
	specialists map[string]Specialist
}

// NewRegistry creates a registry holding the given specialists.
func NewRegistry(specialists ...Specialist) (*Registry, error) {
	r := &Registry{
		specialists: make(map[string]Specialist),
	}
	for _, s := range specialists {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a specialist under its id.
func (r *Registry) Register(s Specialist) error {
	if s == nil {
		return fmt.Errorf("specialist is required")
	}
	id := s.ID()
	if id == "" {
		return fmt.Errorf("specialist id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.specialists[id]; exists {
		return fmt.Errorf("specialist already registered for %s", id)
	}
	r.specialists[id] = s
	return nil
}

// Get returns the specialist registered under id.
func (r *Registry) Get(id string) (Specialist, error) {
	r.mu.RLock()
	s := r.specialists[id]
	r.mu.RUnlock()
	if s == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAgent, id)
	}
	return s, nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.specialists))
	for id := range r.specialists {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered specialists.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specialists)
}
