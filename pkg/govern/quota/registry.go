package quota

import (
	"sort"
	"sync"
)

// Registry holds exactly one Limiter per dependency name for the life
// of the process. Limiters are created lazily on first Ensure; the map
// lock is held only during creation and lookup, never during admission,
// so contention on one dependency's limiter cannot delay another's.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
	}
}

// Ensure returns the limiter for name, creating it from cfg if it does
// not exist yet. Concurrent Ensure calls with the same name never
// produce two limiters; when creations race, the first writer's
// configuration wins and later configurations are ignored.
func (r *Registry) Ensure(name string, cfg Config) (*Limiter, error) {
	r.mu.RLock()
	lim, ok := r.limiters[name]
	r.mu.RUnlock()
	if ok {
		return lim, nil
	}

	created, err := NewLimiter(name, cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the write lock: another goroutine may have won
	// the creation race.
	if lim, ok := r.limiters[name]; ok {
		return lim, nil
	}
	r.limiters[name] = created
	return created, nil
}

// Get returns the limiter for name, or false when none exists.
func (r *Registry) Get(name string) (*Limiter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lim, ok := r.limiters[name]
	return lim, ok
}

// All returns every limiter, ordered by dependency name.
func (r *Registry) All() []*Limiter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Limiter, 0, len(r.limiters))
	for _, lim := range r.limiters {
		out = append(out, lim)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Reset clears the counters of the named limiter. Administrative: used
// by tests and operational recovery, never by normal call flow. No-op
// when the name is unknown.
func (r *Registry) Reset(name string) {
	if lim, ok := r.Get(name); ok {
		lim.Reset()
	}
}

// Len returns the number of registered limiters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limiters)
}
