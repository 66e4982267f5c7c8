package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for the pipeline package.
var (
	// ErrStageAlreadyRegistered is returned when registering a duplicate stage.
	ErrStageAlreadyRegistered = errors.New("stage already registered")

	// ErrStageNotFound is returned for an unknown stage or dependency.
	ErrStageNotFound = errors.New("stage not found")

	// ErrDependencyCycle is returned when stage dependencies form a cycle.
	ErrDependencyCycle = errors.New("dependency cycle detected")
)

// Registry holds stages and orders them by dependency.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]Stage
	order  []string // Maintains registration order
}

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{
		stages: make(map[string]Stage),
	}
}

// DefaultRegistry returns the book pipeline:
// content, cover, assembly, quality, manifest.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range []Stage{
		contentStage{},
		coverStage{},
		assemblyStage{},
		qualityStage{},
		manifestStage{},
	} {
		// Names are constants; a duplicate is a programming error.
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a stage to the registry.
func (r *Registry) Register(s Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.stages[name]; exists {
		return fmt.Errorf("%w: %s", ErrStageAlreadyRegistered, name)
	}

	r.stages[name] = s
	r.order = append(r.order, name)
	return nil
}

// Get returns a stage by name.
func (r *Registry) Get(name string) (Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStageNotFound, name)
	}
	return s, nil
}

// Names returns all stage names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Ordered returns stages sorted so every stage follows its dependencies.
// Ties keep registration order.
func (r *Registry) Ordered() ([]Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inDegree := make(map[string]int, len(r.order))
	for _, name := range r.order {
		for _, dep := range r.stages[name].Dependencies() {
			if _, ok := r.stages[dep]; !ok {
				return nil, fmt.Errorf("%w: stage %q depends on %q", ErrStageNotFound, name, dep)
			}
			inDegree[name]++
		}
	}

	// Kahn's algorithm. Each step emits the earliest registered ready stage,
	// so ties keep registration order.
	emitted := make(map[string]bool, len(r.order))
	ordered := make([]Stage, 0, len(r.order))
	for len(ordered) < len(r.order) {
		next := ""
		for _, name := range r.order {
			if !emitted[name] && inDegree[name] == 0 {
				next = name
				break
			}
		}
		if next == "" {
			break
		}
		emitted[next] = true
		ordered = append(ordered, r.stages[next])

		for _, other := range r.order {
			for _, dep := range r.stages[other].Dependencies() {
				if dep == next {
					inDegree[other]--
				}
			}
		}
	}

	if len(ordered) != len(r.stages) {
		return nil, ErrDependencyCycle
	}
	return ordered, nil
}

// Downstream returns every stage that depends on name, directly or
// transitively, in registration order.
func (r *Registry) Downstream(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	affected := map[string]bool{name: true}
	changed := true
	for changed {
		changed = false
		for _, other := range r.order {
			if affected[other] {
				continue
			}
			for _, dep := range r.stages[other].Dependencies() {
				if affected[dep] {
					affected[other] = true
					changed = true
					break
				}
			}
		}
	}

	var out []string
	for _, other := range r.order {
		if other != name && affected[other] {
			out = append(out, other)
		}
	}
	return out
}
