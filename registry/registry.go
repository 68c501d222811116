package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/kinetics-simulator/core"
)

// EventType indicates what kind of change happened in the registry.
type EventType int

const (
	EventModelRegistered EventType = iota
)

// Event is emitted to subscribers when a model is registered.
type Event struct {
	Type EventType
	Name string
}

// Registry is an in-memory, thread-safe store of compiled reaction
// networks keyed by name. It replaces the process-wide model registry the
// source pattern relied on: a Registry is constructed and passed
// explicitly, never global.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*core.ReactionNetwork
	subs   []func(Event)
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{models: make(map[string]*core.ReactionNetwork)}
}

// Add registers a compiled network under a name. It returns an error if
// the name is empty, the network is nil, or the name is already taken.
func (r *Registry) Add(name string, n *core.ReactionNetwork) error {
	if name == "" {
		return fmt.Errorf("registry: empty model name")
	}
	if n == nil {
		return fmt.Errorf("registry: nil network for %q", name)
	}

	r.mu.Lock()
	if _, exists := r.models[name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("registry: model %q already registered", name)
	}
	r.models[name] = n
	subs := make([]func(Event), len(r.subs))
	copy(subs, r.subs)
	r.mu.Unlock()

	// Notify outside the lock so subscribers can call back into the
	// registry.
	for _, fn := range subs {
		fn(Event{Type: EventModelRegistered, Name: name})
	}
	return nil
}

// Get returns the network registered under name, or false if absent.
func (r *Registry) Get(name string) (*core.ReactionNetwork, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.models[name]
	return n, ok
}

// Names returns the registered model names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.models))
	for name := range r.models {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Subscribe registers a callback invoked on every registration.
func (r *Registry) Subscribe(fn func(Event)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}
