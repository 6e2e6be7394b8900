// Package registry holds the agent's named tool instances. Each entry is
// a Descriptor pairing the name with the tool and its last observed
// readiness. Iteration follows registration order so health aggregation
// is deterministic.
//
// The registry is agnostic to how tool instances were constructed;
// discovery is an external collaborator that supplies (name, instance)
// pairs during agent setup.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/windlass-dev/windlass"
)

// ErrDuplicateTool is returned when registering a name that is already
// present.
var ErrDuplicateTool = errors.New("registry: duplicate tool")

// ErrToolNotFound is returned when looking up an unregistered name.
var ErrToolNotFound = errors.New("registry: tool not found")

// Descriptor pairs a tool's name with its instance and readiness flag.
type Descriptor struct {
	name string
	tool windlass.Tool

	mu    sync.Mutex
	ready bool

	cleanupOnce sync.Once
	cleanupErr  error
}

// Name returns the registered tool name.
func (d *Descriptor) Name() string { return d.name }

// Tool returns the tool instance.
func (d *Descriptor) Tool() windlass.Tool { return d.tool }

// Ready returns the last observed readiness of the tool.
func (d *Descriptor) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

func (d *Descriptor) setReady(ready bool) {
	d.mu.Lock()
	d.ready = ready
	d.mu.Unlock()
}

// Cleanup invokes the tool's Cleanup exactly once, even under concurrent
// calls. Later calls return the first call's result.
func (d *Descriptor) Cleanup(ctx context.Context) error {
	d.cleanupOnce.Do(func() {
		d.cleanupErr = d.tool.Cleanup(ctx)
		d.setReady(false)
	})
	return d.cleanupErr
}

// Registry holds tool descriptors keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Descriptor
	order []string // preserves registration order
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		tools: make(map[string]*Descriptor),
	}
}

// Register adds a tool under the given name. The descriptor's readiness
// is seeded from the tool's current IsReady.
func (r *Registry) Register(name string, tool windlass.Tool) error {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return errors.New("registry: tool name is required")
	}
	if tool == nil {
		return fmt.Errorf("registry: tool %q instance is nil", clean)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[clean]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, clean)
	}
	r.tools[clean] = &Descriptor{
		name:  clean,
		tool:  tool,
		ready: tool.IsReady(),
	}
	r.order = append(r.order, clean)
	return nil
}

// Get returns the descriptor for a name.
func (r *Registry) Get(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.tools[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return desc, nil
}

// All returns every descriptor in registration order.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// RefreshReadiness re-probes every tool's IsReady and updates the
// descriptors. It returns the number of ready tools.
func (r *Registry) RefreshReadiness() int {
	ready := 0
	for _, desc := range r.All() {
		ok := desc.Tool().IsReady()
		desc.setReady(ok)
		if ok {
			ready++
		}
	}
	return ready
}

// AllReady reports whether every registered tool's last observed
// readiness is true. An empty registry is considered ready.
func (r *Registry) AllReady() bool {
	for _, desc := range r.All() {
		if !desc.Ready() {
			return false
		}
	}
	return true
}

// CleanupAll runs Cleanup on every descriptor in reverse registration
// order, collecting errors instead of stopping at the first.
func (r *Registry) CleanupAll(ctx context.Context) error {
	descs := r.All()
	var errs []error
	for i := len(descs) - 1; i >= 0; i-- {
		if err := descs[i].Cleanup(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cleanup %s: %w", descs[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Reset cleans up and removes every descriptor, leaving the registry
// empty for re-registration. Used to roll back a partially populated
// registry when setup fails midway.
func (r *Registry) Reset(ctx context.Context) error {
	err := r.CleanupAll(ctx)
	r.mu.Lock()
	r.tools = make(map[string]*Descriptor)
	r.order = nil
	r.mu.Unlock()
	return err
}
