package inrack

import (
	"sync"

	"github.com/golang/glog"
)

// Registry holds the available descriptors and tracks which of them have
// been initialized. Each descriptor is initialized at most once over the
// lifetime of the registry, when the first instance of it is created, and
// finalized by Shutdown.
type Registry struct {
	mu          sync.Mutex
	descriptors []*Descriptor
	initialized []*Descriptor
	done        map[*Descriptor]bool
}

// DefaultRegistry is the process-wide registry used by Register.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{done: make(map[*Descriptor]bool)}
}

// Register adds d to the default registry.
func Register(d *Descriptor) { DefaultRegistry.Register(d) }

// Register adds d to the registry. Registering the same descriptor twice is
// a no-op.
func (r *Registry) Register(d *Descriptor) {
	if d == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.descriptors {
		if e == d {
			return
		}
	}
	r.descriptors = append(r.descriptors, d)
}

// Count returns the number of registered descriptors.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.descriptors)
}

// Descriptor returns the i-th registered descriptor, or nil if out of range.
func (r *Registry) Descriptor(i int) *Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.descriptors) {
		return nil
	}
	return r.descriptors[i]
}

// Descriptors returns a snapshot of the registered descriptors in
// registration order.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := make([]*Descriptor, len(r.descriptors))
	copy(ret, r.descriptors)
	return ret
}

// Lookup finds a descriptor by label.
func (r *Registry) Lookup(label string) (*Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.descriptors {
		if d.Label == label {
			return d, true
		}
	}
	return nil, false
}

// InitializeIfNeeded runs d.Init the first time it is called for d.
func (r *Registry) InitializeIfNeeded(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done[d] {
		return
	}
	r.done[d] = true
	r.initialized = append(r.initialized, d)
	if d.Init != nil {
		glog.V(1).Infof("initializing native plugin type %q", d.Label)
		d.Init(d)
	}
}

// Initialized reports whether d has been initialized and not finalized.
func (r *Registry) Initialized(d *Descriptor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done[d]
}

// Shutdown runs Fini for every initialized descriptor, in initialization
// order, and forgets them. Instances of those descriptors must be closed
// before calling Shutdown.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.initialized {
		if d.Fini != nil {
			glog.V(1).Infof("finalizing native plugin type %q", d.Label)
			d.Fini(d)
		}
		delete(r.done, d)
	}
	r.initialized = nil
}
