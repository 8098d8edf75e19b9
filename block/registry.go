package block

import (
	"sort"
	"sync"
)

// Owner ties a registry entry back to the module that provided it, so the
// loader can refuse to unload a module while instances built from it are
// still alive.
type Owner interface {
	ModuleName() string
	Acquire()
	Release()
}

type entry struct {
	spec  Spec
	owner Owner
}

// Registry is the process-wide catalog mapping a block type name to its
// factory and declared port schema. It is owned by whoever constructs it
// (usually a module.Loader), never ambient package state, so multiple
// independent engines can coexist in one process.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]entry{}}
}

// RegisterAll inserts every spec under the given owner, all-or-nothing: if
// any type name collides with an existing entry (or another spec in the same
// batch), nothing is inserted and a DuplicateBlockTypeError is returned.
func (r *Registry) RegisterAll(specs []Spec, owner Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[string]bool{}
	for _, s := range specs {
		if e, ok := r.entries[s.Name]; ok {
			return DuplicateBlockTypeError{Name: s.Name, Module: e.owner.ModuleName()}
		}
		if seen[s.Name] {
			return DuplicateBlockTypeError{Name: s.Name, Module: owner.ModuleName()}
		}
		seen[s.Name] = true
	}
	for _, s := range specs {
		r.entries[s.Name] = entry{spec: s, owner: owner}
	}
	return nil
}

// Deregister removes the named entries. Only the module loader calls this,
// after verifying no live instances remain.
func (r *Registry) Deregister(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		delete(r.entries, n)
	}
}

// Spec returns the registered spec for a type name.
func (r *Registry) Spec(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.spec, ok
}

// Specs returns every registered spec, sorted by type name.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]Spec, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e.spec)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Instantiate looks up a block type by name, builds an instance via its
// factory and constructs the provided configuration into it. The owning
// module's live-instance count is incremented; Close on the returned
// instance decrements it.
func (r *Registry) Instantiate(typeName string, conf Config) (*Instance, error) {
	r.mu.RLock()
	e, ok := r.entries[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, UnknownBlockTypeError{typeName}
	}

	b := e.spec.Creator()
	if conf != nil {
		if err := conf.Construct(b); err != nil {
			return nil, err
		}
	}
	if ini, ok := b.(Initializer); ok {
		if err := ini.Init(); err != nil {
			return nil, err
		}
	}
	e.owner.Acquire()
	return &Instance{Type: typeName, Spec: e.spec, Block: b, owner: e.owner}, nil
}

// Instance is one live block: the constructed Block plus its registry spec
// and owner bookkeeping. Name is assigned by the graph builder.
type Instance struct {
	Name  string
	Type  string
	Spec  Spec
	Block Block

	owner  Owner
	closed bool
}

// Close runs the block's optional teardown hook and releases the owning
// module's reference. It is idempotent.
func (i *Instance) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	var err error
	if c, ok := i.Block.(Closer); ok {
		err = c.Close()
	}
	if i.owner != nil {
		i.owner.Release()
	}
	return err
}
