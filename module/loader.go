package module

import (
	"fmt"
	"plugin"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/log"
)

// Handle identifies one loaded module. It doubles as the block.Owner of the
// module's registry entries, counting live instances so unload can be
// refused while blocks built from this module still exist.
type Handle struct {
	info   Info
	path   string // empty for in-process modules
	blocks []string
	refs   int32
}

// Info returns the module's declared metadata.
func (h *Handle) Info() Info { return h.info }

// ModuleName satisfies block.Owner.
func (h *Handle) ModuleName() string { return h.info.Name }

// Acquire satisfies block.Owner.
func (h *Handle) Acquire() { atomic.AddInt32(&h.refs, 1) }

// Release satisfies block.Owner.
func (h *Handle) Release() { atomic.AddInt32(&h.refs, -1) }

// Live returns the number of live block instances referencing this module.
func (h *Handle) Live() int { return int(atomic.LoadInt32(&h.refs)) }

// Blocks returns the type names this module registered.
func (h *Handle) Blocks() []string { return append([]string(nil), h.blocks...) }

// Loader owns the module table and the block registry it populates. Loads
// and unloads are mutually exclusive; neither runs during an active step
// because unload is refused while any instance is live.
type Loader struct {
	mu       sync.Mutex
	registry *block.Registry
	modules  map[string]*Handle

	// open is swappable so tests can load modules without building shared
	// libraries.
	open func(path string) (*Plugin, error)
}

// NewLoader returns a Loader populating the given registry.
func NewLoader(reg *block.Registry) *Loader {
	return &Loader{
		registry: reg,
		modules:  map[string]*Handle{},
		open:     openPlugin,
	}
}

// openPlugin resolves SymbolName from a shared library built with
// -buildmode=plugin. The Go runtime keeps the library mapped for the life of
// the process; Unload drops the registry entries and the module table entry,
// which is the reclaimable part.
func openPlugin(path string) (*Plugin, error) {
	lib, err := plugin.Open(path)
	if err != nil {
		return nil, LoadError{Path: path, Err: err}
	}
	sym, err := lib.Lookup(SymbolName)
	if err != nil {
		return nil, LoadError{Path: path, Err: err}
	}
	p, ok := sym.(*Plugin)
	if !ok {
		return nil, LoadError{Path: path, Err: fmt.Errorf("symbol %s has type %T, expected *module.Plugin", SymbolName, sym)}
	}
	return p, nil
}

// Load opens the dynamic library at path, verifies its ABI stamp and
// registers every block it enumerates. Registration is all-or-nothing: a
// single colliding type name rejects the module wholesale.
func (l *Loader) Load(path string) (*Handle, error) {
	p, err := l.open(path)
	if err != nil {
		return nil, err
	}
	h, err := l.register(p, path)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Register installs an in-process module: same validation and all-or-nothing
// registration as Load, without a dynamic library behind it.
func (l *Loader) Register(p *Plugin) (*Handle, error) {
	return l.register(p, "")
}

func (l *Loader) register(p *Plugin, path string) (*Handle, error) {
	if p.Info.Name == "" {
		return nil, LoadError{Path: path, Err: fmt.Errorf("module declares no name")}
	}
	if err := checkABI(p.Info); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.modules[p.Info.Name]; ok {
		return nil, LoadError{Path: path, Err: fmt.Errorf("module '%s' already loaded", p.Info.Name)}
	}

	h := &Handle{info: p.Info, path: path}
	for _, s := range p.Blocks {
		h.blocks = append(h.blocks, s.Name)
	}
	if err := l.registry.RegisterAll(p.Blocks, h); err != nil {
		return nil, err
	}
	l.modules[p.Info.Name] = h

	log.With("module", p.Info.Name).
		With("version", p.Info.Version).
		With("blocks", len(p.Blocks)).
		Infoln("module loaded")
	return h, nil
}

// Unload removes the named module's registry entries and forgets it. It
// fails with ModuleBusyError while live block instances reference the
// module, and with NotLoadedError for unknown or already-unloaded names;
// either way the registry state of unrelated modules is untouched.
func (l *Loader) Unload(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.modules[name]
	if !ok {
		return NotLoadedError{name}
	}
	if live := h.Live(); live > 0 {
		return ModuleBusyError{Name: name, Live: live}
	}
	l.registry.Deregister(h.blocks)
	delete(l.modules, name)

	log.With("module", name).Infoln("module unloaded")
	return nil
}

// Lookup returns the handle for a loaded module.
func (l *Loader) Lookup(name string) (*Handle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.modules[name]
	return h, ok
}

// Modules returns the Info of every loaded module, sorted by name.
func (l *Loader) Modules() []Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	infos := make([]Info, 0, len(l.modules))
	for _, h := range l.modules {
		infos = append(infos, h.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
