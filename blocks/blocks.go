// Package blocks is the catalog of builtin block types. Each subpackage
// registers its specs here from an init hook; importing blocks/all pulls in
// the whole set. Module() wraps the catalog so the builtins load through the
// same registration path as a dynamically loaded library.
package blocks

import (
	"sync"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/module"
)

// ModuleName is the builtin catalog's module name in the loader.
const ModuleName = "builtin"

var (
	mu    sync.Mutex
	specs []block.Spec
)

// Add registers a builtin block spec with the catalog.
func Add(s block.Spec) {
	mu.Lock()
	specs = append(specs, s)
	mu.Unlock()
}

// Module packages the catalog as a loadable module.
func Module() *module.Plugin {
	mu.Lock()
	defer mu.Unlock()
	return &module.Plugin{
		Info: module.Info{
			Name:        ModuleName,
			Description: "builtin signal sources, filters, transforms and interface adapters",
			Author:      "Sofia Silvestri",
			Version:     "1.0.0",
			ABI:         module.ABIVersion,
		},
		Blocks: append([]block.Spec(nil), specs...),
	}
}
