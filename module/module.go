// Package module loads dynamic libraries, validates their ABI contract and
// turns the blocks they export into registry entries. A module stays loaded
// for as long as any graph holds instances built from it.
package module

import (
	"fmt"

	version "github.com/hashicorp/go-version"

	"github.com/sofia-silvestri/KappaLibrary/block"
)

const (
	// ABIVersion is the binary interface version this engine speaks. A
	// loaded module's declared ABI stamp must satisfy ABIConstraint.
	ABIVersion = "1.0.0"

	// ABIConstraint accepts any module built against the same major ABI.
	ABIConstraint = ">= 1.0.0, < 2.0.0"

	// SymbolName is the exported variable a dynamic library must provide.
	SymbolName = "KappaModule"
)

// Info is the metadata a module declares about itself.
type Info struct {
	Name        string
	Description string
	Author      string
	ReleaseDate string
	Version     string
	ABI         string
}

// Plugin is the value a module exports under SymbolName: its metadata plus
// the block specs it provides. In-process modules (the builtin catalog,
// tests) hand the same structure straight to Loader.Register.
type Plugin struct {
	Info   Info
	Blocks []block.Spec
}

// AbiIncompatibleError is returned when a module's ABI stamp does not
// satisfy the engine's constraint. The module is not registered.
type AbiIncompatibleError struct {
	Module string
	ABI    string
}

func (e AbiIncompatibleError) Error() string {
	return fmt.Sprintf("module '%s' declares ABI '%s', engine requires '%s'", e.Module, e.ABI, ABIConstraint)
}

// LoadError wraps an underlying I/O or symbol failure while loading a
// dynamic library.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("unable to load module at '%s', %s", e.Path, e.Err)
}

// ModuleBusyError is returned when unloading a module that still has live
// block instances. Unload is refused, never queued.
type ModuleBusyError struct {
	Name string
	Live int
}

func (e ModuleBusyError) Error() string {
	return fmt.Sprintf("module '%s' is busy, %d live block instance(s)", e.Name, e.Live)
}

// NotLoadedError is returned when unloading a module that is not loaded,
// whether it never was or was already unloaded.
type NotLoadedError struct {
	Name string
}

func (e NotLoadedError) Error() string {
	return fmt.Sprintf("module '%s' is not loaded", e.Name)
}

// checkABI validates a declared ABI stamp against the engine constraint.
func checkABI(info Info) error {
	v, err := version.NewVersion(info.ABI)
	if err != nil {
		return AbiIncompatibleError{Module: info.Name, ABI: info.ABI}
	}
	constraint, err := version.NewConstraint(ABIConstraint)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return AbiIncompatibleError{Module: info.Name, ABI: info.ABI}
	}
	return nil
}
