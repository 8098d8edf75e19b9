// Package block defines the boundary every processing block implements and
// the registry mapping block type names to factories. The engine depends
// only on the interfaces here, never on concrete block types.
package block

import (
	"fmt"

	"github.com/sofia-silvestri/KappaLibrary/data"
)

// Direction marks a port as consuming or producing values.
type Direction uint8

const (
	// Input ports consume values delivered by a connection.
	Input Direction = iota + 1
	// Output ports produce values fanned out to connected inputs.
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Port is one named, directioned endpoint in a block's declared schema. The
// descriptor is fixed once the block type is registered.
type Port struct {
	Name      string
	Direction Direction
	Type      data.Descriptor
	MaxFanOut int // outputs only, 0 means unlimited
}

// Block is the per-step transformation every processing block implements.
// Step receives one value per input port, keyed by port name, and returns
// one value per output port it produced this step. Inputs the scheduler has
// no value for are absent from the map; outputs a block chooses not to
// produce are simply omitted.
type Block interface {
	Step(in map[string]data.Value) (map[string]data.Value, error)
}

// Closer is the optional teardown hook, called once at graph destruction.
type Closer interface {
	Close() error
}

// Initializer is the optional hook called after the block's configuration
// has been constructed, before the graph starts.
type Initializer interface {
	Init() error
}

// Describable lets a block type surface help text for the CLI.
type Describable interface {
	Description() string
	SampleConfig() string
}

// Creator builds an unconfigured block instance. The registry constructs the
// declared configuration into it afterwards.
type Creator func() Block

// Spec is one registry entry: a block type name, its fixed ordered port
// schema, the missing-input policy and the factory producing instances.
type Spec struct {
	Name        string
	Description string
	Ports       []Port
	// Tolerant blocks are skipped when a required input has no value yet;
	// eager blocks (the default) stall the step up to the scheduler budget.
	Tolerant bool
	Creator  Creator
}

// Inputs returns the spec's input ports in declaration order.
func (s Spec) Inputs() []Port {
	ports := make([]Port, 0, len(s.Ports))
	for _, p := range s.Ports {
		if p.Direction == Input {
			ports = append(ports, p)
		}
	}
	return ports
}

// Outputs returns the spec's output ports in declaration order.
func (s Spec) Outputs() []Port {
	ports := make([]Port, 0, len(s.Ports))
	for _, p := range s.Ports {
		if p.Direction == Output {
			ports = append(ports, p)
		}
	}
	return ports
}

// Port looks up a declared port by name.
func (s Spec) Port(name string) (Port, bool) {
	for _, p := range s.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// UnknownBlockTypeError is returned when instantiating a type name no loaded
// module provides.
type UnknownBlockTypeError struct {
	Name string
}

func (e UnknownBlockTypeError) Error() string {
	return fmt.Sprintf("block type '%s' not found in registry", e.Name)
}

// DuplicateBlockTypeError is returned when a module declares a type name an
// earlier module already registered.
type DuplicateBlockTypeError struct {
	Name   string
	Module string
}

func (e DuplicateBlockTypeError) Error() string {
	return fmt.Sprintf("block type '%s' already registered by module '%s'", e.Name, e.Module)
}
