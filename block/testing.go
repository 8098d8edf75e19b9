package block

import (
	"sync/atomic"

	"github.com/sofia-silvestri/KappaLibrary/data"
)

// MockOwner satisfies Owner for tests that register specs without a loader.
type MockOwner struct {
	Module string
	Live   int32
}

// ModuleName satisfies Owner.
func (m *MockOwner) ModuleName() string { return m.Module }

// Acquire satisfies Owner.
func (m *MockOwner) Acquire() { atomic.AddInt32(&m.Live, 1) }

// Release satisfies Owner.
func (m *MockOwner) Release() { atomic.AddInt32(&m.Live, -1) }

// Passthrough copies every input port's value to the output port of the
// same name. Tests use it wherever a do-nothing block is needed.
type Passthrough struct{}

// Step satisfies Block.
func (p *Passthrough) Step(in map[string]data.Value) (map[string]data.Value, error) {
	out := make(map[string]data.Value, len(in))
	for name, v := range in {
		out[name] = v
	}
	return out, nil
}

// MockSpec builds a passthrough spec with one float64 input "in" and one
// float64 output "out" under the given type name.
func MockSpec(name string) Spec {
	return Spec{
		Name: name,
		Ports: []Port{
			{Name: "in", Direction: Input, Type: data.Float64()},
			{Name: "out", Direction: Output, Type: data.Float64()},
		},
		Creator: func() Block { return &Passthrough{} },
	}
}
