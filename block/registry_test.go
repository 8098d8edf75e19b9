package block

import (
	"reflect"
	"testing"

	"github.com/sofia-silvestri/KappaLibrary/data"
)

func TestRegisterAllAtomic(t *testing.T) {
	r := NewRegistry()
	first := &MockOwner{Module: "first"}
	if err := r.RegisterAll([]Spec{MockSpec("copy")}, first); err != nil {
		t.Fatalf("unexpected RegisterAll() error, %s", err)
	}

	second := &MockOwner{Module: "second"}
	err := r.RegisterAll([]Spec{MockSpec("shift"), MockSpec("copy")}, second)
	if err == nil {
		t.Fatal("expected DuplicateBlockTypeError, got nil")
	}
	want := DuplicateBlockTypeError{Name: "copy", Module: "first"}
	if !reflect.DeepEqual(err, want) {
		t.Errorf("wrong error, expected %v, got %v", want, err)
	}
	// nothing from the failed batch may leak into the registry
	if _, ok := r.Spec("shift"); ok {
		t.Error("registry mutated by failed batch, 'shift' was registered")
	}
	if len(r.Specs()) != 1 {
		t.Errorf("expected 1 registered spec, got %d", len(r.Specs()))
	}
}

func TestRegisterAllSelfCollision(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterAll([]Spec{MockSpec("dup"), MockSpec("dup")}, &MockOwner{Module: "m"})
	if err == nil {
		t.Fatal("expected error for batch with internal collision, got nil")
	}
	if len(r.Specs()) != 0 {
		t.Errorf("expected empty registry, got %d specs", len(r.Specs()))
	}
}

func TestInstantiate(t *testing.T) {
	r := NewRegistry()
	owner := &MockOwner{Module: "m"}
	if err := r.RegisterAll([]Spec{MockSpec("copy")}, owner); err != nil {
		t.Fatalf("unexpected RegisterAll() error, %s", err)
	}

	inst, err := r.Instantiate("copy", nil)
	if err != nil {
		t.Fatalf("unexpected Instantiate() error, %s", err)
	}
	if owner.Live != 1 {
		t.Errorf("expected 1 live instance on owner, got %d", owner.Live)
	}

	in := map[string]data.Value{"in": data.MustNew(data.Float64(), 1.5)}
	out, err := inst.Block.Step(in)
	if err != nil {
		t.Fatalf("unexpected Step() error, %s", err)
	}
	if got := out["in"].Float(); got != 1.5 {
		t.Errorf("wrong passthrough value, expected 1.5, got %v", got)
	}

	if err := inst.Close(); err != nil {
		t.Fatalf("unexpected Close() error, %s", err)
	}
	if err := inst.Close(); err != nil {
		t.Fatalf("Close() not idempotent, %s", err)
	}
	if owner.Live != 0 {
		t.Errorf("expected 0 live instances after close, got %d", owner.Live)
	}
}

func TestInstantiateUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Instantiate("nope", nil)
	want := UnknownBlockTypeError{"nope"}
	if !reflect.DeepEqual(err, want) {
		t.Errorf("wrong error, expected %v, got %v", want, err)
	}
}

type configured struct {
	Factor float64 `json:"factor"`
	inited bool
}

func (c *configured) Step(in map[string]data.Value) (map[string]data.Value, error) {
	return nil, nil
}

func (c *configured) Init() error {
	c.inited = true
	return nil
}

func TestInstantiateConstructsConfig(t *testing.T) {
	r := NewRegistry()
	spec := Spec{Name: "cfg", Creator: func() Block { return &configured{} }}
	if err := r.RegisterAll([]Spec{spec}, &MockOwner{Module: "m"}); err != nil {
		t.Fatalf("unexpected RegisterAll() error, %s", err)
	}

	inst, err := r.Instantiate("cfg", Config{"factor": 2.5})
	if err != nil {
		t.Fatalf("unexpected Instantiate() error, %s", err)
	}
	c := inst.Block.(*configured)
	if c.Factor != 2.5 {
		t.Errorf("config not constructed, expected factor 2.5, got %v", c.Factor)
	}
	if !c.inited {
		t.Error("Init() hook was not called")
	}
}

func TestSpecPorts(t *testing.T) {
	s := MockSpec("copy")
	if got := len(s.Inputs()); got != 1 {
		t.Errorf("expected 1 input, got %d", got)
	}
	if got := len(s.Outputs()); got != 1 {
		t.Errorf("expected 1 output, got %d", got)
	}
	p, ok := s.Port("out")
	if !ok || p.Direction != Output {
		t.Errorf("Port(out) lookup failed, got %+v ok=%t", p, ok)
	}
}
