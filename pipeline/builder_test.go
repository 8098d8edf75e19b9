package pipeline

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/data"
	"github.com/sofia-silvestri/KappaLibrary/pipe"
)

// seqSource plays back a configured list of float32 samples, one per step,
// and produces nothing once the list is exhausted.
type seqSource struct {
	Values []float64 `json:"values"`
	i      int
}

func (s *seqSource) Step(in map[string]data.Value) (map[string]data.Value, error) {
	if s.i >= len(s.Values) {
		return nil, nil
	}
	v := data.MustNew(data.Float32(), s.Values[s.i])
	s.i++
	return map[string]data.Value{"out": v}, nil
}

// gainBlock multiplies a float32 scalar by a configured factor.
type gainBlock struct {
	Factor float64 `json:"factor"`
}

func (g *gainBlock) Step(in map[string]data.Value) (map[string]data.Value, error) {
	v := data.MustNew(data.Float32(), in["in"].Float()*g.Factor)
	return map[string]data.Value{"out": v}, nil
}

// captureSink records every float scalar it receives.
type captureSink struct {
	mu  sync.Mutex
	got []float64
}

func (c *captureSink) Step(in map[string]data.Value) (map[string]data.Value, error) {
	c.mu.Lock()
	c.got = append(c.got, in["in"].Float())
	c.mu.Unlock()
	return nil, nil
}

func (c *captureSink) samples() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]float64(nil), c.got...)
}

// constSource emits the same float64 scalar every step.
type constSource struct {
	Value float64 `json:"value"`
}

func (c *constSource) Step(in map[string]data.Value) (map[string]data.Value, error) {
	return map[string]data.Value{"out": data.MustNew(data.Float64(), c.Value)}, nil
}

// vecSource emits the same float64 sequence every step.
type vecSource struct{}

func (v *vecSource) Step(in map[string]data.Value) (map[string]data.Value, error) {
	return map[string]data.Value{"out": data.MustNew(data.Float64Seq(), []float64{1, 2, 3})}, nil
}

// vecCapture records the first sequence it receives; when Mutate is set it
// scribbles on the received storage afterwards.
type vecCapture struct {
	Mutate bool `json:"mutate"`

	mu  sync.Mutex
	got [][]float64
}

func (v *vecCapture) Step(in map[string]data.Value) (map[string]data.Value, error) {
	fs := in["in"].Floats()
	v.mu.Lock()
	v.got = append(v.got, append([]float64(nil), fs...))
	v.mu.Unlock()
	if v.Mutate {
		for i := range fs {
			fs[i] = -99
		}
	}
	return nil, nil
}

func (v *vecCapture) frames() [][]float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.got
}

// boomBlock fails on a configured step.
type boomBlock struct {
	FailOn int `json:"fail_on"`
	n      int
}

func (b *boomBlock) Step(in map[string]data.Value) (map[string]data.Value, error) {
	b.n++
	if b.n >= b.FailOn {
		return nil, errors.New("boom")
	}
	return map[string]data.Value{"out": data.MustNew(data.Float64(), 1.0)}, nil
}

// rogueSource declares a float32 scalar output "out" but emits a float64
// sequence, on an undeclared port name when one is configured.
type rogueSource struct {
	Port string `json:"port"`
}

func (r *rogueSource) Step(in map[string]data.Value) (map[string]data.Value, error) {
	port := r.Port
	if port == "" {
		port = "out"
	}
	return map[string]data.Value{port: data.MustNew(data.Float64Seq(), []float64{1, 2})}, nil
}

func f32Port(name string, dir block.Direction) block.Port {
	return block.Port{Name: name, Direction: dir, Type: data.Float32()}
}

func testSpecs() []block.Spec {
	return []block.Spec{
		{
			Name:    "seq_source",
			Ports:   []block.Port{f32Port("out", block.Output)},
			Creator: func() block.Block { return &seqSource{} },
		},
		{
			Name:    "gain",
			Ports:   []block.Port{f32Port("in", block.Input), f32Port("out", block.Output)},
			Creator: func() block.Block { return &gainBlock{} },
		},
		{
			Name:    "capture",
			Ports:   []block.Port{f32Port("in", block.Input)},
			Creator: func() block.Block { return &captureSink{} },
		},
		{
			Name: "const_source",
			Ports: []block.Port{
				{Name: "out", Direction: block.Output, Type: data.Float64()},
			},
			Creator: func() block.Block { return &constSource{} },
		},
		{
			Name: "f64_capture",
			Ports: []block.Port{
				{Name: "in", Direction: block.Input, Type: data.Float64()},
			},
			Creator: func() block.Block { return &captureSink{} },
		},
		{
			Name: "tolerant_capture",
			Ports: []block.Port{
				{Name: "in", Direction: block.Input, Type: data.Float64()},
			},
			Tolerant: true,
			Creator:  func() block.Block { return &captureSink{} },
		},
		{
			Name: "vec_source",
			Ports: []block.Port{
				{Name: "out", Direction: block.Output, Type: data.Float64Seq()},
			},
			Creator: func() block.Block { return &vecSource{} },
		},
		{
			Name: "vec_capture",
			Ports: []block.Port{
				{Name: "in", Direction: block.Input, Type: data.Float64Seq()},
			},
			Creator: func() block.Block { return &vecCapture{} },
		},
		{
			Name: "boom",
			Ports: []block.Port{
				{Name: "out", Direction: block.Output, Type: data.Float64()},
			},
			Creator: func() block.Block { return &boomBlock{} },
		},
		{
			Name:    "rogue_source",
			Ports:   []block.Port{f32Port("out", block.Output)},
			Creator: func() block.Block { return &rogueSource{} },
		},
		block.MockSpec("pass"),
	}
}

func testRegistry(t *testing.T) (*block.Registry, *block.MockOwner) {
	t.Helper()
	owner := &block.MockOwner{Module: "testmod"}
	r := block.NewRegistry()
	if err := r.RegisterAll(testSpecs(), owner); err != nil {
		t.Fatalf("unable to register test specs, %s", err)
	}
	return r, owner
}

func TestBuild(t *testing.T) {
	r, owner := testRegistry(t)
	g, err := Build(r, Description{
		Name: "gain2",
		Blocks: []BlockDecl{
			{Name: "src", Type: "seq_source", Config: block.Config{"values": []float64{1, 2, 3}}},
			{Name: "amp", Type: "gain", Config: block.Config{"factor": 2.0}},
			{Name: "out", Type: "capture"},
		},
		Connections: []ConnDecl{
			{From: "src/out", To: "amp/in"},
			{From: "amp/out", To: "out/in"},
		},
	})
	if err != nil {
		t.Fatalf("build failed, %s", err)
	}

	wantOrder := []string{"src", "amp", "out"}
	if !reflect.DeepEqual(g.Blocks(), wantOrder) {
		t.Errorf("execution order, expected %v, got %v", wantOrder, g.Blocks())
	}
	if owner.Live != 3 {
		t.Errorf("expected 3 live instances, got %d", owner.Live)
	}
	if inst, ok := g.Instance("amp"); !ok {
		t.Errorf("expected instance 'amp' to exist")
	} else if gb := inst.Block.(*gainBlock); gb.Factor != 2.0 {
		t.Errorf("config construction, expected factor 2.0, got %f", gb.Factor)
	}

	if err := g.Close(); err != nil {
		t.Errorf("close failed, %s", err)
	}
	if owner.Live != 0 {
		t.Errorf("expected 0 live instances after close, got %d", owner.Live)
	}
}

func TestBuildBatchErrors(t *testing.T) {
	r, owner := testRegistry(t)
	_, err := Build(r, Description{
		Blocks: []BlockDecl{
			{Name: "src", Type: "seq_source"},
			{Name: "src", Type: "seq_source"},
			{Name: "huh", Type: "no_such_type"},
			{Name: "pt", Type: "pass"},
		},
		Connections: []ConnDecl{
			{From: "src/out", To: "pt/in"},     // float32 -> float64
			{From: "ghost/out", To: "pt/in"},   // unknown block
			{From: "src/nope", To: "pt/in"},    // unknown port
			{From: "src/out", To: "pt/out"},    // wrong direction
		},
	})
	if err == nil {
		t.Fatalf("expected build to fail")
	}
	errs, ok := err.(Errors)
	if !ok {
		t.Fatalf("expected Errors batch, got %T", err)
	}
	if len(errs) != 6 {
		t.Errorf("expected 6 collected errors, got %d: %s", len(errs), errs)
	}

	var dup, unknown, mismatch int
	unresolved := 0
	for _, e := range errs {
		switch e.(type) {
		case DuplicateBlockNameError:
			dup++
		case block.UnknownBlockTypeError:
			unknown++
		case pipe.TypeMismatchError:
			mismatch++
		case UnresolvedPortError:
			unresolved++
		}
	}
	if dup != 1 || unknown != 1 || mismatch != 1 || unresolved != 3 {
		t.Errorf("error kinds, expected 1/1/1/3, got dup=%d unknown=%d mismatch=%d unresolved=%d",
			dup, unknown, mismatch, unresolved)
	}

	if owner.Live != 0 {
		t.Errorf("failed build must tear down instances, %d still live", owner.Live)
	}
}

func TestBuildIllegalCycle(t *testing.T) {
	r, _ := testRegistry(t)
	desc := Description{
		Blocks: []BlockDecl{
			{Name: "a", Type: "pass"},
			{Name: "b", Type: "pass"},
		},
		Connections: []ConnDecl{
			{From: "a/out", To: "b/in"},
			{From: "b/out", To: "a/in"},
		},
	}

	_, err := Build(r, desc)
	if err == nil {
		t.Fatalf("expected cycle to fail the build")
	}
	errs := err.(Errors)
	cyc, ok := errs[0].(IllegalCycleError)
	if !ok {
		t.Fatalf("expected IllegalCycleError, got %T", errs[0])
	}
	if !reflect.DeepEqual(cyc.Blocks, []string{"a", "b"}) {
		t.Errorf("cycle members, expected [a b], got %v", cyc.Blocks)
	}

	// the identical graph builds once the back edge is tagged feedback
	desc.Connections[1].Feedback = true
	desc.Connections[1].Initial = 0.0
	g, err := Build(r, desc)
	if err != nil {
		t.Fatalf("feedback-tagged cycle should build, got %s", err)
	}
	g.Close()
}

func TestBuildFeedbackRequiresInitial(t *testing.T) {
	r, _ := testRegistry(t)
	_, err := Build(r, Description{
		Blocks: []BlockDecl{
			{Name: "a", Type: "pass"},
			{Name: "b", Type: "pass"},
		},
		Connections: []ConnDecl{
			{From: "a/out", To: "b/in"},
			{From: "b/out", To: "a/in", Feedback: true},
		},
	})
	if err == nil {
		t.Fatalf("expected build to fail")
	}
	errs := err.(Errors)
	if _, ok := errs[0].(MissingFeedbackInitialError); !ok {
		t.Errorf("expected MissingFeedbackInitialError, got %T", errs[0])
	}
}

func TestInitialValueCoercion(t *testing.T) {
	data32 := data.Float32()
	v, err := initialValue(data32, 1.5)
	if err != nil {
		t.Fatalf("got error: %s", err)
	}
	if v.Float() != 1.5 {
		t.Errorf("expected 1.5, got %f", v.Float())
	}

	seq, err := initialValue(data.Float64Seq(), []interface{}{1.0, 2.0})
	if err != nil {
		t.Fatalf("got error: %s", err)
	}
	if !reflect.DeepEqual(seq.Floats(), []float64{1, 2}) {
		t.Errorf("expected [1 2], got %v", seq.Floats())
	}

	if _, err := initialValue(data32, struct{}{}); err == nil {
		t.Errorf("expected error for unusable initial value")
	}
}
