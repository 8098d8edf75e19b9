package ekf

import (
	"math"
	"reflect"
	"testing"

	"github.com/sofia-silvestri/KappaLibrary/data"
)

func newTestFilter(t *testing.T, initial []float64) *Filter {
	t.Helper()
	f := &Filter{
		InitialState:     initial,
		SamplingTime:     1.0,
		ProcessNoise:     [][]float64{{0.1, 0}, {0, 0.01}},
		MeasurementNoise: 0.01,
	}
	if err := f.Init(); err != nil {
		t.Fatalf("init failed, %s", err)
	}
	return f
}

func step(t *testing.T, f *Filter, measurement float64) float64 {
	t.Helper()
	out, err := f.Step(map[string]data.Value{"in": data.MustNew(data.Float64(), measurement)})
	if err != nil {
		t.Fatalf("got error: %s", err)
	}
	return out["out"].Float()
}

func TestFilterTransitionMatrix(t *testing.T) {
	f := &Filter{InitialState: []float64{0, 0, 0}, SamplingTime: 0.5, MeasurementNoise: 0.01}
	if err := f.Init(); err != nil {
		t.Fatalf("init failed, %s", err)
	}
	want := [][]float64{
		{1, 0.5, 0.125},
		{0, 1, 0.5},
		{0, 0, 1},
	}
	if !reflect.DeepEqual(f.transition, want) {
		t.Errorf("expected transition %v, got %v", want, f.transition)
	}
}

func TestFilterConvergesToConstant(t *testing.T) {
	f := newTestFilter(t, []float64{0, 0})

	first := math.Abs(step(t, f, 5.0) - 5.0)
	var last float64
	for i := 0; i < 99; i++ {
		last = step(t, f, 5.0)
		if math.IsNaN(last) || math.IsInf(last, 0) {
			t.Fatalf("estimate diverged, got %f", last)
		}
	}
	if err := math.Abs(last - 5.0); err > 0.05 {
		t.Errorf("expected the estimate to settle at 5.0, got %f", last)
	} else if err >= first {
		t.Errorf("expected the error to shrink, first %f, last %f", first, err)
	}
}

func TestFilterTracksRamp(t *testing.T) {
	f := newTestFilter(t, []float64{0, 0})

	var got float64
	n := 200
	for i := 1; i <= n; i++ {
		got = step(t, f, float64(i))
	}
	if math.Abs(got-float64(n)) > 1.0 {
		t.Errorf("expected position near %d, got %f", n, got)
	}
	if math.Abs(f.state[1]-1.0) > 0.2 {
		t.Errorf("expected velocity estimate near 1.0, got %f", f.state[1])
	}
}

func TestFilterRejectsBadConfig(t *testing.T) {
	if err := (&Filter{SamplingTime: 1}).Init(); err == nil {
		t.Errorf("expected an empty initial state to fail init")
	}
	if err := (&Filter{InitialState: []float64{0}, SamplingTime: 0}).Init(); err == nil {
		t.Errorf("expected a zero sampling time to fail init")
	}
	f := &Filter{
		InitialState: []float64{0, 0},
		SamplingTime: 1,
		ProcessNoise: [][]float64{{0.1}},
	}
	if err := f.Init(); err == nil {
		t.Errorf("expected mismatched process noise dimensions to fail init")
	}
}
