package generator

import (
	"math"
	"reflect"
	"testing"

	"github.com/sofia-silvestri/KappaLibrary/data"
)

func steps(t *testing.T, g *Generator, n int) []float64 {
	t.Helper()
	var got []float64
	for i := 0; i < n; i++ {
		out, err := g.Step(nil)
		if err != nil {
			t.Fatalf("got error: %s", err)
		}
		if out == nil {
			break
		}
		got = append(got, out["out"].Float())
	}
	return got
}

func TestGeneratorWaveforms(t *testing.T) {
	testData := []struct {
		gen  *Generator
		want []float64
	}{
		{
			&Generator{Waveform: "constant", Amplitude: 2.5},
			[]float64{2.5, 2.5, 2.5},
		},
		{
			&Generator{Waveform: "ramp", Amplitude: 2.0},
			[]float64{0, 2, 4},
		},
		{
			&Generator{Waveform: "sequence", Values: []float64{1, 2}},
			[]float64{1, 2},
		},
		{
			&Generator{Waveform: "sequence", Values: []float64{1, 2}, Repeat: true},
			[]float64{1, 2, 1},
		},
		{
			&Generator{Waveform: "constant", Amplitude: 1.0, Offset: 10},
			[]float64{11, 11, 11},
		},
	}

	for _, d := range testData {
		if err := d.gen.Init(); err != nil {
			t.Fatalf("init failed, %s", err)
		}
		got := steps(t, d.gen, len(d.want)+1)
		if d.gen.Waveform != "sequence" || d.gen.Repeat {
			got = got[:len(d.want)]
		}
		if !reflect.DeepEqual(got, d.want) {
			t.Errorf("%s generator, expected %v, got %v", d.gen.Waveform, d.want, got)
		}
	}
}

func TestGeneratorSine(t *testing.T) {
	g := &Generator{Waveform: "sine", Amplitude: 1.0, Frequency: 0.25}
	got := steps(t, g, 4)
	want := []float64{0, 1, 0, -1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-6 {
			t.Errorf("sine sample %d, expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestGeneratorInitRejectsBadConfig(t *testing.T) {
	if err := (&Generator{Waveform: "triangle"}).Init(); err == nil {
		t.Errorf("expected unknown waveform to fail init")
	}
	if err := (&Generator{Waveform: "sequence"}).Init(); err == nil {
		t.Errorf("expected empty sequence to fail init")
	}
}

func TestFrameGen(t *testing.T) {
	f := &FrameGen{Size: 4, Waveform: "constant", Amplitude: 3.0}
	if err := f.Init(); err != nil {
		t.Fatalf("init failed, %s", err)
	}
	out, err := f.Step(nil)
	if err != nil {
		t.Fatalf("got error: %s", err)
	}
	v := out["out"]
	if !v.Descriptor().Equal(data.Float64Seq()) {
		t.Errorf("expected descriptor %s, got %s", data.Float64Seq().TypeID, v.Descriptor().TypeID)
	}
	want := []float64{3, 3, 3, 3}
	if !reflect.DeepEqual(v.Floats(), want) {
		t.Errorf("expected %v, got %v", want, v.Floats())
	}

	if err := (&FrameGen{Size: 0, Waveform: "sine"}).Init(); err == nil {
		t.Errorf("expected zero frame size to fail init")
	}
}
