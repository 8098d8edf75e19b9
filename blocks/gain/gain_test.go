package gain

import (
	"testing"

	"github.com/sofia-silvestri/KappaLibrary/data"
)

func TestGainStep(t *testing.T) {
	data32 := data.Float32()
	testData := []struct {
		factor float64
		in     float64
		want   float64
	}{
		{2.0, 1.0, 2.0},
		{2.0, 3.0, 6.0},
		{0.5, 10.0, 5.0},
		{-1.0, 4.0, -4.0},
	}

	for _, d := range testData {
		g := &Gain{Factor: d.factor}
		out, err := g.Step(map[string]data.Value{"in": data.MustNew(data32, d.in)})
		if err != nil {
			t.Fatalf("got error: %s", err)
		}
		if got := out["out"].Float(); got != d.want {
			t.Errorf("gain(%f) of %f, expected %f, got %f", d.factor, d.in, d.want, got)
		}
	}
}
