// Package generator provides the builtin signal sources: a float32 scalar
// generator and a float64 frame generator for the vector-processing blocks.
package generator

import (
	"fmt"
	"math"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/blocks"
	"github.com/sofia-silvestri/KappaLibrary/data"
)

const (
	sampleConfig = `    type: generator
    waveform: sine
    amplitude: 1.0
    frequency: 0.1`

	description = "emits one float32 sample per step: constant, sine, ramp or sequence playback"
)

var _ block.Initializer = &Generator{}

// Generator produces one sample per step according to the configured
// waveform. The frequency is in cycles per step.
type Generator struct {
	Waveform  string    `json:"waveform" doc:"one of constant, sine, ramp, sequence"`
	Amplitude float64   `json:"amplitude" doc:"peak amplitude, default 1.0"`
	Frequency float64   `json:"frequency" doc:"cycles per step, sine only"`
	Offset    float64   `json:"offset" doc:"constant added to every sample"`
	Values    []float64 `json:"values" doc:"samples to play back, sequence only"`
	Repeat    bool      `json:"repeat" doc:"loop the sequence instead of going silent"`

	n int
}

func init() {
	blocks.Add(block.Spec{
		Name:        "generator",
		Description: description,
		Ports: []block.Port{
			{Name: "out", Direction: block.Output, Type: data.Float32()},
		},
		Creator: func() block.Block { return &Generator{Waveform: "constant", Amplitude: 1.0} },
	})
}

// Description for generator block
func (g *Generator) Description() string {
	return description
}

// SampleConfig for generator block
func (g *Generator) SampleConfig() string {
	return sampleConfig
}

// Init satisfies block.Initializer.
func (g *Generator) Init() error {
	switch g.Waveform {
	case "constant", "sine", "ramp":
		return nil
	case "sequence":
		if len(g.Values) == 0 {
			return fmt.Errorf("sequence generator declares no values")
		}
		return nil
	default:
		return fmt.Errorf("unknown waveform '%s'", g.Waveform)
	}
}

// Step satisfies block.Block.
func (g *Generator) Step(in map[string]data.Value) (map[string]data.Value, error) {
	var sample float64
	switch g.Waveform {
	case "constant":
		sample = g.Amplitude
	case "sine":
		sample = g.Amplitude * math.Sin(2*math.Pi*g.Frequency*float64(g.n))
	case "ramp":
		sample = g.Amplitude * float64(g.n)
	case "sequence":
		if g.n >= len(g.Values) {
			if !g.Repeat {
				return nil, nil
			}
			g.n = 0
		}
		sample = g.Values[g.n]
	}
	g.n++
	v, err := data.New(data.Float32(), sample+g.Offset)
	if err != nil {
		return nil, err
	}
	return map[string]data.Value{"out": v}, nil
}
