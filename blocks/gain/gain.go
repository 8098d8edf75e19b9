// Package gain provides a float32 scalar multiplier block.
package gain

import (
	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/blocks"
	"github.com/sofia-silvestri/KappaLibrary/data"
)

const (
	sampleConfig = `    type: gain
    factor: 2.0`

	description = "multiplies a float32 scalar by a constant factor"
)

var _ block.Block = &Gain{}

// Gain scales every sample by Factor.
type Gain struct {
	Factor float64 `json:"factor" doc:"the constant the input sample is multiplied by"`
}

func init() {
	blocks.Add(block.Spec{
		Name:        "gain",
		Description: description,
		Ports: []block.Port{
			{Name: "in", Direction: block.Input, Type: data.Float32()},
			{Name: "out", Direction: block.Output, Type: data.Float32()},
		},
		Creator: func() block.Block { return &Gain{Factor: 1.0} },
	})
}

// Description for gain block
func (g *Gain) Description() string {
	return description
}

// SampleConfig for gain block
func (g *Gain) SampleConfig() string {
	return sampleConfig
}

// Step satisfies block.Block.
func (g *Gain) Step(in map[string]data.Value) (map[string]data.Value, error) {
	v, err := data.New(data.Float32(), in["in"].Float()*g.Factor)
	if err != nil {
		return nil, err
	}
	return map[string]data.Value{"out": v}, nil
}
