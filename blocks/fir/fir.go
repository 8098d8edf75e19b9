// Package fir provides a finite impulse response filter block operating on
// float64 frames.
package fir

import (
	"fmt"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/blocks"
	"github.com/sofia-silvestri/KappaLibrary/data"
)

const (
	sampleConfig = `    type: fir
    coefficients: [0.25, 0.5, 0.25]`

	description = "convolves each float64 frame with the configured FIR coefficients"
)

var _ block.Initializer = &Filter{}

// Filter convolves the incoming frame with its coefficient taps. Each frame
// is filtered independently: the convolution window starts at the frame
// boundary.
type Filter struct {
	Coefficients []float64 `json:"coefficients" doc:"the filter taps, first tap applies to the current sample"`
}

func init() {
	blocks.Add(block.Spec{
		Name:        "fir",
		Description: description,
		Ports: []block.Port{
			{Name: "in", Direction: block.Input, Type: data.Float64Seq()},
			{Name: "out", Direction: block.Output, Type: data.Float64Seq()},
		},
		Creator: func() block.Block { return &Filter{} },
	})
}

// Description for fir block
func (f *Filter) Description() string {
	return description
}

// SampleConfig for fir block
func (f *Filter) SampleConfig() string {
	return sampleConfig
}

// Init satisfies block.Initializer.
func (f *Filter) Init() error {
	if len(f.Coefficients) == 0 {
		return fmt.Errorf("fir filter declares no coefficients")
	}
	return nil
}

// Step satisfies block.Block.
func (f *Filter) Step(in map[string]data.Value) (map[string]data.Value, error) {
	input := in["in"].Floats()
	if len(input) == 0 {
		return nil, fmt.Errorf("empty input frame")
	}

	output := make([]float64, len(input))
	for n := range input {
		var acc float64
		for k, c := range f.Coefficients {
			if n >= k {
				acc += c * input[n-k]
			}
		}
		output[n] = acc
	}

	v, err := data.New(data.Float64Seq(), output)
	if err != nil {
		return nil, err
	}
	return map[string]data.Value{"out": v}, nil
}
