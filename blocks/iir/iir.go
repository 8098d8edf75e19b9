// Package iir provides an infinite impulse response filter block operating
// on float64 frames.
package iir

import (
	"fmt"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/blocks"
	"github.com/sofia-silvestri/KappaLibrary/data"
)

const (
	sampleConfig = `    type: iir
    n_coefficients: [0.5, 0.0]
    d_coefficients: [1.0, -0.5]`

	description = "recursive filter over float64 frames, numerator and denominator coefficient form"
)

var _ block.Initializer = &Filter{}

// Filter applies the difference equation
//
//	y[n] = b[0]x[n] + b[1]x[n-1] + ... - a[1]y[n-1] - a[2]y[n-2] - ...
//
// with b the numerator and a the denominator taps. a[0] is assumed
// normalized to 1 and never applied. Each frame starts from zero state.
type Filter struct {
	Numerator   []float64 `json:"n_coefficients" doc:"numerator (feedforward) taps"`
	Denominator []float64 `json:"d_coefficients" doc:"denominator (feedback) taps, first entry ignored"`
}

func init() {
	blocks.Add(block.Spec{
		Name:        "iir",
		Description: description,
		Ports: []block.Port{
			{Name: "in", Direction: block.Input, Type: data.Float64Seq()},
			{Name: "out", Direction: block.Output, Type: data.Float64Seq()},
		},
		Creator: func() block.Block { return &Filter{} },
	})
}

// Description for iir block
func (f *Filter) Description() string {
	return description
}

// SampleConfig for iir block
func (f *Filter) SampleConfig() string {
	return sampleConfig
}

// Init satisfies block.Initializer.
func (f *Filter) Init() error {
	if len(f.Numerator) == 0 || len(f.Denominator) == 0 {
		return fmt.Errorf("iir filter declares no coefficients")
	}
	if len(f.Numerator) != len(f.Denominator) {
		return fmt.Errorf("iir filter wants matching coefficient lengths, got %d numerator and %d denominator",
			len(f.Numerator), len(f.Denominator))
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
		acc := f.Numerator[0] * input[n]
		for k := 1; k < len(f.Numerator); k++ {
			if n >= k {
				acc += f.Numerator[k] * input[n-k]
				acc -= f.Denominator[k] * output[n-k]
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
