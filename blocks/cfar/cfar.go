// Package cfar provides a constant false alarm rate detector block
// operating on float64 frames.
package cfar

import (
	"fmt"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/blocks"
	"github.com/sofia-silvestri/KappaLibrary/data"
)

const (
	sampleConfig = `    type: cfar
    method: cell_averaging
    threshold: 10.0
    cell: 10
    guard: 3`

	description = "passes the samples of each float64 frame exceeding a threshold over the local cell average"
)

// Detection methods. They differ in how the training sums on either side of
// the guard interval combine.
const (
	CellAveraging = "cell_averaging"
	GreatestOf    = "greatest_of"
	LowestOf      = "lowest_of"
)

var _ block.Initializer = &Detector{}

// Detector slides a training window of cell samples, separated from the
// cell under test by guard samples, across each frame. A sample passes when
// it exceeds the method's training average plus the configured threshold.
// Passing samples are copied to "out", all others become zero; "pass"
// carries the 0/1 detection mask.
type Detector struct {
	Method    string  `json:"method" doc:"cell_averaging, greatest_of or lowest_of"`
	Threshold float64 `json:"threshold" doc:"offset above the training average a sample must exceed"`
	Cell      int     `json:"cell" doc:"training window length per side"`
	Guard     int     `json:"guard" doc:"samples skipped between the tested sample and the training window"`
}

func init() {
	blocks.Add(block.Spec{
		Name:        "cfar",
		Description: description,
		Ports: []block.Port{
			{Name: "in", Direction: block.Input, Type: data.Float64Seq()},
			{Name: "out", Direction: block.Output, Type: data.Float64Seq()},
			{Name: "pass", Direction: block.Output, Type: data.SequenceOf(data.Int, 64)},
		},
		Creator: func() block.Block {
			return &Detector{Method: CellAveraging, Threshold: 10.0, Cell: 10, Guard: 3}
		},
	})
}

// Description for cfar block
func (d *Detector) Description() string {
	return description
}

// SampleConfig for cfar block
func (d *Detector) SampleConfig() string {
	return sampleConfig
}

// Init satisfies block.Initializer.
func (d *Detector) Init() error {
	switch d.Method {
	case CellAveraging, GreatestOf, LowestOf:
	default:
		return fmt.Errorf("unknown cfar method '%s'", d.Method)
	}
	if d.Cell < 1 {
		return fmt.Errorf("cfar cell must be at least 1, got %d", d.Cell)
	}
	if d.Guard < 0 {
		return fmt.Errorf("cfar guard must not be negative, got %d", d.Guard)
	}
	return nil
}

// Step satisfies block.Block.
func (d *Detector) Step(in map[string]data.Value) (map[string]data.Value, error) {
	input := in["in"].Floats()
	if len(input) <= d.Cell+2*d.Guard {
		return nil, fmt.Errorf("frame of %d samples is shorter than the cfar window of %d", len(input), d.Cell+2*d.Guard+1)
	}

	filtered, pass := d.detect(input)

	out, err := data.New(data.Float64Seq(), filtered)
	if err != nil {
		return nil, err
	}
	mask, err := data.New(data.SequenceOf(data.Int, 64), pass)
	if err != nil {
		return nil, err
	}
	return map[string]data.Value{"out": out, "pass": mask}, nil
}

// detect runs the sliding training sums. sums[i] holds the sum of the cell
// samples starting at i; a tested sample combines the sum ending before its
// leading guard interval with the one starting after the trailing one.
func (d *Detector) detect(input []float64) ([]float64, []int64) {
	n := len(input)
	cell, guard := d.Cell, d.Guard
	filtered := make([]float64, n)
	pass := make([]int64, n)

	sums := make([]float64, n)
	for i := 0; i < cell; i++ {
		sums[0] += input[i]
	}
	for i := 1; i < n+guard; i++ {
		if i < n-cell {
			sums[i] = sums[i-1] + input[i+cell-1] - input[i-1]
		}
		if i < guard {
			continue
		}
		tested := i - guard

		var sum float64
		switch {
		case i <= cell+2*guard:
			sum = sums[i]
		case i > n-cell:
			sum = sums[i-cell-2*guard-1]
		default:
			early := sums[i-cell-2*guard-1]
			late := sums[i]
			switch d.Method {
			case GreatestOf:
				sum = early
				if late > early {
					sum = late
				}
			case LowestOf:
				sum = early
				if late < early {
					sum = late
				}
			default:
				sum = (early + late) / 2
			}
		}

		if input[tested] > d.Threshold+sum/float64(cell) {
			pass[tested] = 1
			filtered[tested] = input[tested]
		}
	}
	return filtered, pass
}
