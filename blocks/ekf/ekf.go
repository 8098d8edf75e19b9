// Package ekf provides an extended Kalman filter block tracking a scalar
// measurement with a polynomial motion model.
package ekf

import (
	"fmt"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/blocks"
	"github.com/sofia-silvestri/KappaLibrary/data"
)

const (
	sampleConfig = `    type: ekf
    initial_state: [0.0, 0.0]
    sampling_time: 1.0
    process_noise: [[0.1, 0.0], [0.0, 0.01]]
    measurement_noise: 0.01`

	description = "tracks a noisy float64 measurement with an extended Kalman filter"
)

var _ block.Initializer = &Filter{}

// Filter estimates the state vector of a polynomial motion model (position,
// velocity, acceleration, ...) from one scalar position measurement per
// step. The state order is the length of the configured initial state; the
// state transition matrix holds the Taylor terms of the sampling interval.
type Filter struct {
	InitialState     []float64   `json:"initial_state" doc:"starting state estimate, its length sets the model order"`
	SamplingTime     float64     `json:"sampling_time" doc:"seconds between measurements"`
	ProcessNoise     [][]float64 `json:"process_noise" doc:"process noise covariance, order x order"`
	MeasurementNoise float64     `json:"measurement_noise" doc:"measurement noise covariance"`

	order      int
	transition [][]float64 // F
	state      []float64   // x
	covariance [][]float64 // P
}

func init() {
	blocks.Add(block.Spec{
		Name:        "ekf",
		Description: description,
		Ports: []block.Port{
			{Name: "in", Direction: block.Input, Type: data.Float64()},
			{Name: "out", Direction: block.Output, Type: data.Float64()},
		},
		Creator: func() block.Block {
			return &Filter{InitialState: []float64{0, 0}, SamplingTime: 1.0, MeasurementNoise: 0.01}
		},
	})
}

// Description for ekf block
func (f *Filter) Description() string {
	return description
}

// SampleConfig for ekf block
func (f *Filter) SampleConfig() string {
	return sampleConfig
}

// Init satisfies block.Initializer.
func (f *Filter) Init() error {
	f.order = len(f.InitialState)
	if f.order == 0 {
		return fmt.Errorf("ekf filter declares no initial state")
	}
	if f.SamplingTime <= 0 {
		return fmt.Errorf("ekf sampling time must be positive, got %v", f.SamplingTime)
	}
	if f.ProcessNoise == nil {
		f.ProcessNoise = zeroMatrix(f.order)
	}
	if len(f.ProcessNoise) != f.order {
		return fmt.Errorf("process noise has %d rows, state order is %d", len(f.ProcessNoise), f.order)
	}
	for _, row := range f.ProcessNoise {
		if len(row) != f.order {
			return fmt.Errorf("process noise has a row of %d columns, state order is %d", len(row), f.order)
		}
	}

	f.transition = zeroMatrix(f.order)
	for i := 0; i < f.order; i++ {
		f.transition[i][i] = 1
		term := 1.0
		for n := i + 1; n < f.order; n++ {
			term *= f.SamplingTime / float64(n-i)
			f.transition[i][n] = term
		}
	}
	f.state = append([]float64(nil), f.InitialState...)
	f.covariance = zeroMatrix(f.order)
	return nil
}

// Step satisfies block.Block.
func (f *Filter) Step(in map[string]data.Value) (map[string]data.Value, error) {
	estimate := f.update(in["in"].Float())
	v, err := data.New(data.Float64(), estimate)
	if err != nil {
		return nil, err
	}
	return map[string]data.Value{"out": v}, nil
}

// update runs one predict/update cycle and returns the position estimate.
// The predicted covariance keeps only the diagonal of the prior covariance,
// trading filter optimality for an order-squared update.
func (f *Filter) update(measurement float64) float64 {
	order := f.order

	predicted := make([]float64, order)
	for i := 0; i < order; i++ {
		for j := i; j < order; j++ {
			predicted[i] += f.transition[i][j] * f.state[j]
		}
	}

	predictedCov := zeroMatrix(order)
	for i := 0; i < order; i++ {
		for j := 0; j < order; j++ {
			for k := 0; k < order; k++ {
				predictedCov[i][j] += f.transition[i][k] * f.transition[j][k] * f.covariance[k][k]
			}
			predictedCov[i][j] += f.ProcessNoise[i][j]
		}
	}

	residualCov := predictedCov[0][0] + f.MeasurementNoise
	gain := make([]float64, order)
	for i := 0; i < order; i++ {
		gain[i] = predictedCov[i][0] / residualCov
	}
	for i := 0; i < order; i++ {
		for j := 0; j < order; j++ {
			f.covariance[i][j] = predictedCov[i][j] - gain[i]*predictedCov[0][j]
		}
	}

	residual := measurement - predicted[0]
	for i := 0; i < order; i++ {
		f.state[i] = predicted[i] + gain[i]*residual
	}
	return f.state[0]
}

func zeroMatrix(order int) [][]float64 {
	m := make([][]float64, order)
	for i := range m {
		m[i] = make([]float64, order)
	}
	return m
}
