package generator

import (
	"fmt"
	"math"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/blocks"
	"github.com/sofia-silvestri/KappaLibrary/data"
)

const framegenDescription = "emits one float64 frame per step, sine or constant, for the vector blocks"

var _ block.Initializer = &FrameGen{}

// FrameGen produces a whole float64 frame per step. Sine frames advance
// phase across steps so consecutive frames form a continuous waveform.
type FrameGen struct {
	Size      int     `json:"size" doc:"samples per frame"`
	Waveform  string  `json:"waveform" doc:"one of constant, sine"`
	Amplitude float64 `json:"amplitude" doc:"peak amplitude, default 1.0"`
	Frequency float64 `json:"frequency" doc:"cycles per sample, sine only"`

	n int
}

func init() {
	blocks.Add(block.Spec{
		Name:        "framegen",
		Description: framegenDescription,
		Ports: []block.Port{
			{Name: "out", Direction: block.Output, Type: data.Float64Seq()},
		},
		Creator: func() block.Block { return &FrameGen{Size: 64, Waveform: "constant", Amplitude: 1.0} },
	})
}

// Description for framegen block
func (f *FrameGen) Description() string {
	return framegenDescription
}

// SampleConfig for framegen block
func (f *FrameGen) SampleConfig() string {
	return `    type: framegen
    size: 64
    waveform: sine
    frequency: 0.05`
}

// Init satisfies block.Initializer.
func (f *FrameGen) Init() error {
	if f.Size <= 0 {
		return fmt.Errorf("frame size must be positive, got %d", f.Size)
	}
	if f.Waveform != "constant" && f.Waveform != "sine" {
		return fmt.Errorf("unknown waveform '%s'", f.Waveform)
	}
	return nil
}

// Step satisfies block.Block.
func (f *FrameGen) Step(in map[string]data.Value) (map[string]data.Value, error) {
	frame := make([]float64, f.Size)
	for i := range frame {
		if f.Waveform == "sine" {
			frame[i] = f.Amplitude * math.Sin(2*math.Pi*f.Frequency*float64(f.n))
		} else {
			frame[i] = f.Amplitude
		}
		f.n++
	}
	v, err := data.New(data.Float64Seq(), frame)
	if err != nil {
		return nil, err
	}
	return map[string]data.Value{"out": v}, nil
}
