// Package fft provides a magnitude spectrum block over float64 frames.
package fft

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/blocks"
	"github.com/sofia-silvestri/KappaLibrary/data"
)

const (
	sampleConfig = `    type: fft
    size: 64`

	description = "radix-2 FFT magnitude spectrum of each float64 frame"
)

var _ block.Initializer = &FFT{}

// FFT transforms each incoming frame and emits the magnitude per bin.
// Frames shorter than Size are zero padded; longer frames are truncated.
type FFT struct {
	Size int `json:"size" doc:"transform size, a power of two"`

	weights []complex128
}

func init() {
	blocks.Add(block.Spec{
		Name:        "fft",
		Description: description,
		Ports: []block.Port{
			{Name: "in", Direction: block.Input, Type: data.Float64Seq()},
			{Name: "out", Direction: block.Output, Type: data.Float64Seq()},
		},
		Creator: func() block.Block { return &FFT{Size: 64} },
	})
}

// Description for fft block
func (f *FFT) Description() string {
	return description
}

// SampleConfig for fft block
func (f *FFT) SampleConfig() string {
	return sampleConfig
}

// Init precomputes the twiddle factors.
func (f *FFT) Init() error {
	if f.Size < 2 || f.Size&(f.Size-1) != 0 {
		return fmt.Errorf("fft size must be a power of two, got %d", f.Size)
	}
	f.weights = make([]complex128, f.Size/2)
	for i := range f.weights {
		angle := -2 * math.Pi * float64(i) / float64(f.Size)
		f.weights[i] = complex(math.Cos(angle), math.Sin(angle))
	}
	return nil
}

// Step satisfies block.Block.
func (f *FFT) Step(in map[string]data.Value) (map[string]data.Value, error) {
	input := in["in"].Floats()

	buf := make([]complex128, f.Size)
	for i := 0; i < f.Size && i < len(input); i++ {
		buf[i] = complex(input[i], 0)
	}
	f.transform(buf)

	mags := make([]float64, f.Size)
	for i, c := range buf {
		mags[i] = cmplx.Abs(c)
	}
	v, err := data.New(data.Float64Seq(), mags)
	if err != nil {
		return nil, err
	}
	return map[string]data.Value{"out": v}, nil
}

// transform is an in-place iterative radix-2 decimation-in-time FFT.
func (f *FFT) transform(buf []complex128) {
	n := len(buf)

	// bit-reversal permutation
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		step := n / length
		for start := 0; start < n; start += length {
			for k := 0; k < length/2; k++ {
				w := f.weights[k*step]
				even := buf[start+k]
				odd := buf[start+k+length/2] * w
				buf[start+k] = even + odd
				buf[start+k+length/2] = even - odd
			}
		}
	}
}
