package pipeline

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sofia-silvestri/KappaLibrary/events"
)

// statsWindow accumulates step durations between metrics reports.
type statsWindow struct {
	mu      sync.Mutex
	samples []float64 // milliseconds
}

func newStatsWindow() *statsWindow {
	return &statsWindow{samples: make([]float64, 0, 256)}
}

func (w *statsWindow) record(d time.Duration) {
	w.mu.Lock()
	w.samples = append(w.samples, float64(d)/float64(time.Millisecond))
	w.mu.Unlock()
}

// snapshot summarizes and resets the window.
func (w *statsWindow) snapshot() (events.StepStats, int) {
	w.mu.Lock()
	samples := w.samples
	w.samples = make([]float64, 0, 256)
	w.mu.Unlock()

	n := len(samples)
	if n == 0 {
		return events.StepStats{}, 0
	}

	var sum float64
	min, max := samples[0], samples[0]
	for _, s := range samples {
		sum += s
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	mean := sum / float64(n)

	var sq float64
	for _, s := range samples {
		d := s - mean
		sq += d * d
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	return events.StepStats{
		Mean:   mean,
		Min:    min,
		Max:    max,
		StdDev: math.Sqrt(sq / float64(n)),
		P50:    percentile(sorted, 0.50),
		P90:    percentile(sorted, 0.90),
		P99:    percentile(sorted, 0.99),
	}, n
}

// percentile reads the nearest-rank percentile from a sorted sample set.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	i := int(math.Ceil(p*float64(len(sorted)))) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}
