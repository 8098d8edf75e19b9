package cfar

import (
	"reflect"
	"testing"

	"github.com/sofia-silvestri/KappaLibrary/data"
)

func detectFrame(t *testing.T, d *Detector, in []float64) ([]float64, []int64) {
	t.Helper()
	if err := d.Init(); err != nil {
		t.Fatalf("init failed, %s", err)
	}
	out, err := d.Step(map[string]data.Value{"in": data.MustNew(data.Float64Seq(), in)})
	if err != nil {
		t.Fatalf("got error: %s", err)
	}
	return out["out"].Floats(), out["pass"].Ints()
}

func TestDetectorSingleTarget(t *testing.T) {
	// one strong return in flat noise
	in := []float64{1, 1, 1, 1, 1, 1, 1, 1, 50, 1, 1, 1, 1, 1, 1, 1}
	d := &Detector{Method: CellAveraging, Threshold: 10, Cell: 3, Guard: 1}
	filtered, pass := detectFrame(t, d, in)

	wantFiltered := make([]float64, len(in))
	wantFiltered[8] = 50
	wantPass := make([]int64, len(in))
	wantPass[8] = 1
	if !reflect.DeepEqual(filtered, wantFiltered) {
		t.Errorf("expected %v, got %v", wantFiltered, filtered)
	}
	if !reflect.DeepEqual(pass, wantPass) {
		t.Errorf("expected pass %v, got %v", wantPass, pass)
	}
}

func TestDetectorMethods(t *testing.T) {
	// a moderate return at 5 sits between the flat early window and the
	// window inflated by the strong return at 8, so the methods disagree
	in := []float64{1, 1, 1, 1, 1, 20, 1, 1, 50, 1, 1, 1, 1, 1, 1, 1}
	testData := []struct {
		method string
		want   []int
	}{
		{CellAveraging, []int{5, 8}},
		{GreatestOf, []int{8}},
		{LowestOf, []int{5, 8}},
	}

	for _, td := range testData {
		d := &Detector{Method: td.method, Threshold: 10, Cell: 3, Guard: 1}
		_, pass := detectFrame(t, d, in)
		var got []int
		for i, p := range pass {
			if p == 1 {
				got = append(got, i)
			}
		}
		if !reflect.DeepEqual(got, td.want) {
			t.Errorf("method %s, expected detections at %v, got %v", td.method, td.want, got)
		}
	}
}

func TestDetectorRejectsBadInput(t *testing.T) {
	if err := (&Detector{Method: "median", Threshold: 1, Cell: 3, Guard: 1}).Init(); err == nil {
		t.Errorf("expected unknown method to fail init")
	}
	if err := (&Detector{Method: CellAveraging, Cell: 0}).Init(); err == nil {
		t.Errorf("expected zero cell to fail init")
	}
	if err := (&Detector{Method: CellAveraging, Cell: 3, Guard: -1}).Init(); err == nil {
		t.Errorf("expected negative guard to fail init")
	}

	d := &Detector{Method: CellAveraging, Threshold: 1, Cell: 3, Guard: 1}
	short := []float64{1, 1, 1, 1, 1}
	_, err := d.Step(map[string]data.Value{"in": data.MustNew(data.Float64Seq(), short)})
	if err == nil {
		t.Errorf("expected a frame shorter than the cfar window to fail")
	}
}
