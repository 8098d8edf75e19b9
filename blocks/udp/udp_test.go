package udp

import (
	"bytes"
	"testing"
	"time"

	"github.com/sofia-silvestri/KappaLibrary/data"
)

func TestSourceSinkRoundTrip(t *testing.T) {
	src := &Source{Address: "127.0.0.1:0"}
	if err := src.Init(); err != nil {
		t.Fatalf("source init failed, %s", err)
	}
	defer src.Close()

	snk := &Sink{Address: src.conn.LocalAddr().String()}
	if err := snk.Init(); err != nil {
		t.Fatalf("sink init failed, %s", err)
	}
	defer snk.Close()

	payload := data.MustNew(data.Float64(), -3.25).AppendTo(nil)
	if _, err := snk.Step(map[string]data.Value{"in": data.MustNew(data.ByteSeq(), payload)}); err != nil {
		t.Fatalf("sink step failed, %s", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		out, err := src.Step(nil)
		if err != nil {
			t.Fatalf("got error: %s", err)
		}
		if out != nil {
			if !bytes.Equal(out["out"].Bytes(), payload) {
				t.Errorf("expected %v, got %v", payload, out["out"].Bytes())
			}
			v, _ := data.FromBytes(data.Float64(), out["out"].Bytes())
			if v.Float() != -3.25 {
				t.Errorf("expected -3.25, got %f", v.Float())
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no datagram arrived")
}
