package pipe

import (
	"reflect"
	"testing"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/data"
)

func outPort(blk, name string, d data.Descriptor) Port {
	return Port{Block: blk, Name: name, Direction: block.Output, Type: d}
}

func inPort(blk, name string, d data.Descriptor) Port {
	return Port{Block: blk, Name: name, Direction: block.Input, Type: d}
}

func TestConnect(t *testing.T) {
	c := NewConnector()
	conn, err := c.Connect(outPort("src", "out", data.Float64()), inPort("sink", "in", data.Float64()))
	if err != nil {
		t.Fatalf("unexpected Connect() error, %s", err)
	}
	if conn.Feedback() {
		t.Error("plain connection reports feedback")
	}
	if len(c.Connections()) != 1 {
		t.Errorf("expected 1 connection, got %d", len(c.Connections()))
	}
}

func TestConnectTypeMismatch(t *testing.T) {
	c := NewConnector()
	from := outPort("src", "out", data.Float32())
	to := inPort("sink", "in", data.Float64())
	_, err := c.Connect(from, to)
	want := TypeMismatchError{From: from, To: to}
	if !reflect.DeepEqual(err, want) {
		t.Fatalf("wrong error, expected %v, got %v", want, err)
	}
	if len(c.Connections()) != 0 {
		t.Error("failed connect recorded a connection")
	}
}

func TestConnectInputTwice(t *testing.T) {
	c := NewConnector()
	to := inPort("sink", "in", data.Float64())
	if _, err := c.Connect(outPort("a", "out", data.Float64()), to); err != nil {
		t.Fatalf("unexpected Connect() error, %s", err)
	}
	_, err := c.Connect(outPort("b", "out", data.Float64()), to)
	if _, ok := err.(PortAlreadyConnectedError); !ok {
		t.Errorf("expected PortAlreadyConnectedError, got %v", err)
	}
}

func TestConnectFanOutLimit(t *testing.T) {
	c := NewConnector()
	from := outPort("src", "out", data.Float64())
	from.MaxFanOut = 2
	for i, sink := range []string{"s1", "s2"} {
		if _, err := c.Connect(from, inPort(sink, "in", data.Float64())); err != nil {
			t.Fatalf("unexpected Connect() error on fan-out %d, %s", i+1, err)
		}
	}
	_, err := c.Connect(from, inPort("s3", "in", data.Float64()))
	want := PortArityExceededError{Port: from, Max: 2}
	if !reflect.DeepEqual(err, want) {
		t.Errorf("wrong error, expected %v, got %v", want, err)
	}
}

func TestConnectDirection(t *testing.T) {
	c := NewConnector()
	_, err := c.Connect(inPort("a", "in", data.Float64()), inPort("b", "in", data.Float64()))
	if _, ok := err.(DirectionError); !ok {
		t.Errorf("expected DirectionError, got %v", err)
	}
}

func TestSingleSlotOverwrite(t *testing.T) {
	c := NewConnector()
	conn, err := c.Connect(outPort("src", "out", data.Float64()), inPort("sink", "in", data.Float64()))
	if err != nil {
		t.Fatalf("unexpected Connect() error, %s", err)
	}

	if _, ok := conn.Latest(); ok {
		t.Fatal("empty connection reports a value")
	}
	conn.Deliver(data.MustNew(data.Float64(), 1.0))
	conn.Deliver(data.MustNew(data.Float64(), 2.0))
	v, ok := conn.Latest()
	if !ok {
		t.Fatal("expected a value after Deliver")
	}
	// the producer outran the consumer, only the most recent value survives
	if got := v.Float(); got != 2.0 {
		t.Errorf("expected superseded value 2.0, got %v", got)
	}
}

func TestFeedbackPublish(t *testing.T) {
	c := NewConnector()
	initial := data.MustNew(data.Float64(), 0.0)
	conn, err := c.ConnectFeedback(outPort("g", "out", data.Float64()), inPort("src", "fb", data.Float64()), initial)
	if err != nil {
		t.Fatalf("unexpected ConnectFeedback() error, %s", err)
	}

	// step one: consumer sees the declared initial value
	v, ok := conn.Latest()
	if !ok || v.Float() != 0.0 {
		t.Fatalf("expected initial value 0.0, got %v ok=%t", v, ok)
	}

	// the producer emits 5 during step one; not visible until Publish
	conn.Deliver(data.MustNew(data.Float64(), 5.0))
	if v, _ := conn.Latest(); v.Float() != 0.0 {
		t.Errorf("feedback value visible before step boundary, got %v", v.Float())
	}
	conn.Publish()
	if v, _ := conn.Latest(); v.Float() != 5.0 {
		t.Errorf("expected 5.0 after Publish, got %v", v.Float())
	}
}

func TestConnectFeedbackRequiresInitial(t *testing.T) {
	c := NewConnector()
	_, err := c.ConnectFeedback(outPort("g", "out", data.Float64()), inPort("src", "fb", data.Float64()), data.Value{})
	if err == nil {
		t.Fatal("expected error for feedback edge without initial value")
	}
}

func TestReady(t *testing.T) {
	c := NewConnector()
	conn, _ := c.Connect(outPort("src", "out", data.Float64()), inPort("sink", "in", data.Float64()))
	select {
	case <-conn.Ready():
		t.Fatal("Ready closed before any delivery")
	default:
	}
	conn.Deliver(data.MustNew(data.Float64(), 1.0))
	select {
	case <-conn.Ready():
	default:
		t.Fatal("Ready not closed after delivery")
	}
}
