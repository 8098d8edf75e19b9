// Package pipe provides the typed endpoints and connections through which
// block instances exchange values. Every connection holds a bounded
// single-slot buffer: the stream is continuous and real-time, so a fresh
// value supersedes a stale one rather than queueing without bound.
package pipe

import (
	"sync"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/data"
)

// Port is one endpoint on a live block instance: the instance name, the
// declared port name, its direction and descriptor. The descriptor is fixed
// once the block is instantiated.
type Port struct {
	Block     string
	Name      string
	Direction block.Direction
	Type      data.Descriptor
	MaxFanOut int
}

func (p Port) String() string {
	return p.Block + "/" + p.Name
}

// Connection is a directed edge from one output port to one input port. The
// slot is mutex-guarded so independent blocks stepping in parallel never
// read a value mid-write.
//
// Feedback connections double-buffer: Deliver writes the pending slot and
// Publish moves it into the visible slot at the step boundary, so a feedback
// consumer always sees the producer's value from the prior step (or the
// declared initial value on step one).
type Connection struct {
	From     Port
	To       Port
	feedback bool

	mu      sync.Mutex
	cur     data.Value
	next    data.Value
	hasNext bool
	ready   chan struct{}
	once    sync.Once
}

func newConnection(from, to Port, feedback bool) *Connection {
	return &Connection{From: from, To: to, feedback: feedback, ready: make(chan struct{})}
}

// Feedback reports whether this edge is excluded from cycle detection.
func (c *Connection) Feedback() bool { return c.feedback }

// Deliver hands a value to the connection. The caller has already cloned per
// fan-out target, so the slot owns its storage exclusively. On a non-feedback
// connection the value is visible immediately; on a feedback connection it
// becomes visible at the next Publish.
func (c *Connection) Deliver(v data.Value) {
	c.mu.Lock()
	if c.feedback {
		c.next = v
		c.hasNext = true
	} else {
		c.cur = v
	}
	c.mu.Unlock()
	if !c.feedback {
		c.once.Do(func() { close(c.ready) })
	}
}

// Publish moves a feedback connection's pending value into the visible slot.
// The scheduler calls it at every step boundary.
func (c *Connection) Publish() {
	if !c.feedback {
		return
	}
	c.mu.Lock()
	if c.hasNext {
		c.cur = c.next
		c.next = data.Value{}
		c.hasNext = false
	}
	c.mu.Unlock()
	c.once.Do(func() { close(c.ready) })
}

// Latest returns the most recent visible value, if any.
func (c *Connection) Latest() (data.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur, !c.cur.IsZero()
}

// Ready is closed once the connection holds its first visible value. Eager
// blocks wait on it, bounded by the scheduler's step budget.
func (c *Connection) Ready() <-chan struct{} { return c.ready }

func (c *Connection) seed(initial data.Value) {
	c.cur = initial
	c.once.Do(func() { close(c.ready) })
}

// Connector tracks every connection in one graph and enforces the wiring
// rules: identical descriptors on both ends, at most one connection per
// input port, declared fan-out limits on output ports.
type Connector struct {
	conns   []*Connection
	byInput map[string]*Connection
	fanOut  map[string]int
}

// NewConnector returns an empty Connector.
func NewConnector() *Connector {
	return &Connector{
		byInput: map[string]*Connection{},
		fanOut:  map[string]int{},
	}
}

// Connect validates and records an edge from an output port to an input port.
func (c *Connector) Connect(from, to Port) (*Connection, error) {
	return c.connect(from, to, false, data.Value{})
}

// ConnectFeedback records an edge excluded from cycle detection. The initial
// value seeds the buffer so the consumer has something to read on the first
// step, before the producer has ever run.
func (c *Connector) ConnectFeedback(from, to Port, initial data.Value) (*Connection, error) {
	return c.connect(from, to, true, initial)
}

func (c *Connector) connect(from, to Port, feedback bool, initial data.Value) (*Connection, error) {
	if from.Direction != block.Output {
		return nil, DirectionError{Port: from, Want: block.Output}
	}
	if to.Direction != block.Input {
		return nil, DirectionError{Port: to, Want: block.Input}
	}
	if !from.Type.Equal(to.Type) {
		return nil, TypeMismatchError{From: from, To: to}
	}
	if prev, ok := c.byInput[to.String()]; ok {
		return nil, PortAlreadyConnectedError{Port: to, Existing: prev.From}
	}
	if from.MaxFanOut > 0 && c.fanOut[from.String()] >= from.MaxFanOut {
		return nil, PortArityExceededError{Port: from, Max: from.MaxFanOut}
	}
	if feedback {
		if initial.IsZero() || !initial.Descriptor().Equal(to.Type) {
			return nil, TypeMismatchError{From: from, To: to}
		}
	}

	conn := newConnection(from, to, feedback)
	if feedback {
		conn.seed(initial)
	}
	c.conns = append(c.conns, conn)
	c.byInput[to.String()] = conn
	c.fanOut[from.String()]++
	return conn, nil
}

// Connections returns every recorded connection in wiring order.
func (c *Connector) Connections() []*Connection { return c.conns }

// Inbound returns the connection feeding the given input port, if any.
func (c *Connector) Inbound(to Port) (*Connection, bool) {
	conn, ok := c.byInput[to.String()]
	return conn, ok
}
