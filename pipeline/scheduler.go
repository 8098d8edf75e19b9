package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/data"
	"github.com/sofia-silvestri/KappaLibrary/events"
	"github.com/sofia-silvestri/KappaLibrary/log"
)

// State is the scheduler's lifecycle position. A graph starts Built, runs,
// and ends either Stopped (cooperative) or Faulted (a runtime fault stopped
// stepping).
type State uint8

const (
	// Built graphs have never been started.
	Built State = iota + 1
	// Running graphs are being stepped.
	Running
	// Stopped graphs halted at a step boundary after a stop request.
	Stopped
	// Faulted graphs stopped because a step raised a runtime fault.
	Faulted
)

func (s State) String() string {
	switch s {
	case Built:
		return "built"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

const (
	defaultStepBudget      = 100 * time.Millisecond
	defaultMetricsInterval = 10 * time.Second
)

// Scheduler drives a built graph: one Step invocation per block per engine
// step, in topological order, until stopped or faulted.
type Scheduler struct {
	graph *Graph

	stepBudget      time.Duration
	stepInterval    time.Duration
	metricsInterval time.Duration
	stepLimit       uint64
	parallel        bool
	emit            events.EmitFunc

	ch      chan events.Event
	emitter *events.Emitter
	window  *statsWindow

	mu    sync.Mutex
	state State
	err   error

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	steps    uint64
}

// An Option configures a Scheduler at construction.
type Option func(*Scheduler) error

// WithStepBudget bounds how long one step may stall on an eager block's
// missing input before the scheduler reports MissingInput.
func WithStepBudget(d time.Duration) Option {
	return func(s *Scheduler) error {
		s.stepBudget = d
		return nil
	}
}

// WithStepInterval paces the stream: the scheduler sleeps this long between
// steps. Zero (the default) free-runs.
func WithStepInterval(d time.Duration) Option {
	return func(s *Scheduler) error {
		s.stepInterval = d
		return nil
	}
}

// WithMetricsInterval sets how often step-timing metrics are emitted.
func WithMetricsInterval(d time.Duration) Option {
	return func(s *Scheduler) error {
		s.metricsInterval = d
		return nil
	}
}

// WithStepLimit stops the scheduler cleanly after n steps. Zero (the
// default) streams until Stop.
func WithStepLimit(n uint64) Option {
	return func(s *Scheduler) error {
		s.stepLimit = n
		return nil
	}
}

// WithParallel steps mutually independent blocks concurrently. Cross-block
// exchange still behaves as if sequential within one step: dependency edges
// order execution and every connection slot is synchronized.
func WithParallel() Option {
	return func(s *Scheduler) error {
		s.parallel = true
		return nil
	}
}

// WithEmitter sets the consumer for the scheduler's diagnostic events.
func WithEmitter(emit events.EmitFunc) Option {
	return func(s *Scheduler) error {
		s.emit = emit
		return nil
	}
}

// NewScheduler wraps a built graph in a scheduler. The graph must not be
// shared between schedulers.
func NewScheduler(graph *Graph, options ...Option) (*Scheduler, error) {
	s := &Scheduler{
		graph:           graph,
		stepBudget:      defaultStepBudget,
		metricsInterval: defaultMetricsInterval,
		emit:            events.NoopEmitter(),
		window:          newStatsWindow(),
		state:           Built,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	s.ch = make(chan events.Event, 16)
	s.emitter = events.NewEmitter(s.ch, s.emit)
	return s, nil
}

// State returns the scheduler's current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the runtime fault that moved the scheduler to Faulted, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Steps returns how many steps have completed.
func (s *Scheduler) Steps() uint64 {
	return atomic.LoadUint64(&s.steps)
}

// Start transitions Built to Running and begins stepping.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.state != Built {
		defer s.mu.Unlock()
		return InvalidStateError{Op: "start", State: s.state}
	}
	s.state = Running
	s.mu.Unlock()

	s.emitter.Start()
	s.event(events.NewStateEvent(time.Now().UnixNano(), s.graph.Name(), Running.String()))
	go s.loop()
	return nil
}

// Stop requests a cooperative halt, honored at the next step boundary, and
// blocks until the in-flight step has completed. Stopping an already halted
// scheduler is a no-op; stopping one that never started is an error.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	switch state {
	case Built:
		return InvalidStateError{Op: "stop", State: state}
	case Stopped, Faulted:
		return nil
	}
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

// Wait blocks until the scheduler halts and returns the fault, if any.
func (s *Scheduler) Wait() error {
	<-s.done
	return s.Err()
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.metricsInterval)
	defer func() {
		ticker.Stop()
		s.emitMetrics()
		s.event(events.NewStateEvent(time.Now().UnixNano(), s.graph.Name(), s.State().String()))
		s.emitter.Stop()
		close(s.done)
	}()

	for {
		select {
		case <-s.stop:
			s.transition(Stopped, nil)
			return
		case <-ticker.C:
			s.emitMetrics()
		default:
		}

		start := time.Now()
		if err := s.step(); err != nil {
			s.fault(err)
			return
		}
		s.window.record(time.Since(start))
		n := atomic.AddUint64(&s.steps, 1)
		if s.stepLimit > 0 && n >= s.stepLimit {
			s.transition(Stopped, nil)
			return
		}

		if s.stepInterval > 0 {
			select {
			case <-s.stop:
				s.transition(Stopped, nil)
				return
			case <-time.After(s.stepInterval):
			}
		}
	}
}

// step runs every block exactly once, honoring the topological order over
// non-feedback edges, then publishes the feedback slots so their consumers
// see this step's values on the next step.
func (s *Scheduler) step() error {
	deadline := time.Now().Add(s.stepBudget)

	if s.parallel {
		for _, level := range s.graph.levels {
			if len(level) == 1 {
				if err := s.stepNode(level[0], deadline); err != nil {
					return err
				}
				continue
			}
			errc := make(chan error, len(level))
			var wg sync.WaitGroup
			for _, n := range level {
				wg.Add(1)
				go func(n *node) {
					defer wg.Done()
					if err := s.stepNode(n, deadline); err != nil {
						errc <- err
					}
				}(n)
			}
			wg.Wait()
			select {
			case err := <-errc:
				return err
			default:
			}
		}
	} else {
		for _, n := range s.graph.order {
			if err := s.stepNode(n, deadline); err != nil {
				return err
			}
		}
	}

	for _, c := range s.graph.feedback {
		c.Publish()
	}
	return nil
}

// stepNode gathers the latest value per input, invokes the block and fans
// its outputs out, one independent copy per connected consumer. Tolerant
// blocks with a missing input are skipped for the step; eager blocks wait
// out the deadline and raise MissingInput.
func (s *Scheduler) stepNode(n *node, deadline time.Time) error {
	in := map[string]data.Value{}
	for _, p := range n.inst.Spec.Inputs() {
		conn, wired := n.ins[p.Name]
		if wired {
			if v, ok := conn.Latest(); ok {
				in[p.Name] = v
				continue
			}
		}
		if n.inst.Spec.Tolerant {
			return nil
		}
		if wired {
			select {
			case <-conn.Ready():
				if v, ok := conn.Latest(); ok {
					in[p.Name] = v
					continue
				}
			case <-time.After(time.Until(deadline)):
			}
		} else {
			<-time.After(time.Until(deadline))
		}
		return MissingInputError{Block: n.inst.Name, Port: p.Name}
	}

	out, err := n.inst.Block.Step(in)
	if err != nil {
		return BlockStepError{Block: n.inst.Name, Step: atomic.LoadUint64(&s.steps) + 1, Err: err}
	}
	for name, v := range out {
		// Never trust a block's output shape: a foreign module can return
		// anything, so every value is checked against the declared port
		// before it crosses a connection.
		p, ok := n.inst.Spec.Port(name)
		if !ok || p.Direction != block.Output {
			return BlockStepError{
				Block: n.inst.Name,
				Step:  atomic.LoadUint64(&s.steps) + 1,
				Err:   fmt.Errorf("produced a value on undeclared output port '%s'", name),
			}
		}
		if !v.Descriptor().Equal(p.Type) {
			return BlockStepError{
				Block: n.inst.Name,
				Step:  atomic.LoadUint64(&s.steps) + 1,
				Err:   fmt.Errorf("output '%s' produced '%s', declared '%s'", name, v.Descriptor().TypeID, p.Type.TypeID),
			}
		}
		for _, conn := range n.outs[name] {
			conn.Deliver(v.Clone())
		}
	}
	return nil
}

func (s *Scheduler) transition(to State, err error) {
	s.mu.Lock()
	s.state = to
	if err != nil && s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *Scheduler) fault(err error) {
	s.transition(Faulted, err)
	step := atomic.LoadUint64(&s.steps) + 1
	blk := ""
	if be, ok := err.(BlockStepError); ok {
		blk, step = be.Block, be.Step
	} else if me, ok := err.(MissingInputError); ok {
		blk = me.Block
	}
	log.With("pipeline", s.graph.Name()).With("block", blk).Errorln(err)
	s.event(events.NewFaultEvent(time.Now().UnixNano(), blk, step, err.Error()))
}

func (s *Scheduler) emitMetrics() {
	stats, n := s.window.snapshot()
	if n == 0 {
		return
	}
	s.event(events.NewMetricsEvent(time.Now().UnixNano(), s.graph.Name(), atomic.LoadUint64(&s.steps), stats))
}

// event queues an event without ever blocking the step driver.
func (s *Scheduler) event(e events.Event) {
	select {
	case s.ch <- e:
	default:
	}
}
