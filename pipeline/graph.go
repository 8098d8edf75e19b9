package pipeline

import (
	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/pipe"
)

// node is one wired block instance: its inbound connection per input port
// and its outbound connections per output port.
type node struct {
	inst *block.Instance
	ins  map[string]*pipe.Connection
	outs map[string][]*pipe.Connection
}

// Graph is a fully validated, executable pipeline: every declared block
// instantiated, every connection wired, the topological execution order over
// non-feedback edges already computed. Only Build produces one.
type Graph struct {
	name      string
	nodes     map[string]*node
	order     []*node
	levels    [][]*node
	connector *pipe.Connector
	feedback  []*pipe.Connection
	closed    bool
}

// Name returns the pipeline name from the description.
func (g *Graph) Name() string { return g.name }

// Blocks returns the instance names in execution order.
func (g *Graph) Blocks() []string {
	names := make([]string, len(g.order))
	for i, n := range g.order {
		names[i] = n.inst.Name
	}
	return names
}

// Instance returns the named live block instance.
func (g *Graph) Instance(name string) (*block.Instance, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, false
	}
	return n.inst, true
}

// Close tears the graph down: every block's teardown hook runs and every
// module reference is released. The first hook error is returned, but all
// instances are closed regardless. Close is idempotent.
func (g *Graph) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	var first error
	for _, n := range g.order {
		if err := n.inst.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// port builds the pipe endpoint for a declared port on a live instance.
func (n *node) port(p block.Port) pipe.Port {
	return pipe.Port{
		Block:     n.inst.Name,
		Name:      p.Name,
		Direction: p.Direction,
		Type:      p.Type,
		MaxFanOut: p.MaxFanOut,
	}
}

// computeLevels groups the execution order into levels of mutually
// independent blocks. Blocks within one level share no non-feedback
// dependency path and may step in parallel.
func computeLevels(order []*node) [][]*node {
	depth := map[*node]int{}
	producer := map[*pipe.Connection]*node{}
	for _, n := range order {
		for _, conns := range n.outs {
			for _, c := range conns {
				producer[c] = n
			}
		}
	}
	max := 0
	for _, n := range order {
		d := 0
		for _, c := range n.ins {
			if c.Feedback() {
				continue
			}
			if up, ok := producer[c]; ok {
				if depth[up]+1 > d {
					d = depth[up] + 1
				}
			}
		}
		depth[n] = d
		if d > max {
			max = d
		}
	}
	levels := make([][]*node, max+1)
	for _, n := range order {
		levels[depth[n]] = append(levels[depth[n]], n)
	}
	return levels
}
