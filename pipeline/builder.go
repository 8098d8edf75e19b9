package pipeline

import (
	"fmt"
	"sort"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/data"
	"github.com/sofia-silvestri/KappaLibrary/pipe"
)

// Build turns a description into an executable graph. Validation happens in
// four phases (instantiate every declared block, resolve every connection
// reference to concrete ports, wire the connections, verify the non-feedback
// edges are acyclic) and every phase collects its errors instead of stopping
// at the first one. Any collected error aborts the build: all instances
// created during the attempt are torn down and the whole batch is returned,
// so no partially wired graph is ever handed to the scheduler.
func Build(registry *block.Registry, desc Description) (*Graph, error) {
	g := &Graph{
		name:      desc.Name,
		nodes:     map[string]*node{},
		connector: pipe.NewConnector(),
	}
	var errs Errors
	var declared []*node

	for _, d := range desc.Blocks {
		if _, ok := g.nodes[d.Name]; ok {
			errs = append(errs, DuplicateBlockNameError{d.Name})
			continue
		}
		inst, err := registry.Instantiate(d.Type, d.Config)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		inst.Name = d.Name
		n := &node{
			inst: inst,
			ins:  map[string]*pipe.Connection{},
			outs: map[string][]*pipe.Connection{},
		}
		g.nodes[d.Name] = n
		declared = append(declared, n)
	}

	for _, d := range desc.Connections {
		fromNode, fromPort, err := g.resolve(d.From, block.Output)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		toNode, toPort, err := g.resolve(d.To, block.Input)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		var conn *pipe.Connection
		if d.Feedback {
			if d.Initial == nil {
				errs = append(errs, MissingFeedbackInitialError{From: d.From, To: d.To})
				continue
			}
			initial, err := initialValue(toPort.Type, d.Initial)
			if err != nil {
				errs = append(errs, fmt.Errorf("feedback connection %s -> %s, %s", d.From, d.To, err))
				continue
			}
			conn, err = g.connector.ConnectFeedback(fromNode.port(fromPort), toNode.port(toPort), initial)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			g.feedback = append(g.feedback, conn)
		} else {
			conn, err = g.connector.Connect(fromNode.port(fromPort), toNode.port(toPort))
			if err != nil {
				errs = append(errs, err)
				continue
			}
		}
		fromNode.outs[fromPort.Name] = append(fromNode.outs[fromPort.Name], conn)
		toNode.ins[toPort.Name] = conn
	}

	if order, err := toposort(declared); err != nil {
		errs = append(errs, err)
	} else {
		g.order = order
	}

	if len(errs) > 0 {
		g.order = declared
		g.Close()
		return nil, errs
	}
	g.levels = computeLevels(g.order)
	return g, nil
}

// resolve maps a "block/port" reference to the live node and its declared
// port, checking the port exists with the expected direction.
func (g *Graph) resolve(ref string, dir block.Direction) (*node, block.Port, error) {
	blk, port, err := splitRef(ref)
	if err != nil {
		return nil, block.Port{}, UnresolvedPortError{ref}
	}
	n, ok := g.nodes[blk]
	if !ok {
		return nil, block.Port{}, UnresolvedPortError{ref}
	}
	p, ok := n.inst.Spec.Port(port)
	if !ok || p.Direction != dir {
		return nil, block.Port{}, UnresolvedPortError{ref}
	}
	return n, p, nil
}

// toposort is Kahn's algorithm over the non-feedback edges. Nodes left with
// inbound edges after the sort lie on a cycle.
func toposort(declared []*node) ([]*node, error) {
	producer := map[*pipe.Connection]*node{}
	for _, n := range declared {
		for _, conns := range n.outs {
			for _, c := range conns {
				producer[c] = n
			}
		}
	}

	indeg := map[*node]int{}
	dependents := map[*node][]*node{}
	for _, n := range declared {
		for _, c := range n.ins {
			if c.Feedback() {
				continue
			}
			up := producer[c]
			dependents[up] = append(dependents[up], n)
			indeg[n]++
		}
	}

	var queue, order []*node
	for _, n := range declared {
		if indeg[n] == 0 {
			queue = append(queue, n)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, dep := range dependents[n] {
			indeg[dep]--
			if indeg[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(declared) {
		var cyclic []string
		for _, n := range declared {
			if indeg[n] > 0 {
				cyclic = append(cyclic, n.inst.Name)
			}
		}
		sort.Strings(cyclic)
		return nil, IllegalCycleError{Blocks: cyclic}
	}
	return order, nil
}

// initialValue coerces a declared feedback initial into a Value matching the
// consumer's descriptor. Numbers arrive as float64 from JSON and the script
// runtime, so integer descriptors convert.
func initialValue(desc data.Descriptor, raw interface{}) (data.Value, error) {
	switch p := raw.(type) {
	case data.Value:
		if !p.Descriptor().Equal(desc) {
			return data.Value{}, fmt.Errorf("initial value is '%s', port wants '%s'", p.Descriptor().TypeID, desc.TypeID)
		}
		return p, nil
	case bool:
		return data.New(desc, p)
	case float64:
		switch desc.Kind {
		case data.Int:
			return data.New(desc, int64(p))
		case data.Uint:
			return data.New(desc, uint64(p))
		}
		return data.New(desc, p)
	case int:
		return initialValue(desc, float64(p))
	case int64:
		return initialValue(desc, float64(p))
	case string:
		return data.New(desc, []byte(p))
	case []byte:
		return data.New(desc, p)
	case []interface{}:
		if desc.Kind == data.Int {
			is := make([]int64, len(p))
			for i, e := range p {
				f, ok := e.(float64)
				if !ok {
					return data.Value{}, fmt.Errorf("initial element %d is %T, expected a number", i, e)
				}
				is[i] = int64(f)
			}
			return data.New(desc, is)
		}
		fs := make([]float64, len(p))
		for i, e := range p {
			f, ok := e.(float64)
			if !ok {
				return data.Value{}, fmt.Errorf("initial element %d is %T, expected a number", i, e)
			}
			fs[i] = f
		}
		return data.New(desc, fs)
	case []float64:
		return data.New(desc, p)
	default:
		return data.Value{}, fmt.Errorf("cannot use %T as an initial value for '%s'", raw, desc.TypeID)
	}
}
