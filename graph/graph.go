// Package graph implements the directed acyclic multigraph of audio
// nodes described by the core: nodes own named input/output ports, and
// an output port fans out to any number of (node, input) sinks, never
// twice to the same sink. Mutation happens on the configuration thread;
// the graph is read by package schedule to compile a runtime schedule.
package graph

import (
	"errors"
	"fmt"
	"sort"
)

// NodeID identifies a node within a Graph. The zero value never names a
// real node.
type NodeID uint32

// InputID identifies an input port on some node.
type InputID uint32

// OutputID identifies an output port on some node.
type OutputID uint32

// Sentinel errors returned by edge mutation. Compare with errors.Is.
var (
	// ErrPortMissing is returned when an edge names a node or a port on
	// that node that does not exist.
	ErrPortMissing = errors.New("graph: port does not exist")
	// ErrCycle is returned when inserting an edge would introduce a
	// cycle into the output->input dataflow graph.
	ErrCycle = errors.New("graph: edge would introduce a cycle")
	// ErrUnknownRoot is returned by Compile when a requested root node
	// id does not exist in the graph.
	ErrUnknownRoot = errors.New("graph: unknown root node")
)

// PortMissingError carries which side of the edge was missing, mirroring
// the error kinds in spec §7 (EdgeInsertion / EdgeRemoval).
type PortMissingError struct {
	FromPresent bool
	ToPresent   bool
}

func (e *PortMissingError) Error() string {
	return fmt.Sprintf("graph: port missing (from present=%v, to present=%v)", e.FromPresent, e.ToPresent)
}

func (e *PortMissingError) Unwrap() error { return ErrPortMissing }

// Node is one vertex of the graph: a stable id (implicit, it's the map
// key in Graph), an integer latency reserved for future scheduling use,
// and two sets of ports. Output ports record their fan-out as a mapping
// from sink node to the set of input ports on that node they feed —
// never the same (node, input) pair twice, and never fed by the same
// output twice either (insertion is idempotent).
type Node struct {
	Latency uint64

	outputs map[OutputID]fanout
	inputs  map[InputID]struct{}

	nextOutput OutputID
	nextInput  InputID
}

type fanout map[NodeID]map[InputID]struct{}

func newNode() *Node {
	return &Node{
		outputs: make(map[OutputID]fanout),
		inputs:  make(map[InputID]struct{}),
	}
}

// InputIDs returns the node's input ports in sorted order.
func (n *Node) InputIDs() []InputID {
	ids := make([]InputID, 0, len(n.inputs))
	for id := range n.inputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OutputIDs returns the node's output ports in sorted order.
func (n *Node) OutputIDs() []OutputID {
	ids := make([]OutputID, 0, len(n.outputs))
	for id := range n.outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Sinks returns, for a given output port, the (node, input) pairs it
// feeds, in deterministic order.
func (n *Node) Sinks(out OutputID) []Edge {
	fo, ok := n.outputs[out]
	if !ok {
		return nil
	}
	nodes := make([]NodeID, 0, len(fo))
	for nid := range fo {
		nodes = append(nodes, nid)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	var edges []Edge
	for _, nid := range nodes {
		ins := make([]InputID, 0, len(fo[nid]))
		for in := range fo[nid] {
			ins = append(ins, in)
		}
		sort.Slice(ins, func(i, j int) bool { return ins[i] < ins[j] })
		for _, in := range ins {
			edges = append(edges, Edge{ToNode: nid, ToInput: in})
		}
	}
	return edges
}

// Edge is a partial edge endpoint: the sink half of a connection
// recorded on the source's output fan-out map.
type Edge struct {
	ToNode  NodeID
	ToInput InputID
}

// FullEdge is the 4-tuple (from_node, from_output, to_node, to_input)
// described by spec §3.
type FullEdge struct {
	FromNode   NodeID
	FromOutput OutputID
	ToNode     NodeID
	ToInput    InputID
}

// Graph is a mapping from NodeID to Node, plus the edge set recorded on
// each node's output ports. The zero value is an empty, usable graph.
type Graph struct {
	nodes   map[NodeID]*Node
	nextID  NodeID
	edgeSet map[FullEdge]struct{}
}

func (g *Graph) init() {
	if g.nodes == nil {
		g.nodes = make(map[NodeID]*Node)
		g.edgeSet = make(map[FullEdge]struct{})
	}
}

// InsertNode allocates a fresh NodeID and adds an empty node for it.
func (g *Graph) InsertNode() NodeID {
	g.init()
	g.nextID++
	id := g.nextID
	g.nodes[id] = newNode()
	return id
}

// RemoveNode removes a node and every edge touching it (incoming or
// outgoing). It reports whether a node existed at id.
func (g *Graph) RemoveNode(id NodeID) bool {
	g.init()
	n, ok := g.nodes[id]
	if !ok {
		return false
	}

	// Drop inbound edges recorded on other nodes' outputs.
	for _, other := range g.nodes {
		if other == n {
			continue
		}
		for out, fo := range other.outputs {
			if ins, ok := fo[id]; ok {
				for in := range ins {
					delete(g.edgeSet, FullEdge{FromNode: g.idOf(other), FromOutput: out, ToNode: id, ToInput: in})
				}
				delete(fo, id)
			}
		}
	}
	// Drop outbound edges recorded on this node's own outputs.
	for out, fo := range n.outputs {
		for sinkNode, ins := range fo {
			for in := range ins {
				delete(g.edgeSet, FullEdge{FromNode: id, FromOutput: out, ToNode: sinkNode, ToInput: in})
			}
		}
	}

	delete(g.nodes, id)
	return true
}

// idOf does a reverse lookup of a *Node's id; used only by RemoveNode's
// bookkeeping, which already holds the map under mutation.
func (g *Graph) idOf(n *Node) NodeID {
	for id, candidate := range g.nodes {
		if candidate == n {
			return id
		}
	}
	return 0
}

// Node returns the node at id, or nil if none exists.
func (g *Graph) Node(id NodeID) *Node {
	g.init()
	return g.nodes[id]
}

// NodeIDs returns every node id in sorted order.
func (g *Graph) NodeIDs() []NodeID {
	g.init()
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AddInputPort allocates a fresh InputID on the node at id. It panics if
// id does not name a node — construction-time programmer error, not a
// runtime user error.
func (g *Graph) AddInputPort(id NodeID) InputID {
	n := g.mustNode(id)
	in := n.nextInput
	n.nextInput++
	n.inputs[in] = struct{}{}
	return in
}

// AddOutputPort allocates a fresh OutputID on the node at id.
func (g *Graph) AddOutputPort(id NodeID) OutputID {
	n := g.mustNode(id)
	out := n.nextOutput
	n.nextOutput++
	n.outputs[out] = make(fanout)
	return out
}

// RemoveInputPort removes an input port and every edge feeding it.
func (g *Graph) RemoveInputPort(id NodeID, in InputID) bool {
	n := g.Node(id)
	if n == nil {
		return false
	}
	if _, ok := n.inputs[in]; !ok {
		return false
	}
	delete(n.inputs, in)
	for _, other := range g.nodes {
		otherID := g.idOf(other)
		for out, fo := range other.outputs {
			if ins, ok := fo[id]; ok {
				if _, ok := ins[in]; ok {
					delete(ins, in)
					delete(g.edgeSet, FullEdge{FromNode: otherID, FromOutput: out, ToNode: id, ToInput: in})
					if len(ins) == 0 {
						delete(fo, id)
					}
				}
			}
		}
	}
	return true
}

// RemoveOutputPort removes an output port and every edge it feeds.
func (g *Graph) RemoveOutputPort(id NodeID, out OutputID) bool {
	n := g.Node(id)
	if n == nil {
		return false
	}
	fo, ok := n.outputs[out]
	if !ok {
		return false
	}
	for sinkNode, ins := range fo {
		for in := range ins {
			delete(g.edgeSet, FullEdge{FromNode: id, FromOutput: out, ToNode: sinkNode, ToInput: in})
		}
	}
	delete(n.outputs, out)
	return true
}

func (g *Graph) mustNode(id NodeID) *Node {
	n := g.Node(id)
	if n == nil {
		panic(fmt.Sprintf("graph: no node with id %d", id))
	}
	return n
}

// TryInsertEdge inserts the edge from (fromNode, fromOutput) to
// (toNode, toInput). It returns (true, nil) if the edge is newly
// inserted, (false, nil) if it was already present (idempotent), or an
// error if a named port doesn't exist or the edge would introduce a
// cycle.
func (g *Graph) TryInsertEdge(fromNode NodeID, fromOutput OutputID, toNode NodeID, toInput InputID) (bool, error) {
	g.init()

	from := g.Node(fromNode)
	to := g.Node(toNode)

	fromPresent := from != nil
	if fromPresent {
		_, fromPresent = from.outputs[fromOutput]
	}
	toPresent := to != nil
	if toPresent {
		_, toPresent = to.inputs[toInput]
	}
	if !fromPresent || !toPresent {
		return false, &PortMissingError{FromPresent: fromPresent, ToPresent: toPresent}
	}

	full := FullEdge{FromNode: fromNode, FromOutput: fromOutput, ToNode: toNode, ToInput: toInput}
	if _, exists := g.edgeSet[full]; exists {
		return false, nil
	}

	if g.reaches(toNode, fromNode) {
		return false, ErrCycle
	}

	fo := from.outputs[fromOutput]
	if fo[toNode] == nil {
		fo[toNode] = make(map[InputID]struct{})
	}
	fo[toNode][toInput] = struct{}{}
	g.edgeSet[full] = struct{}{}
	return true, nil
}

// reaches performs forward reachability: can start reach target by
// following output->input edges? A node always reaches itself (a
// self-loop, i.e. an edge whose from and to node are identical, is
// rejected as a cycle by definition).
func (g *Graph) reaches(start, target NodeID) bool {
	if start == target {
		return true
	}
	visited := make(map[NodeID]struct{})
	stack := []NodeID{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[cur]; ok {
			continue
		}
		visited[cur] = struct{}{}
		if cur == target {
			return true
		}
		n := g.Node(cur)
		if n == nil {
			continue
		}
		for _, out := range n.OutputIDs() {
			for _, e := range n.Sinks(out) {
				if _, ok := visited[e.ToNode]; !ok {
					stack = append(stack, e.ToNode)
				}
			}
		}
	}
	return false
}

// RemoveEdge removes the edge from (fromNode, fromOutput) to
// (toNode, toInput). It returns (true, nil) if the edge was present and
// is now removed, (false, nil) if it was already absent, or a
// PortMissingError if either named port doesn't exist.
func (g *Graph) RemoveEdge(fromNode NodeID, fromOutput OutputID, toNode NodeID, toInput InputID) (bool, error) {
	g.init()

	from := g.Node(fromNode)
	to := g.Node(toNode)
	fromPresent := from != nil
	if fromPresent {
		_, fromPresent = from.outputs[fromOutput]
	}
	toPresent := to != nil
	if toPresent {
		_, toPresent = to.inputs[toInput]
	}
	if !fromPresent || !toPresent {
		return false, &PortMissingError{FromPresent: fromPresent, ToPresent: toPresent}
	}

	full := FullEdge{FromNode: fromNode, FromOutput: fromOutput, ToNode: toNode, ToInput: toInput}
	if _, exists := g.edgeSet[full]; !exists {
		return false, nil
	}
	delete(g.edgeSet, full)
	fo := from.outputs[fromOutput]
	ins := fo[toNode]
	delete(ins, toInput)
	if len(ins) == 0 {
		delete(fo, toNode)
	}
	return true, nil
}

// NumEdges returns the total number of distinct edges currently present,
// mostly useful for tests.
func (g *Graph) NumEdges() int {
	g.init()
	return len(g.edgeSet)
}

// Predecessors returns the distinct nodes that feed at least one input of
// id, in sorted order. The scheduler's topological sort walks these to
// build a producer-before-consumer process order.
func (g *Graph) Predecessors(id NodeID) []NodeID {
	g.init()
	set := make(map[NodeID]struct{})
	for other, n := range g.nodes {
		for _, fo := range n.outputs {
			if ins, ok := fo[id]; ok && len(ins) > 0 {
				set[other] = struct{}{}
			}
		}
	}
	ids := make([]NodeID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// InboundEdges returns every edge feeding input in of node id, naming the
// producer's (node, output) for each, in deterministic order.
func (g *Graph) InboundEdges(id NodeID, in InputID) []FullEdge {
	g.init()
	var edges []FullEdge
	for other, n := range g.nodes {
		for out, fo := range n.outputs {
			if ins, ok := fo[id]; ok {
				if _, ok := ins[in]; ok {
					edges = append(edges, FullEdge{FromNode: other, FromOutput: out, ToNode: id, ToInput: in})
				}
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromNode != edges[j].FromNode {
			return edges[i].FromNode < edges[j].FromNode
		}
		return edges[i].FromOutput < edges[j].FromOutput
	})
	return edges
}
