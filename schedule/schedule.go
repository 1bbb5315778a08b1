// Package schedule compiles a graph.Graph into a flat, ordered list of
// ProcessTask values: the buffer-lifetime analysis that turns a DAG of
// nodes into something a realtime loop can execute with a fixed pool of
// preallocated buffers and no further allocation.
package schedule

import (
	"fmt"
	"sort"

	"github.com/sigflow/polygraph/buffer"
	"github.com/sigflow/polygraph/graph"
)

// TaskKind tags which variant a ProcessTask holds.
type TaskKind int

const (
	// KindProcess runs one graph node against its assigned input/output
	// buffers.
	KindProcess TaskKind = iota
	// KindSum adds two buffers together into a fresh one, emitted when a
	// single input port is fed by more than one producer.
	KindSum
	// KindCopyToMaster copies a finished root buffer into one or more
	// channels of the caller's master output.
	KindCopyToMaster
)

// ProcessTask is one entry of a compiled schedule. Exactly the fields
// relevant to Kind are populated; the rest are zero.
type ProcessTask struct {
	Kind TaskKind

	// KindProcess
	Node    graph.NodeID
	Inputs  map[graph.InputID]buffer.BufferIndex
	Outputs map[graph.OutputID]buffer.OutputBufferIndex

	// KindSum
	Left, Right buffer.BufferIndex
	SumOutput   buffer.OutputBufferIndex

	// KindCopyToMaster
	CopyInput      buffer.BufferIndex
	MasterChannels []int
}

func (t ProcessTask) String() string {
	switch t.Kind {
	case KindProcess:
		return fmt.Sprintf("Process(node=%d, in=%v, out=%v)", t.Node, t.Inputs, t.Outputs)
	case KindSum:
		return fmt.Sprintf("Sum(%s + %s -> %s)", t.Left, t.Right, t.SumOutput)
	case KindCopyToMaster:
		return fmt.Sprintf("CopyToMaster(%s -> %v)", t.CopyInput, t.MasterChannels)
	default:
		return "Unknown"
	}
}

// Schedule is a compiled, orderable list of tasks plus the size of the
// intermediate buffer pool a runtime must preallocate before executing
// it, and the number of master output channels roots were distributed
// across.
type Schedule struct {
	Tasks          []ProcessTask
	NumBuffers     int
	MasterChannels int
}

type claimKey struct {
	node  graph.NodeID
	input graph.InputID
}

// allocator implements the phase-2 buffer-lifetime bookkeeping: which
// intermediate buffer satisfies each (node, input) claim, which claims
// are still pending against each buffer, and a free list of buffers
// whose last pending claim has been consumed.
type allocator struct {
	claims     map[claimKey]int
	pending    map[int]map[claimKey]struct{}
	numBuffers int
	freeList   []int
}

func newAllocator() *allocator {
	return &allocator{
		claims:  make(map[claimKey]int),
		pending: make(map[int]map[claimKey]struct{}),
	}
}

func (a *allocator) alloc() int {
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		return idx
	}
	idx := a.numBuffers
	a.numBuffers++
	return idx
}

func (a *allocator) addPending(buf int, key claimKey) {
	if a.pending[buf] == nil {
		a.pending[buf] = make(map[claimKey]struct{})
	}
	a.pending[buf][key] = struct{}{}
}

func (a *allocator) releasePending(buf int, key claimKey) {
	delete(a.pending[buf], key)
}

func (a *allocator) maybeFree(buf int) {
	if len(a.pending[buf]) == 0 {
		delete(a.pending, buf)
		a.freeList = append(a.freeList, buf)
	}
}

// insertClaim assigns buf as the buffer satisfying key. If key already
// carries a claim (another producer already reached this sink), a Sum
// task combining the two is appended to schedule and the claim is
// retargeted at the sum's output buffer instead.
func (a *allocator) insertClaim(key claimKey, buf int, tasks *[]ProcessTask) {
	if existing, ok := a.claims[key]; ok {
		a.releasePending(existing, key)
		// Free the prior claim's buffer first so the sum can be written
		// straight back into it when nothing else still reads it. buf
		// itself is freed by the caller once all of its sinks are claimed.
		a.maybeFree(existing)
		sumBuf := a.alloc()
		*tasks = append(*tasks, ProcessTask{
			Kind:      KindSum,
			Left:      buffer.NewOutput(buffer.NewLocal(existing)),
			Right:     buffer.NewOutput(buffer.NewLocal(buf)),
			SumOutput: buffer.NewLocal(sumBuf),
		})
		a.claims[key] = sumBuf
		a.addPending(sumBuf, key)
		return
	}
	a.claims[key] = buf
	a.addPending(buf, key)
}

// buildProcessOrder performs the transposed DFS of spec §4.2: visiting a
// node's predecessors before the node itself, starting from roots, so
// producers always precede their consumers in the returned order. Nodes
// unreachable from any root are never visited (and so never scheduled).
func buildProcessOrder(g *graph.Graph, roots []graph.NodeID) ([]graph.NodeID, error) {
	visited := make(map[graph.NodeID]bool)
	var order []graph.NodeID

	var visit func(id graph.NodeID) error
	visit = func(id graph.NodeID) error {
		if visited[id] {
			return nil
		}
		visited[id] = true
		for _, pred := range g.Predecessors(id) {
			if err := visit(pred); err != nil {
				return err
			}
		}
		order = append(order, id)
		return nil
	}

	for _, root := range roots {
		if g.Node(root) == nil {
			return nil, fmt.Errorf("%w: %d", graph.ErrUnknownRoot, root)
		}
		if err := visit(root); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// isRoot reports whether id appears in roots.
func isRoot(roots []graph.NodeID, id graph.NodeID) bool {
	for _, r := range roots {
		if r == id {
			return true
		}
	}
	return false
}

// Compile turns g into an executable Schedule rooted at roots: every
// node reachable backwards from roots is scheduled exactly once, in an
// order where a node's inputs are always ready by the time it runs, and
// the intermediate buffer pool is reused as aggressively as lifetimes
// allow.
//
// Phase 3 (root rewrite) runs last: a root represents a master output,
// so each of its *input* claims — not its output ports, which a pure
// sink node need not have at all — is served by an appended
// CopyToMaster task, in root list order then input-port order. A root
// with an unconnected input contributes no channel.
func Compile(g *graph.Graph, roots []graph.NodeID) (*Schedule, error) {
	order, err := buildProcessOrder(g, roots)
	if err != nil {
		return nil, err
	}

	a := newAllocator()
	var tasks []ProcessTask
	masterChannel := 0

	for _, id := range order {
		node := g.Node(id)
		inIDs := node.InputIDs()
		outIDs := node.OutputIDs()

		inputs := make(map[graph.InputID]buffer.BufferIndex, len(inIDs))
		for _, in := range inIDs {
			key := claimKey{node: id, input: in}
			buf, ok := a.claims[key]
			if !ok {
				continue // unconnected input: processor reads silence
			}
			inputs[in] = buffer.NewOutput(buffer.NewLocal(buf))
			a.releasePending(buf, key)
			a.maybeFree(buf)
		}

		outputs := make(map[graph.OutputID]buffer.OutputBufferIndex, len(outIDs))
		bufOf := make(map[graph.OutputID]int, len(outIDs))
		for _, out := range outIDs {
			buf := a.alloc()
			outputs[out] = buffer.NewLocal(buf)
			bufOf[out] = buf
		}

		// The node's own task must run before anything that reads the
		// buffers just allocated for its outputs.
		tasks = append(tasks, ProcessTask{
			Kind:    KindProcess,
			Node:    id,
			Inputs:  inputs,
			Outputs: outputs,
		})

		for _, out := range outIDs {
			buf := bufOf[out]

			sinks := node.Sinks(out)
			sort.Slice(sinks, func(i, j int) bool {
				if sinks[i].ToNode != sinks[j].ToNode {
					return sinks[i].ToNode < sinks[j].ToNode
				}
				return sinks[i].ToInput < sinks[j].ToInput
			})
			for _, sink := range sinks {
				a.insertClaim(claimKey{node: sink.ToNode, input: sink.ToInput}, buf, &tasks)
			}

			a.maybeFree(buf)
		}

		if isRoot(roots, id) {
			for _, in := range inIDs {
				bi, ok := inputs[in]
				if !ok {
					continue // unconnected root input: no master channel
				}
				tasks = append(tasks, ProcessTask{
					Kind:           KindCopyToMaster,
					CopyInput:      bi,
					MasterChannels: []int{masterChannel},
				})
				masterChannel++
			}
		}
	}

	return &Schedule{Tasks: tasks, NumBuffers: a.numBuffers, MasterChannels: masterChannel}, nil
}
