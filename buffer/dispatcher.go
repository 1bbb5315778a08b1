package buffer

import (
	"errors"
	"fmt"

	"github.com/sigflow/polygraph/vec"
)

// ErrOutOfBounds is returned when a port index is beyond the number of
// ports a dispatcher was constructed with.
var ErrOutOfBounds = errors.New("buffer: port index out of bounds")

// ErrUnused is returned when a port has no connection. Callers typically
// treat this as "read silence" rather than propagating it.
var ErrUnused = errors.New("buffer: port is unused")

// PortHandle resolves a *local port index* (not a raw buffer index) to a
// concrete sample slice. The top-level Root and every nested Dispatcher
// both implement it, which is what lets a Dispatcher recurse into its
// parent uniformly regardless of how deep the nesting goes.
type PortHandle interface {
	InputAt(port int) ([]vec.F, error)
	OutputAt(port int) ([]vec.F, error)
}

// Root is the top-level buffer handle: the scheduler's own intermediate
// pool, with no parent. Local buffer indices index directly into Pool.
type Root struct {
	Pool [][]vec.F
}

// rawOutput resolves an OutputBufferIndex against the pool. Root never
// has a Super index to resolve (there is no parent to recurse into).
func (r *Root) rawOutput(o OutputBufferIndex) ([]vec.F, error) {
	if o.Kind != Local {
		return nil, fmt.Errorf("buffer: super output at top level has no parent")
	}
	if o.Index < 0 || o.Index >= len(r.Pool) {
		return nil, ErrOutOfBounds
	}
	return r.Pool[o.Index], nil
}

func (r *Root) rawInput(b BufferIndex) ([]vec.F, error) {
	if b.Kind == SuperInput {
		return nil, fmt.Errorf("buffer: super input at top level has no parent")
	}
	return r.rawOutput(b.Output)
}

// InputAt implements PortHandle: at the top level, "port" IS the raw
// local buffer index (there is no port-to-index translation to do).
func (r *Root) InputAt(port int) ([]vec.F, error) {
	return r.rawInput(NewOutput(NewLocal(port)))
}

// OutputAt implements PortHandle analogously for outputs.
func (r *Root) OutputAt(port int) ([]vec.F, error) {
	return r.rawOutput(NewLocal(port))
}

// Dispatcher is a nestable, ephemeral handle granting one node access to
// its buffers during a single process() call. A nested Dispatcher holds
// a parent PortHandle plus the local port-index -> BufferIndex maps
// describing how this node's ports reach into the caller's buffer space.
type Dispatcher struct {
	parent  PortHandle // nil at the top level
	pool    [][]vec.F  // this level's own intermediate buffers (may be nil)
	inputs  []BufferIndex
	outputs []OutputBufferIndex

	start int
	len   int // 0 means "unwindowed": use the full buffer length
}

// NewTopLevel builds the outermost Dispatcher directly over the
// scheduler's buffer pool, with no index translation (every local buffer
// index used by the top-level schedule is used as-is).
func NewTopLevel(pool [][]vec.F) *Dispatcher {
	return &Dispatcher{pool: pool}
}

// WithIndices attaches this node's local input/output port maps,
// producing the handle a Process task hands to a node's Processor.
func (d *Dispatcher) WithIndices(inputs []BufferIndex, outputs []OutputBufferIndex) *Dispatcher {
	return &Dispatcher{
		parent:  d.asParent(),
		pool:    d.pool,
		inputs:  inputs,
		outputs: outputs,
	}
}

// asParent returns a PortHandle view of d suitable for a nested
// dispatcher to recurse into: a dispatcher with indices resolves ports
// through its own maps; one without (the root pool holder) resolves
// ports directly against its pool.
func (d *Dispatcher) asParent() PortHandle {
	if d.inputs == nil && d.outputs == nil {
		return &Root{Pool: d.pool}
	}
	return d
}

// Append creates a nested Dispatcher one level down, handing it its own
// intermediate pool while keeping d as its parent — used when a node is
// itself a sub-graph that needs local buffers beyond what its caller
// handed it.
func (d *Dispatcher) Append(pool [][]vec.F) *Dispatcher {
	return &Dispatcher{parent: d.asParent(), pool: pool}
}

// Slice returns a windowed view of d covering [start, start+length),
// letting a node be invoked on a sub-range of the master buffer without
// copying (used to split a block at sample-accurate automation events).
func (d *Dispatcher) Slice(start, length int) *Dispatcher {
	nd := *d
	nd.start = start
	nd.len = length
	return &nd
}

func (d *Dispatcher) window(buf []vec.F) []vec.F {
	if d.len == 0 {
		return buf
	}
	end := d.start + d.len
	if end > len(buf) {
		end = len(buf)
	}
	if d.start > end {
		return nil
	}
	return buf[d.start:end]
}

// rawOutput resolves one of d's own OutputBufferIndex values: Local
// indexes into d's pool, Super recurses into the parent at port index i.
func (d *Dispatcher) rawOutput(o OutputBufferIndex) ([]vec.F, error) {
	switch o.Kind {
	case Local:
		if o.Index < 0 || o.Index >= len(d.pool) {
			return nil, ErrOutOfBounds
		}
		return d.pool[o.Index], nil
	default: // Super
		if d.parent == nil {
			return nil, fmt.Errorf("buffer: super output with no parent")
		}
		return d.parent.OutputAt(o.Index)
	}
}

func (d *Dispatcher) rawInput(b BufferIndex) ([]vec.F, error) {
	switch b.Kind {
	case SuperInput:
		if b.IsUnused() {
			return nil, ErrUnused
		}
		if d.parent == nil {
			return nil, fmt.Errorf("buffer: super input with no parent")
		}
		return d.parent.InputAt(b.Index)
	default: // Output
		return d.rawOutput(b.Output)
	}
}

// InputAt implements PortHandle: port is a local input port index into
// d's own inputs map, translated then recursed via rawInput.
func (d *Dispatcher) InputAt(port int) ([]vec.F, error) {
	if d.parent == nil && d.inputs == nil && d.outputs == nil {
		// Top level: port is a raw local buffer index (see NewTopLevel).
		return (&Root{Pool: d.pool}).InputAt(port)
	}
	if port < 0 || port >= len(d.inputs) {
		return nil, ErrOutOfBounds
	}
	return d.rawInput(d.inputs[port])
}

// OutputAt implements PortHandle analogously for output ports.
func (d *Dispatcher) OutputAt(port int) ([]vec.F, error) {
	if d.parent == nil && d.inputs == nil && d.outputs == nil {
		return (&Root{Pool: d.pool}).OutputAt(port)
	}
	if port < 0 || port >= len(d.outputs) {
		return nil, ErrOutOfBounds
	}
	return d.rawOutput(d.outputs[port])
}

// Input returns the (possibly windowed) sample slice for local input
// port index, for read access by a node's Process method.
func (d *Dispatcher) Input(port int) ([]vec.F, error) {
	raw, err := d.InputAt(port)
	if err != nil {
		return nil, err
	}
	return d.window(raw), nil
}

// Output returns the (possibly windowed) sample slice for local output
// port index, for write access by a node's Process method.
func (d *Dispatcher) Output(port int) ([]vec.F, error) {
	raw, err := d.OutputAt(port)
	if err != nil {
		return nil, err
	}
	return d.window(raw), nil
}

// ResolveOutput resolves a raw OutputBufferIndex directly, bypassing
// port-index translation. A schedule executor uses this at the top
// level to read/write the buffers a Sum or CopyToMaster task names
// directly, without wrapping them in a fabricated per-node port map.
func (d *Dispatcher) ResolveOutput(o OutputBufferIndex) ([]vec.F, error) {
	return d.rawOutput(o)
}

// ResolveInput resolves a raw BufferIndex directly, the input-side
// counterpart of ResolveOutput.
func (d *Dispatcher) ResolveInput(b BufferIndex) ([]vec.F, error) {
	return d.rawInput(b)
}

// BufferSize returns the number of samples a node should process this
// call, i.e. the windowed length (or the pool's natural buffer length
// when unwindowed and at least one local buffer exists).
func (d *Dispatcher) BufferSize() int {
	if d.len != 0 {
		return d.len
	}
	if len(d.pool) > 0 {
		return len(d.pool[0])
	}
	return 0
}
