// Package buffer implements the runtime buffer dispatch side of the
// compiled schedule: translating a task's symbolic buffer indices into
// concrete sample slices, including the nested "super" input/output
// indirection a sub-graph uses to reach into its caller's buffer space.
package buffer

import "fmt"

// LocalKind tags whether an OutputBufferIndex names a buffer from this
// level's own intermediate pool (Local) or one inherited from the
// enclosing context (Super).
type LocalKind int

const (
	// Local buffers are allocated from this level's intermediate pool.
	Local LocalKind = iota
	// Super buffers are an output buffer of the enclosing context,
	// reached by recursing into the parent dispatcher.
	Super
)

// OutputBufferIndex names where a task's output is written.
type OutputBufferIndex struct {
	Kind LocalKind
	// Index is either an index into this level's local pool (Local) or
	// an index into the parent's output-index space (Super).
	Index int
}

// NewLocal builds a Local OutputBufferIndex.
func NewLocal(i int) OutputBufferIndex { return OutputBufferIndex{Kind: Local, Index: i} }

// NewSuperOutput builds a Super OutputBufferIndex.
func NewSuperOutput(i int) OutputBufferIndex { return OutputBufferIndex{Kind: Super, Index: i} }

func (o OutputBufferIndex) String() string {
	if o.Kind == Local {
		return fmt.Sprintf("Local(%d)", o.Index)
	}
	return fmt.Sprintf("Super(%d)", o.Index)
}

// InputKind tags whether a BufferIndex is a buffer supplied directly by
// the caller (SuperInput) or one produced within this level (Output).
type InputKind int

const (
	// SuperInput names an input buffer provided by the caller's context.
	SuperInput InputKind = iota
	// Output names a buffer produced within this level (which may
	// itself be Local or Super, see OutputBufferIndex).
	Output
)

// BufferIndex is the tagged variant described in spec §3: either a
// buffer provided directly to this level as an input, or a buffer this
// level's own compiled schedule produced.
type BufferIndex struct {
	Kind   InputKind
	Output OutputBufferIndex // valid when Kind == Output
	Index  int               // valid when Kind == SuperInput
}

// NewSuperInput builds a SuperInput BufferIndex.
func NewSuperInput(i int) BufferIndex { return BufferIndex{Kind: SuperInput, Index: i} }

// NewOutput builds an Output BufferIndex wrapping an OutputBufferIndex.
func NewOutput(o OutputBufferIndex) BufferIndex { return BufferIndex{Kind: Output, Output: o} }

func (b BufferIndex) String() string {
	if b.Kind == SuperInput {
		return fmt.Sprintf("SuperInput(%d)", b.Index)
	}
	return fmt.Sprintf("Output(%s)", b.Output)
}

// Unused is the sentinel marking "this port has no connection".
// Task input/output maps simply omit a port id to mean Unused — callers
// that want an explicit sentinel value can use this as a pointer-free
// substitute for Option<BufferIndex>/Option<OutputBufferIndex> when
// indexing by position rather than by a map keyed on port id.
var Unused = BufferIndex{Kind: SuperInput, Index: -1}

// IsUnused reports whether b is the Unused sentinel.
func (b BufferIndex) IsUnused() bool { return b.Kind == SuperInput && b.Index < 0 }
