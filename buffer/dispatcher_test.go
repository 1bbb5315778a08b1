package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigflow/polygraph/vec"
)

func TestTopLevelDispatchReadsAndWritesPool(t *testing.T) {
	pool := [][]vec.F{
		{vec.Splat(1), vec.Splat(2)},
		{vec.Splat(0), vec.Splat(0)},
	}
	root := NewTopLevel(pool)

	in, err := root.InputAt(0)
	require.NoError(t, err)
	require.Equal(t, vec.Splat(1), in[0])

	out, err := root.OutputAt(1)
	require.NoError(t, err)
	out[0] = vec.Splat(42)
	require.Equal(t, vec.Splat(42), pool[1][0])
}

func TestWithIndicesResolvesLocalIndicesIntoPool(t *testing.T) {
	pool := [][]vec.F{
		{vec.Splat(7)}, // buffer 0: a node's output in the caller's space
		{vec.Splat(0)}, // buffer 1: this node's output
	}
	root := NewTopLevel(pool)

	// Node has one input wired to caller buffer 0, one output wired to
	// caller buffer 1.
	node := root.WithIndices(
		[]BufferIndex{NewOutput(NewLocal(0))},
		[]OutputBufferIndex{NewLocal(1)},
	)

	in, err := node.Input(0)
	require.NoError(t, err)
	require.Equal(t, vec.Splat(7), in[0])

	out, err := node.Output(0)
	require.NoError(t, err)
	out[0] = vec.Splat(9)
	require.Equal(t, vec.Splat(9), pool[1][0])
}

func TestUnusedInputReturnsErrUnused(t *testing.T) {
	root := NewTopLevel([][]vec.F{{vec.Splat(0)}})
	node := root.WithIndices([]BufferIndex{Unused}, nil)

	_, err := node.Input(0)
	require.ErrorIs(t, err, ErrUnused)
}

func TestSliceWindowsReadsAndWrites(t *testing.T) {
	pool := [][]vec.F{make([]vec.F, 8)}
	for i := range pool[0] {
		pool[0][i] = vec.Splat(float32(i))
	}
	root := NewTopLevel(pool)
	node := root.WithIndices(nil, []OutputBufferIndex{NewLocal(0)})

	windowed := node.Slice(2, 3)
	out, err := windowed.Output(0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, vec.Splat(2), out[0])
	require.Equal(t, vec.Splat(4), out[2])
}

func TestResolveOutputAndInputBypassPortIndices(t *testing.T) {
	pool := [][]vec.F{{vec.Splat(3)}, {vec.Splat(5)}}
	root := NewTopLevel(pool)

	out, err := root.ResolveOutput(NewLocal(1))
	require.NoError(t, err)
	require.Equal(t, vec.Splat(5), out[0])

	in, err := root.ResolveInput(NewOutput(NewLocal(0)))
	require.NoError(t, err)
	require.Equal(t, vec.Splat(3), in[0])
}

func TestOutOfBoundsPortIndex(t *testing.T) {
	root := NewTopLevel([][]vec.F{{vec.Splat(0)}})
	node := root.WithIndices(nil, nil)

	_, err := node.Input(0)
	require.ErrorIs(t, err, ErrOutOfBounds)
	_, err = node.Output(0)
	require.ErrorIs(t, err, ErrOutOfBounds)
}
