package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndConnectNodes(t *testing.T) {
	var g Graph

	src := g.InsertNode()
	dst := g.InsertNode()
	out := g.AddOutputPort(src)
	in := g.AddInputPort(dst)

	inserted, err := g.TryInsertEdge(src, out, dst, in)
	require.NoError(t, err)
	require.True(t, inserted)
	require.Equal(t, 1, g.NumEdges())

	// Reinserting the same edge is idempotent.
	inserted, err = g.TryInsertEdge(src, out, dst, in)
	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, 1, g.NumEdges())

	require.Equal(t, []NodeID{src}, g.Predecessors(dst))
}

func TestTryInsertEdgeRejectsMissingPorts(t *testing.T) {
	var g Graph
	src := g.InsertNode()
	dst := g.InsertNode()

	_, err := g.TryInsertEdge(src, 0, dst, 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrPortMissing))
}

func TestTryInsertEdgeRejectsCycle(t *testing.T) {
	var g Graph
	a := g.InsertNode()
	b := g.InsertNode()

	aOut := g.AddOutputPort(a)
	aIn := g.AddInputPort(a)
	bOut := g.AddOutputPort(b)
	bIn := g.AddInputPort(b)

	_, err := g.TryInsertEdge(a, aOut, b, bIn)
	require.NoError(t, err)

	_, err = g.TryInsertEdge(b, bOut, a, aIn)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCycle))
}

func TestTryInsertEdgeRejectsSelfLoop(t *testing.T) {
	var g Graph
	a := g.InsertNode()
	out := g.AddOutputPort(a)
	in := g.AddInputPort(a)

	_, err := g.TryInsertEdge(a, out, a, in)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCycle))
}

func TestRemoveInputPortDropsInboundEdges(t *testing.T) {
	var g Graph
	src := g.InsertNode()
	dst := g.InsertNode()
	out := g.AddOutputPort(src)
	in := g.AddInputPort(dst)
	_, err := g.TryInsertEdge(src, out, dst, in)
	require.NoError(t, err)

	require.True(t, g.RemoveInputPort(dst, in))
	require.Equal(t, 0, g.NumEdges())
	require.Empty(t, g.Node(src).Sinks(out))
}

func TestRemoveOutputPortDropsOutboundEdges(t *testing.T) {
	var g Graph
	src := g.InsertNode()
	dst := g.InsertNode()
	out := g.AddOutputPort(src)
	in := g.AddInputPort(dst)
	_, err := g.TryInsertEdge(src, out, dst, in)
	require.NoError(t, err)

	require.True(t, g.RemoveOutputPort(src, out))
	require.Equal(t, 0, g.NumEdges())
}

func TestRemoveNodeDropsEveryTouchingEdge(t *testing.T) {
	var g Graph
	a := g.InsertNode()
	b := g.InsertNode()
	c := g.InsertNode()

	aOut := g.AddOutputPort(a)
	bIn := g.AddInputPort(b)
	bOut := g.AddOutputPort(b)
	cIn := g.AddInputPort(c)

	_, err := g.TryInsertEdge(a, aOut, b, bIn)
	require.NoError(t, err)
	_, err = g.TryInsertEdge(b, bOut, c, cIn)
	require.NoError(t, err)
	require.Equal(t, 2, g.NumEdges())

	require.True(t, g.RemoveNode(b))
	require.Equal(t, 0, g.NumEdges())
	require.Nil(t, g.Node(b))
}

func TestInboundEdgesOrderedDeterministically(t *testing.T) {
	var g Graph
	a := g.InsertNode()
	b := g.InsertNode()
	dst := g.InsertNode()

	aOut := g.AddOutputPort(a)
	bOut := g.AddOutputPort(b)
	in := g.AddInputPort(dst)

	_, err := g.TryInsertEdge(b, bOut, dst, in)
	require.NoError(t, err)
	_, err = g.TryInsertEdge(a, aOut, dst, in)
	require.NoError(t, err)

	edges := g.InboundEdges(dst, in)
	require.Len(t, edges, 2)
	require.Equal(t, a, edges[0].FromNode)
	require.Equal(t, b, edges[1].FromNode)
}
