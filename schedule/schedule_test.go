package schedule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigflow/polygraph/graph"
)

// buildSink wires a literal master(1 in) sink node, the shape scenarios
// 1-3 root every example graph on: zero outputs, one input, so the
// scheduler's only way to notice it is a root at all is through its
// input claim rather than any output port it doesn't have.
func buildSink(g *graph.Graph) (graph.NodeID, graph.InputID) {
	master := g.InsertNode()
	in := g.AddInputPort(master)
	return master, in
}

// TestCompileEmptyChainAppendsCopyToMaster mirrors scenario 1: a single
// producer feeding a master sink with no outputs of its own. This
// implementation always appends an explicit CopyToMaster for a root's
// connected input claim, so the task list runs one entry longer than
// §8's literal listing; node order and buffer count match exactly.
func TestCompileEmptyChainAppendsCopyToMaster(t *testing.T) {
	var g graph.Graph
	node := g.InsertNode()
	out := g.AddOutputPort(node)
	master, in := buildSink(&g)

	_, err := g.TryInsertEdge(node, out, master, in)
	require.NoError(t, err)

	sched, err := Compile(&g, []graph.NodeID{master})
	require.NoError(t, err)
	require.Equal(t, 1, sched.NumBuffers)

	var kinds []TaskKind
	for _, task := range sched.Tasks {
		kinds = append(kinds, task.Kind)
	}
	require.Equal(t, []TaskKind{KindProcess, KindProcess, KindCopyToMaster}, kinds)
	require.Equal(t, node, sched.Tasks[0].Node)
	require.Equal(t, master, sched.Tasks[1].Node)
}

// TestCompileLinearChainReusesBuffers mirrors scenario 2: a chain of 3
// unit nodes into a master sink, all sharing one buffer slot (plus the
// appended CopyToMaster, as in scenario 1 above).
func TestCompileLinearChainReusesBuffers(t *testing.T) {
	var g graph.Graph
	a := g.InsertNode()
	b := g.InsertNode()
	c := g.InsertNode()

	aOut := g.AddOutputPort(a)
	bIn := g.AddInputPort(b)
	bOut := g.AddOutputPort(b)
	cIn := g.AddInputPort(c)
	cOut := g.AddOutputPort(c)
	master, masterIn := buildSink(&g)

	_, err := g.TryInsertEdge(a, aOut, b, bIn)
	require.NoError(t, err)
	_, err = g.TryInsertEdge(b, bOut, c, cIn)
	require.NoError(t, err)
	_, err = g.TryInsertEdge(c, cOut, master, masterIn)
	require.NoError(t, err)

	sched, err := Compile(&g, []graph.NodeID{master})
	require.NoError(t, err)

	// Every node in a straight chain consumes its input and produces
	// its output without overlapping any other node's lifetime, so the
	// allocator reuses the same single buffer slot for the whole chain.
	require.Equal(t, 1, sched.NumBuffers)

	var kinds []TaskKind
	for _, task := range sched.Tasks {
		kinds = append(kinds, task.Kind)
	}
	require.Equal(t, []TaskKind{KindProcess, KindProcess, KindProcess, KindProcess, KindCopyToMaster}, kinds)
	require.Equal(t, a, sched.Tasks[0].Node)
	require.Equal(t, b, sched.Tasks[1].Node)
	require.Equal(t, c, sched.Tasks[2].Node)
	require.Equal(t, master, sched.Tasks[3].Node)
}

// TestCompileFanInEmitsSum mirrors scenario 3: two sources summed into
// one master input.
func TestCompileFanInEmitsSum(t *testing.T) {
	var g graph.Graph
	a := g.InsertNode()
	b := g.InsertNode()
	master, in := buildSink(&g)

	aOut := g.AddOutputPort(a)
	bOut := g.AddOutputPort(b)

	_, err := g.TryInsertEdge(a, aOut, master, in)
	require.NoError(t, err)
	_, err = g.TryInsertEdge(b, bOut, master, in)
	require.NoError(t, err)

	sched, err := Compile(&g, []graph.NodeID{master})
	require.NoError(t, err)
	require.Equal(t, 2, sched.NumBuffers)

	var kinds []TaskKind
	for _, task := range sched.Tasks {
		kinds = append(kinds, task.Kind)
	}
	require.Equal(t, []TaskKind{KindProcess, KindProcess, KindSum, KindProcess, KindCopyToMaster}, kinds)
}

func TestCompileUnknownRoot(t *testing.T) {
	var g graph.Graph
	a := g.InsertNode()

	_, err := Compile(&g, []graph.NodeID{a + 1})
	require.Error(t, err)
	require.True(t, errors.Is(err, graph.ErrUnknownRoot))
}

// TestCompileSinkRootWithNoOutputsStillProducesCopyToMaster guards
// against the root rewrite being keyed on a root's output ports: a
// root shaped exactly like scenario 1's master node (zero outputs)
// must still yield a CopyToMaster task from its single input claim.
func TestCompileSinkRootWithNoOutputsStillProducesCopyToMaster(t *testing.T) {
	var g graph.Graph
	node := g.InsertNode()
	out := g.AddOutputPort(node)
	master := g.InsertNode()
	in := g.AddInputPort(master)
	require.Equal(t, 0, len(g.Node(master).OutputIDs()))

	_, err := g.TryInsertEdge(node, out, master, in)
	require.NoError(t, err)

	sched, err := Compile(&g, []graph.NodeID{master})
	require.NoError(t, err)

	var sawCopy bool
	for _, task := range sched.Tasks {
		if task.Kind == KindCopyToMaster {
			sawCopy = true
			require.Equal(t, []int{0}, task.MasterChannels)
		}
	}
	require.True(t, sawCopy, "a root with no output ports must still produce a CopyToMaster from its input claim")
}

// TestCompileAssignsSequentialMasterChannels covers a root with
// multiple input ports: each connected input claim gets its own
// sequential master channel.
func TestCompileAssignsSequentialMasterChannels(t *testing.T) {
	var g graph.Graph
	master := g.InsertNode()
	in1 := g.AddInputPort(master)
	in2 := g.AddInputPort(master)

	a := g.InsertNode()
	aOut := g.AddOutputPort(a)
	b := g.InsertNode()
	bOut := g.AddOutputPort(b)

	_, err := g.TryInsertEdge(a, aOut, master, in1)
	require.NoError(t, err)
	_, err = g.TryInsertEdge(b, bOut, master, in2)
	require.NoError(t, err)

	sched, err := Compile(&g, []graph.NodeID{master})
	require.NoError(t, err)
	require.Equal(t, 2, sched.MasterChannels)

	var channels []int
	for _, task := range sched.Tasks {
		if task.Kind == KindCopyToMaster {
			channels = append(channels, task.MasterChannels...)
		}
	}
	require.Equal(t, []int{0, 1}, channels)
}
