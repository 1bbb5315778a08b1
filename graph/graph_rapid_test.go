package graph

import (
	"testing"

	"pgregory.net/rapid"
)

// TestTryInsertEdgeIsIdempotent is a property test of invariant 2: for
// any graph, inserting the same edge twice returns true then false, and
// the graph's edge count does not grow on the second attempt.
func TestTryInsertEdgeIsIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g := &Graph{}
		a := g.InsertNode()
		b := g.InsertNode()
		aOut := g.AddOutputPort(a)
		bIn := g.AddInputPort(b)

		first, err := g.TryInsertEdge(a, aOut, b, bIn)
		if err != nil {
			rt.Fatalf("first insertion failed: %v", err)
		}
		if !first {
			rt.Fatalf("first insertion of a fresh edge must return true")
		}
		before := g.NumEdges()

		second, err := g.TryInsertEdge(a, aOut, b, bIn)
		if err != nil {
			rt.Fatalf("re-insertion of the same edge must not error: %v", err)
		}
		if second {
			rt.Fatalf("re-insertion of an already-present edge must return false")
		}
		if g.NumEdges() != before {
			rt.Fatalf("re-insertion changed edge count: %d -> %d", before, g.NumEdges())
		}
	})
}
