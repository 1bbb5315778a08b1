package voice

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/sigflow/polygraph/vec"
)

// TestClusterParamsTickNMatchesSequentialTicks is a property test of
// invariant 6: TickN(log2Alpha, n)'s single jump must agree with n
// sequential SmoothExp(alpha) calls (alpha = 2^log2Alpha) to within
// floating-point round-off.
func TestClusterParamsTickNMatchesSequentialTicks(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		log2Alpha := float32(rapid.Float64Range(-4, -0.01).Draw(rt, "log2Alpha"))
		n := rapid.IntRange(1, 64).Draw(rt, "n")
		start := float32(rapid.Float64Range(-5, 5).Draw(rt, "start"))
		target := float32(rapid.Float64Range(-5, 5).Draw(rt, "target"))

		jumped := NewClusterParams()
		jumped.Level.SetInstantly(vec.Splat(start), vec.SplatMask(true))
		jumped.Level.SetTarget(vec.Splat(target), vec.SplatMask(true))
		jumped.TickN(log2Alpha, n)

		sequential := NewGenericSmoother(vec.Splat(start))
		sequential.SetTarget(vec.Splat(target), vec.SplatMask(true))
		perTick := vec.Splat(float32(math.Exp2(float64(log2Alpha))))
		for i := 0; i < n; i++ {
			sequential.SmoothExp(perTick)
		}

		got := jumped.Level.Current()[0]
		want := sequential.Current()[0]
		if math.Abs(float64(got-want)) > 1e-3*(1+math.Abs(float64(want))) {
			rt.Fatalf("TickN jump diverged from %d sequential ticks: got %v want %v", n, got, want)
		}
	})
}
