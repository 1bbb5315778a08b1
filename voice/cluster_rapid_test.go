package voice

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/sigflow/polygraph/vec"
)

func randomVec(rt *rapid.T, label string) vec.F {
	var v vec.F
	for i := range v {
		v[i] = float32(rapid.Float64Range(-10, 10).Draw(rt, label))
	}
	return v
}

// TestClusterParamsMoveStateRoundTrips is a property test of invariant 4:
// move_state(x, y); move_state(y, x) must be an identity on cluster
// state, for any starting values and any pair of lane-pair indices.
func TestClusterParamsMoveStateRoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := NewClusterParams()
		a.Level.SetInstantly(randomVec(rt, "level"), vec.SplatMask(true))
		a.Pan.SetInstantly(randomVec(rt, "pan"), vec.SplatMask(true))
		a.SetBasePhaseDelta(randomVec(rt, "phaseDelta"), vec.SplatMask(true))

		beforeLevel := a.Level.Current_
		beforePhaseDelta := a.PhaseDelta
		from := rapid.IntRange(0, vec.StereoVoices-1).Draw(rt, "from")
		to := rapid.IntRange(0, vec.StereoVoices-1).Draw(rt, "to")

		a.MoveState(from, a, to)
		a.MoveState(to, a, from)

		if beforeLevel != a.Level.Current_ {
			rt.Fatalf("level not restored: %v -> %v", beforeLevel, a.Level.Current_)
		}
		if beforePhaseDelta != a.PhaseDelta {
			rt.Fatalf("phase delta not restored: %v -> %v", beforePhaseDelta, a.PhaseDelta)
		}
	})
}
