package voice

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigflow/polygraph/vec"
)

func TestLinearSmootherRampsToTargetOverT(t *testing.T) {
	s := NewLinearSmoother(vec.Splat(0))
	s.SetTarget(vec.Splat(10), vec.Splat(5))
	for i := 0; i < 5; i++ {
		s.Tick1()
	}
	require.InDelta(t, 10, s.Current()[0], 1e-4)
}

func TestLinearSmootherSetInstantlyClearsIncrement(t *testing.T) {
	s := NewLinearSmoother(vec.Splat(0))
	s.SetTarget(vec.Splat(10), vec.Splat(5))
	s.SetInstantly(vec.Splat(3), vec.SplatMask(true))
	require.Equal(t, vec.Splat(3), s.Current())
	s.Tick1()
	require.Equal(t, vec.Splat(3), s.Current(), "instant set must zero the increment too")
}

func TestLogSmootherApproachesTargetMultiplicatively(t *testing.T) {
	s := NewLogSmoother(vec.Splat(1))
	s.SetTargetRecip(vec.Splat(4), vec.Splat(1))
	s.Tick1()
	require.InDelta(t, 4, s.Current()[0], 1e-4)
}

func TestLogSmootherRejectsZeroStartingValue(t *testing.T) {
	s := NewLogSmoother(vec.F{})
	require.Equal(t, vec.Splat(1), s.Current(), "a zero starting value is not a valid ratio, so it is replaced with 1")
}

func TestGenericSmootherSmoothExpConvergesTowardsTarget(t *testing.T) {
	s := NewGenericSmoother(vec.Splat(0))
	s.SetTarget(vec.Splat(1), vec.SplatMask(true))
	for i := 0; i < 200; i++ {
		s.SmoothExp(vec.Splat(0.9))
	}
	require.InDelta(t, 1, s.Current()[0], 1e-3)
}

func TestTickNReturnsOneSampleOfHistoryPerTick(t *testing.T) {
	s := NewLinearSmoother(vec.Splat(0))
	s.SetTarget(vec.Splat(4), vec.Splat(4))
	out := TickN(s, 4, vec.Splat(1))
	require.Len(t, out, 4)
	require.InDelta(t, 4, out[3][0], 1e-4)
}
