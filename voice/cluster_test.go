package voice

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigflow/polygraph/vec"
)

func TestNewClusterParamsStartsAtDocumentedDefaults(t *testing.T) {
	cp := NewClusterParams()
	require.InDelta(t, DefaultParams[ParamPan], cp.Pan.Current()[0], 1e-6)
	require.InDelta(t, DefaultParams[ParamStereo], cp.Stereo.Current()[0], 1e-6)
}

func TestClusterParamsMoveStateSwapsBothValueAndTarget(t *testing.T) {
	a := NewClusterParams()
	b := NewClusterParams()
	a.Level.SetInstantly(vec.Splat(0.9), vec.SplatMask(true))
	a.Level.SetTarget(vec.Splat(0.1), vec.SplatMask(true))
	b.Level.SetInstantly(vec.Splat(0.2), vec.SplatMask(true))

	a.MoveState(0, b, 0)

	require.InDelta(t, 0.9, b.Level.Current()[0], 1e-6)
	require.InDelta(t, 0.1, b.Level.Target[0], 1e-6)
}

func TestMoveStateIsItsOwnInverse(t *testing.T) {
	a := NewClusterParams()
	a.Pan.SetInstantly(vec.Splat(0.75), vec.SplatMask(true))
	before := a.Pan.Current()[0]

	a.MoveState(0, a, 1)
	a.MoveState(1, a, 0)

	require.InDelta(t, before, a.Pan.Current()[0], 1e-6)
}

func TestGetSampleWeightsCenteredPanIsBalanced(t *testing.T) {
	cp := NewClusterParams()
	normal, _ := cp.GetSampleWeights()
	// Default pan (0.5) and stereo (1.0) should leave left and right
	// lanes of the first voice equally weighted.
	require.InDelta(t, normal[0], normal[1], 1e-4)
}

func TestWTOscVoiceClusterActiveVoicesVisitsOnlyMaskedSlots(t *testing.T) {
	c := NewWTOscVoiceCluster()
	c.ActiveVoiceMask = 1 << 1 // only voice slot 1 active

	var visited []int
	c.ActiveVoices(func(index int, oscs []*Oscillator) {
		visited = append(visited, index)
	})
	require.Equal(t, []int{1}, visited)
}

func TestWTOscVoiceClusterMoveStateSwapsActiveBit(t *testing.T) {
	c := NewWTOscVoiceCluster()
	c.ActiveVoiceMask = 1 << 0 // slot 0 active, slot 1 inactive

	c.MoveState(0, c, 1)

	require.Equal(t, uint8(0), c.ActiveVoiceMask&(1<<0), "the vacated slot must be cleared")
	require.NotEqual(t, uint8(0), c.ActiveVoiceMask&(1<<1), "the destination slot inherits the moved voice's active bit")
}

func TestResetPhasesOnlyTouchesMaskedVoices(t *testing.T) {
	c := NewWTOscVoiceCluster()
	start := []vec.F{vec.Splat(0.5)}
	mask := vec.SplatMask(false)
	mask[0], mask[1] = true, true // voice slot 0 only

	c.ResetPhases(mask, vec.Splat(1), start)

	require.NotEqual(t, vec.U{}, c.Voices[0][0].Phase, "the masked voice's phase should be seeded")
	require.Equal(t, vec.U{}, c.Voices[1][0].Phase, "an unmasked voice's phase must be left untouched")
}
