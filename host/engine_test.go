package host

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEngineCompilesDemoGraph(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 64
	cfg.NumBlocks = 4

	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	numNodes, numBuffers, numTasks := engine.Stats()
	require.Equal(t, 3, numNodes) // oscillator, filter, master sink
	require.Greater(t, numBuffers, 0)
	require.Greater(t, numTasks, 0)
}

func TestRenderBlockProducesNonSilentStereoAudio(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 128
	cfg.Note = 69
	cfg.Velocity = 1

	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	left, right, err := engine.RenderBlock()
	require.NoError(t, err)
	require.Len(t, left, cfg.BufferSize)
	require.Len(t, right, cfg.BufferSize)

	var energy float64
	for i := range left {
		energy += float64(left[i])*float64(left[i]) + float64(right[i])*float64(right[i])
	}
	require.Greater(t, energy, 0.0, "an active voice through the demo chain should produce audible signal")
}

func TestRenderBlockIsStableAcrossManyBlocks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 64

	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		left, right, err := engine.RenderBlock()
		require.NoError(t, err)
		for j := range left {
			require.False(t, isNaNOrInf(left[j]), "left[%d] at block %d", j, i)
			require.False(t, isNaNOrInf(right[j]), "right[%d] at block %d", j, i)
		}
	}
}

func isNaNOrInf(x float32) bool {
	return x != x || x > 1e9 || x < -1e9
}
