package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigflow/polygraph/vec"
)

func TestIntegratorAccumulatesUnboundedUnderConstantInput(t *testing.T) {
	var integ Integrator
	v := vec.Splat(0.1)
	for i := 0; i < 3; i++ {
		integ.Process(v)
	}
	// A bare trapezoidal integrator has no feedback damping it: driven
	// by a constant it accumulates linearly, y_n = v*(2n-1).
	require.InDelta(t, 0.5, integ.Output()[0], 1e-6)
}

func TestOnePoleDampsWhatIntegratorWouldAccumulate(t *testing.T) {
	var p OnePole
	g1 := G1(vec.Splat(0.1))
	for i := 0; i < 500; i++ {
		p.Process(vec.Splat(1), g1)
	}
	// Unlike a bare Integrator, a OnePole's feedback makes it settle to
	// a bounded steady state equal to its input.
	require.InDelta(t, 1.0, p.Lowpass()[0], 0.01)
}

func TestSVFLowpassAttenuatesAboveCutoff(t *testing.T) {
	var f SVF
	sampleRate := 48000.0
	cutoff := 200.0
	g := vec.TanHalf(vec.Splat(float32(2 * math.Pi * cutoff / sampleRate)))
	res := vec.Splat(1)

	// Drive the filter with a sine well above cutoff and measure the
	// settled peak amplitude of the lowpass output against the input.
	freq := 5000.0
	n := 2000
	var inPeak, outPeak float32
	for i := 0; i < n; i++ {
		x := float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
		f.Process(vec.Splat(x), g, res)
		lp := f.Lowpass()[0]
		if i > n/2 { // only measure the settled tail
			if x > inPeak {
				inPeak = x
			}
			if lp > outPeak {
				outPeak = lp
			}
		}
	}
	require.Less(t, outPeak, inPeak*0.5, "a lowpass well above cutoff must attenuate the signal substantially")
}

func TestSVFPassthroughReturnsRawInput(t *testing.T) {
	var f SVF
	g := vec.Splat(0.1)
	res := vec.Splat(0.5)
	f.Process(vec.Splat(3), g, res)
	require.Equal(t, vec.Splat(3), f.Passthrough())
}

func TestOnePoleHighpassComplementsLowpass(t *testing.T) {
	var p OnePole
	g1 := G1(vec.Splat(0.3))
	p.Process(vec.Splat(2), g1)
	require.InDelta(t, 2.0, p.Lowpass()[0]+p.Highpass()[0], 1e-6)
}
