package dsp

import "github.com/sigflow/polygraph/vec"

// OnePole is a one-pole (6dB/octave) topology-preserving-transform
// filter, offering lowpass, highpass, allpass, and shelving outputs from
// a single integrator.
type OnePole struct {
	lp Integrator
	x  vec.F
}

// Reset silences the filter's internal state.
func (f *OnePole) Reset() { f.lp.Reset() }

// G1 derives the feedback coefficient g1 = g/(1+g) from the prewarped
// cutoff coefficient g (call vec.TanHalf(wc) to get g from an angular
// cutoff frequency).
func G1(g vec.F) vec.F {
	return g.Div(vec.Splat(1).Add(g))
}

// Process feeds x through the filter for one sample using feedback
// coefficient g1 (see G1); call one of the output methods (Lowpass,
// Highpass, ...) afterwards to read an output shape.
func (f *OnePole) Process(x, g1 vec.F) {
	f.x = x
	f.lp.Process(x.Sub(f.lp.State()).Mul(g1))
}

// Passthrough returns the filter's unfiltered input from the most
// recent Process call.
func (f *OnePole) Passthrough() vec.F { return f.x }

// Lowpass returns the filter's lowpass output.
func (f *OnePole) Lowpass() vec.F { return f.lp.Output() }

// Highpass returns the filter's highpass output (input minus lowpass).
func (f *OnePole) Highpass() vec.F { return f.x.Sub(f.Lowpass()) }

// Allpass returns the filter's allpass output (lowpass minus highpass).
func (f *OnePole) Allpass() vec.F { return f.Lowpass().Sub(f.Highpass()) }

// LowShelf returns a low-shelving output with the given linear gain.
func (f *OnePole) LowShelf(gain vec.F) vec.F {
	return gain.MulAdd(f.Lowpass(), f.Highpass())
}

// HighShelf returns a high-shelving output with the given linear gain.
func (f *OnePole) HighShelf(gain vec.F) vec.F {
	return gain.MulAdd(f.Highpass(), f.Lowpass())
}
