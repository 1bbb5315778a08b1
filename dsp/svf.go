package dsp

import "github.com/sigflow/polygraph/vec"

// SVF is the digital zero-delay-feedback state-variable filter from
// Vadim Zavalishin's "The Art of VA Filter Design": one topology gives
// lowpass, bandpass, unit bandpass, highpass, allpass, notch, and all
// three shelving shapes simultaneously from the same pair of
// integrators.
type SVF struct {
	x   vec.F
	hp  vec.F
	bp  Integrator
	bp1 vec.F
	lp  Integrator
}

// Reset silences the filter's internal state.
func (f *SVF) Reset() {
	f.bp.Reset()
	f.lp.Reset()
}

// Process advances the filter by one sample given the prewarped cutoff
// coefficient g (vec.TanHalf(wc)) and resonance res; call one of the
// output methods (Lowpass, Bandpass, Highpass, ...) afterwards to read an
// output shape.
func (f *SVF) Process(x, g, res vec.F) {
	f.x = x
	bpS := f.bp.State()
	lpS := f.lp.State()

	g1 := res.Add(g)

	f.hp = g1.MulAdd(bpS.Scale(-1), x.Sub(lpS)).Div(g1.MulAdd(g, vec.Splat(1)))

	f.bp.Process(f.hp.Mul(g))
	bp := f.bp.Output()
	f.bp1 = bp.Mul(res)
	f.lp.Process(bp.Mul(g))
}

// Passthrough returns the filter's unfiltered input.
func (f *SVF) Passthrough() vec.F { return f.x }

// Lowpass returns the filter's lowpass output.
func (f *SVF) Lowpass() vec.F { return f.lp.Output() }

// Bandpass returns the filter's (non-unit-gain) bandpass output.
func (f *SVF) Bandpass() vec.F { return f.bp.Output() }

// UnitBandpass returns the unity-peak-gain bandpass output.
func (f *SVF) UnitBandpass() vec.F { return f.bp1 }

// Highpass returns the filter's highpass output.
func (f *SVF) Highpass() vec.F { return f.hp }

// Allpass returns the filter's allpass output.
func (f *SVF) Allpass() vec.F {
	return vec.Splat(2).MulAdd(f.UnitBandpass(), f.x.Scale(-1))
}

// Notch returns the filter's notch output.
func (f *SVF) Notch() vec.F {
	return f.Passthrough().Sub(f.UnitBandpass())
}

// HighShelf returns a high-shelving output at the given root gain
// (sqrt of the shelf's linear gain).
func (f *SVF) HighShelf(rootGain vec.F) vec.F {
	return rootGain.MulAdd(rootGain.MulAdd(f.Highpass(), f.UnitBandpass()), f.Lowpass())
}

// BandShelf returns a band-shelving output at the given root gain.
func (f *SVF) BandShelf(rootGain vec.F) vec.F {
	return f.UnitBandpass().MulAdd(rootGain, f.Passthrough().Sub(f.UnitBandpass()))
}

// LowShelf returns a low-shelving output at the given root gain.
func (f *SVF) LowShelf(rootGain vec.F) vec.F {
	return rootGain.MulAdd(rootGain.MulAdd(f.Lowpass(), f.UnitBandpass()), f.Highpass())
}
