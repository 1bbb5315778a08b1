package voice

import "github.com/sigflow/polygraph/vec"

// WaveTable is the read side of a band-limited wavetable asset an
// Oscillator samples from. package wavetable implements it; the
// interface lives here instead to keep voice from importing wavetable
// back (wavetable has no need to know about voices).
type WaveTable interface {
	ResampleSelect(phaseDelta, frame, phase vec.U, mask vec.Mask) vec.F
	NumFrames() int
}

// Oscillator is one sub-oscillator stage: a phase accumulator plus the
// two smoothed parameters that drive it (wavetable frame position and
// phase increment). A unison voice with more than vec.Width sub-voices
// is realized as several Oscillators ticked and summed together.
type Oscillator struct {
	Phase      vec.U
	Frame      *LinearSmoother
	PhaseDelta *LogSmoother
}

// NewOscillator returns an Oscillator at rest, ready to be configured by
// SetParams before first use.
func NewOscillator() *Oscillator {
	return &Oscillator{
		Frame:      NewLinearSmoother(vec.F{}),
		PhaseDelta: NewLogSmoother(vec.Splat(1)),
	}
}

// ScaleFrame rescales the in-flight frame smoother, used when the
// active wavetable's frame count changes under the oscillator.
func (o *Oscillator) ScaleFrame(ratio vec.F) { o.Frame.Scale(ratio) }

// ScalePhaseDelta rescales the in-flight phase-delta smoother, used when
// a note's pitch changes without retriggering the smoother from scratch.
func (o *Oscillator) ScalePhaseDelta(ratio vec.F) { o.PhaseDelta.Scale(ratio) }

// SetPhaseDelta jumps directly to phaseDelta with no glide.
func (o *Oscillator) SetPhaseDelta(phaseDelta vec.F) { o.PhaseDelta.SetAllInstantly(phaseDelta) }

// SetPhaseDeltaSmoothed glides to phaseDelta over 1/tRecip samples.
func (o *Oscillator) SetPhaseDeltaSmoothed(phaseDelta, tRecip vec.F) {
	o.PhaseDelta.SetTargetRecip(phaseDelta, tRecip)
}

// SetFrame jumps directly to frame with no glide.
func (o *Oscillator) SetFrame(frame vec.F) { o.Frame.SetAllInstantly(frame) }

// SetFrameSmoothed glides to frame over 1/tRecip samples.
func (o *Oscillator) SetFrameSmoothed(frame, tRecip vec.F) {
	o.Frame.SetTargetRecip(frame, tRecip)
}

// SetParamsSmoothed derives this sub-oscillator's target frame and phase
// delta from voiceParams at sub-oscillator index idx, gliding towards
// them over one audio block (smoothDt = 1/blockSize), and returns the
// gather mask of which lanes hold a real unison oscillator.
func (o *Oscillator) SetParamsSmoothed(vp VoiceParams, idx int, numFramesF, smoothDt vec.F) vec.Mask {
	phaseDelta, normFrame, mask := vp.GetParams(idx)
	o.SetFrameSmoothed(numFramesF.Mul(normFrame), smoothDt)
	o.SetPhaseDeltaSmoothed(phaseDelta, smoothDt)
	return mask
}

// SetParams is SetParamsSmoothed without any glide, used the first time
// a voice is assigned so it starts at the right pitch instantly.
func (o *Oscillator) SetParams(vp VoiceParams, idx int, numFramesF vec.F) vec.Mask {
	phaseDelta, normFrame, mask := vp.GetParams(idx)
	o.SetFrame(numFramesF.Mul(normFrame))
	o.SetPhaseDelta(phaseDelta)
	return mask
}

// SetPhase forces the raw fixed-point phase accumulator, used to seed a
// freshly triggered voice with a starting phase (possibly randomized).
func (o *Oscillator) SetPhase(phase vec.U) { o.Phase = phase }

// TickSmoothers advances the frame and phase-delta smoothers by one
// sample without producing an output sample, used when a caller needs
// to keep smoother state in sync without sampling the wavetable.
func (o *Oscillator) TickSmoothers() {
	o.Frame.Tick1()
	o.PhaseDelta.Tick1()
}

// TickAll produces one sample from the wavetable at the oscillator's
// current phase and frame, advances the phase accumulator by the
// current phase delta, and ticks the smoothers — the oscillator's
// entire per-sample update in one call.
func (o *Oscillator) TickAll(table WaveTable, mask vec.Mask) vec.F {
	w := vec.FlpToFxp(o.PhaseDelta.Current())
	var frame vec.U
	for i, f := range o.Frame.Current() {
		frame[i] = uint32(f)
	}

	out := table.ResampleSelect(w, frame, o.Phase, mask)

	for i := range o.Phase {
		o.Phase[i] += w[i]
	}
	o.TickSmoothers()
	return out
}
