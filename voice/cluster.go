package voice

import (
	"math"

	"github.com/sigflow/polygraph/vec"
)

// ClusterParams holds the nine normalized, smoothed parameters shared by
// every voice in one WTOscVoiceCluster, plus the unsmoothed base phase
// delta (pitch) each active voice was last given by SetBasePhaseDelta.
type ClusterParams struct {
	Level       *GenericSmoother
	Frame       *GenericSmoother
	NumVoices   *GenericSmoother
	Detune      *GenericSmoother
	Pan         *GenericSmoother
	Transpose   *GenericSmoother
	Stereo      *GenericSmoother
	DetuneRange *GenericSmoother
	Random      *GenericSmoother
	PhaseDelta  vec.F
}

// NewClusterParams returns a ClusterParams with every parameter at its
// documented default, already at rest (no glide in flight).
func NewClusterParams() *ClusterParams {
	cp := &ClusterParams{
		Level:       NewGenericSmoother(vec.F{}),
		Frame:       NewGenericSmoother(vec.F{}),
		NumVoices:   NewGenericSmoother(vec.F{}),
		Detune:      NewGenericSmoother(vec.F{}),
		Pan:         NewGenericSmoother(vec.F{}),
		Transpose:   NewGenericSmoother(vec.F{}),
		Stereo:      NewGenericSmoother(vec.F{}),
		DetuneRange: NewGenericSmoother(vec.F{}),
		Random:      NewGenericSmoother(vec.F{}),
	}
	allVoices := vec.SplatMask(true)
	for id := ParamID(0); id < NumParams; id++ {
		cp.SetParamInstantly(id, vec.Splat(DefaultParams[id]), allVoices)
	}
	return cp
}

func (cp *ClusterParams) smoother(id ParamID) *GenericSmoother {
	switch id {
	case ParamLevel:
		return cp.Level
	case ParamFrame:
		return cp.Frame
	case ParamNumVoices:
		return cp.NumVoices
	case ParamDetune:
		return cp.Detune
	case ParamPan:
		return cp.Pan
	case ParamTranspose:
		return cp.Transpose
	case ParamStereo:
		return cp.Stereo
	case ParamDetuneRange:
		return cp.DetuneRange
	case ParamRandom:
		return cp.Random
	default:
		panic("voice: unknown param id")
	}
}

// TickN advances every smoothed parameter n samples worth at once via a
// single precomputed one-pole coefficient, avoiding a per-sample loop
// over all nine smoothers.
func (cp *ClusterParams) TickN(log2Alpha float32, n int) {
	alpha := vec.Splat(float32(math.Exp2(float64(log2Alpha) * float64(n))))
	cp.Level.SmoothExp(alpha)
	cp.Frame.SmoothExp(alpha)
	cp.NumVoices.SmoothExp(alpha)
	cp.Detune.SmoothExp(alpha)
	cp.Pan.SmoothExp(alpha)
	cp.Transpose.SmoothExp(alpha)
	cp.Stereo.SmoothExp(alpha)
	cp.DetuneRange.SmoothExp(alpha)
	cp.Random.SmoothExp(alpha)
}

// SetBasePhaseDelta overwrites the base (undetuned) phase delta for the
// lanes selected by mask, used when a note-on assigns a new pitch.
func (cp *ClusterParams) SetBasePhaseDelta(w vec.F, mask vec.Mask) {
	cp.PhaseDelta = vec.Select(mask, w, cp.PhaseDelta)
}

// SetParamTarget begins gliding the masked lanes of parameter id towards
// normVal.
func (cp *ClusterParams) SetParamTarget(id ParamID, normVal vec.F, mask vec.Mask) {
	cp.smoother(id).SetTarget(normVal, mask)
}

// SetParamInstantly snaps the masked lanes of parameter id to normVal
// with no glide.
func (cp *ClusterParams) SetParamInstantly(id ParamID, normVal vec.F, mask vec.Mask) {
	cp.smoother(id).SetInstantly(normVal, mask)
}

// NumVoicesF returns the current (smoothed, continuous) voice count.
func (cp *ClusterParams) NumVoicesF() vec.F {
	return numVoicesFromNorm(cp.NumVoices.Current())
}

func triangularPanWeights(pan vec.F) vec.F {
	// Triangular (linear) pan law: lanes below center ramp the right
	// channel down, lanes above center ramp the left channel down,
	// giving a symmetric -6dB center with no bump or dip.
	var r vec.F
	for i, p := range pan {
		if i%2 == 0 {
			r[i] = 1 - p // left lane
		} else {
			r[i] = p // right lane
		}
	}
	return r
}

// GetSampleWeights returns the (normal, flipped) stereo mix weights this
// block's worth of cluster-level pan/stereo/level parameters produce:
// normal multiplies the voice's own L/R samples, flipped multiplies the
// swapped L/R samples (the stereo-width control's bleed term).
func (cp *ClusterParams) GetSampleWeights() (normal, flipped vec.F) {
	normLevel := cp.Level.Current()
	level := normLevel.Mul(normLevel)

	stereo := cp.Stereo.Current()
	pan := cp.Pan.Current()

	unisonNorm := cp.NumVoicesF().Recip()
	panWeights := triangularPanWeights(pan).Mul(unisonNorm)

	normal = panWeights.MulAdd(stereo, panWeights).Sqrt().Mul(level)
	flipped = panWeights.MulAdd(stereo.Scale(-1), panWeights).Sqrt().Mul(level)
	return normal, flipped
}

// moveLane swaps lane from of *a with lane to of *b, the primitive every
// MoveState implementation below uses to migrate one voice's state
// between two (possibly identical) cluster-wide vectors.
func moveLane(a *vec.F, from int, b *vec.F, to int) {
	a[from], b[to] = b[to], a[from]
}

func moveLaneU(a *vec.U, from int, b *vec.U, to int) {
	a[from], b[to] = b[to], a[from]
}

// MoveState swaps the lane-pair `from` of cp with the lane-pair `to` of
// other (possibly cp itself), migrating one voice's entire parameter
// state — current value, smoothing target, and base phase delta. The
// operation is its own inverse.
func (cp *ClusterParams) MoveState(from int, other *ClusterParams, to int) {
	fromL, fromR := 2*from, 2*from+1
	toL, toR := 2*to, 2*to+1

	for _, pair := range []struct{ a, b *GenericSmoother }{
		{cp.Level, other.Level}, {cp.Frame, other.Frame}, {cp.NumVoices, other.NumVoices},
		{cp.Detune, other.Detune}, {cp.Pan, other.Pan}, {cp.Transpose, other.Transpose},
		{cp.Stereo, other.Stereo}, {cp.DetuneRange, other.DetuneRange}, {cp.Random, other.Random},
	} {
		moveLane(&pair.a.Current_, fromL, &pair.b.Current_, toL)
		moveLane(&pair.a.Current_, fromR, &pair.b.Current_, toR)
		moveLane(&pair.a.Target, fromL, &pair.b.Target, toL)
		moveLane(&pair.a.Target, fromR, &pair.b.Target, toR)
	}
	moveLane(&cp.PhaseDelta, fromL, &other.PhaseDelta, toL)
	moveLane(&cp.PhaseDelta, fromR, &other.PhaseDelta, toR)
}

// WTOscVoiceCluster packs vec.StereoVoices stereo unison voices, each up
// to OscsPerVoice sub-oscillators deep, into one SIMD-width processing
// unit, plus the cluster-wide stereo mix weight smoothers shared by
// every voice in it.
type WTOscVoiceCluster struct {
	ActiveVoiceMask uint8
	Voices          [vec.StereoVoices][]*Oscillator
	NormalWeights   *LinearSmoother
	FlippedWeights  *LinearSmoother
}

// NewWTOscVoiceCluster returns an empty, inactive cluster with every
// voice slot allocated (but not yet assigned to a note).
func NewWTOscVoiceCluster() *WTOscVoiceCluster {
	c := &WTOscVoiceCluster{
		NormalWeights:  NewLinearSmoother(vec.F{}),
		FlippedWeights: NewLinearSmoother(vec.F{}),
	}
	for i := range c.Voices {
		oscs := make([]*Oscillator, OscsPerVoice)
		for j := range oscs {
			oscs[j] = NewOscillator()
		}
		c.Voices[i] = oscs
	}
	return c
}

// ActiveVoices calls fn for the index and oscillator stack of every
// voice currently marked active in ActiveVoiceMask.
func (c *WTOscVoiceCluster) ActiveVoices(fn func(index int, oscs []*Oscillator)) {
	for i := 0; i < vec.StereoVoices; i++ {
		if c.ActiveVoiceMask&(1<<uint(i)) != 0 {
			fn(i, c.Voices[i])
		}
	}
}

// GetSampleWeights returns the cluster's current (already-smoothed)
// stereo mix weights.
func (c *WTOscVoiceCluster) GetSampleWeights() (normal, flipped vec.F) {
	return c.NormalWeights.Current(), c.FlippedWeights.Current()
}

// TickWeightSmoothers advances both mix-weight smoothers by one sample.
func (c *WTOscVoiceCluster) TickWeightSmoothers() {
	c.NormalWeights.Tick1()
	c.FlippedWeights.Tick1()
}

// SetWeights snaps the mix weights for the masked lanes straight to
// params' current sample weights, with no glide.
func (c *WTOscVoiceCluster) SetWeights(params *ClusterParams, mask vec.Mask) {
	normal, flipped := params.GetSampleWeights()
	c.NormalWeights.SetInstantly(normal, mask)
	c.FlippedWeights.SetInstantly(flipped, mask)
}

// SetWeightsSmoothed begins gliding the mix weights towards params'
// current sample weights over 1/smoothDt samples.
func (c *WTOscVoiceCluster) SetWeightsSmoothed(params *ClusterParams, smoothDt vec.F) {
	normal, flipped := params.GetSampleWeights()
	c.NormalWeights.SetTargetRecip(normal, smoothDt)
	c.FlippedWeights.SetTargetRecip(flipped, smoothDt)
}

// ScaleFrames rescales every voice's in-flight frame smoother, used when
// the active wavetable changes frame count under a playing cluster.
func (c *WTOscVoiceCluster) ScaleFrames(ratio vec.F) {
	for _, oscs := range c.Voices {
		for _, o := range oscs {
			o.ScaleFrame(ratio)
		}
	}
}

// ScalePhaseDeltas rescales every voice's in-flight phase-delta
// smoother, used for pitch bends that shouldn't restart the glide.
func (c *WTOscVoiceCluster) ScalePhaseDeltas(ratio vec.F) {
	for _, oscs := range c.Voices {
		for _, o := range oscs {
			o.ScalePhaseDelta(ratio)
		}
	}
}

// SetParams derives and applies this block's target parameters for
// every active voice's oscillators from the cluster's smoothed
// parameters, with no glide (used on first activation of a voice).
func (c *WTOscVoiceCluster) SetParams(params *ClusterParams, numFramesF vec.F, mask vec.Mask) {
	c.SetWeights(params, mask)
	c.ActiveVoices(func(i int, oscs []*Oscillator) {
		vp, numOscs := NewVoiceParams(i, params)
		for j := 0; j < numOscs && j < len(oscs); j++ {
			oscs[j].SetParams(vp, j, numFramesF)
		}
	})
}

// MoveState swaps the voice slot `from` of c with the voice slot `to` of
// other (possibly c itself): oscillator state and mix-weight smoother
// lanes both migrate. Its own inverse.
func (c *WTOscVoiceCluster) MoveState(from int, other *WTOscVoiceCluster, to int) {
	fromL, fromR := 2*from, 2*from+1
	toL, toR := 2*to, 2*to+1

	moveLane(&c.FlippedWeights.Value, fromL, &other.FlippedWeights.Value, toL)
	moveLane(&c.FlippedWeights.Value, fromR, &other.FlippedWeights.Value, toR)
	moveLane(&c.FlippedWeights.Increment, fromL, &other.FlippedWeights.Increment, toL)
	moveLane(&c.FlippedWeights.Increment, fromR, &other.FlippedWeights.Increment, toR)

	moveLane(&c.NormalWeights.Value, fromL, &other.NormalWeights.Value, toL)
	moveLane(&c.NormalWeights.Value, fromR, &other.NormalWeights.Value, toR)
	moveLane(&c.NormalWeights.Increment, fromL, &other.NormalWeights.Increment, toL)
	moveLane(&c.NormalWeights.Increment, fromR, &other.NormalWeights.Increment, toR)

	c.Voices[from], other.Voices[to] = other.Voices[to], c.Voices[from]

	fromActive := c.ActiveVoiceMask&(1<<uint(from)) != 0
	toActive := other.ActiveVoiceMask&(1<<uint(to)) != 0
	c.ActiveVoiceMask = setBit(c.ActiveVoiceMask, from, toActive)
	other.ActiveVoiceMask = setBit(other.ActiveVoiceMask, to, fromActive)
}

func setBit(mask uint8, bit int, v bool) uint8 {
	if v {
		return mask | 1<<uint(bit)
	}
	return mask &^ (1 << uint(bit))
}

// ResetPhases reseeds the phase accumulator of every oscillator of every
// masked voice from startingPhases, scaled by a per-voice random factor
// so unison copies don't all start perfectly in phase.
func (c *WTOscVoiceCluster) ResetPhases(mask vec.Mask, randomisation vec.F, startingPhases []vec.F) {
	for i := 0; i < vec.StereoVoices; i++ {
		if !mask[2*i] {
			continue
		}
		random := vec.SplatStereo(randomisation[2*i], randomisation[2*i+1])
		for j, o := range c.Voices[i] {
			if j >= len(startingPhases) {
				break
			}
			o.SetPhase(vec.FlpToFxp(startingPhases[j].Mul(random)))
		}
	}
}
