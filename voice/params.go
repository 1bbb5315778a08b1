package voice

import (
	"math"

	"github.com/sigflow/polygraph/vec"
)

// MaxUnison is the largest unison voice count a single oscillator voice
// can stack; detune fan-out and the gather mask below are both derived
// from it.
const MaxUnison = 16

// PitchRangeSemitones bounds both the transpose and detune-range
// parameters: a normalized value of 1.0 reaches this many semitones.
const PitchRangeSemitones = 48.0

// OscsPerVoice is how many vec.F-wide sub-oscillator stages a single
// unison voice needs to cover MaxUnison oscillators (a compile-time
// constant so it can also size fixed-length arrays, e.g. starting-phase
// tables).
const OscsPerVoice = (MaxUnison + vec.Width - 1) / vec.Width

// NumParams is the count of normalized cluster parameters a
// ClusterParams smooths (level, frame, num_voices, detune, pan,
// transpose, stereo, detune_range, random).
const NumParams = 9

// ParamID names one of the NumParams smoothed cluster parameters.
type ParamID int

const (
	ParamLevel ParamID = iota
	ParamFrame
	ParamNumVoices
	ParamDetune
	ParamPan
	ParamTranspose
	ParamStereo
	ParamDetuneRange
	ParamRandom
)

// DefaultParams holds each parameter's normalized default value, in
// ParamID order.
var DefaultParams = [NumParams]float32{
	float32(1 / math.Sqrt2), // level
	0.0,                     // frame
	0.0,                     // num_voices
	0.5,                     // detune
	0.5,                     // pan
	0.5,                     // transpose
	1.0,                     // stereo
	1.0 / 48.0,              // detune range
	1.0,                     // random amount
}

func semitoneRatio(semitones float32) float32 {
	return float32(math.Exp2(float64(semitones) / 12.0))
}

// numVoicesFromNorm maps a normalized [0,1] num_voices parameter to the
// continuous voice count range [1.001, 16.999] used before truncation.
func numVoicesFromNorm(norm vec.F) vec.F {
	return norm.Scale(15.998).Add(vec.Splat(1.001))
}

// VoiceParams is the per-voice slice of a cluster's smoothed parameters,
// extracted once per audio block for a single stereo voice (one lane
// pair of the cluster-wide vectors).
type VoiceParams struct {
	BaseNormFrame  vec.F
	Transpose      vec.F
	Detune         vec.F
	NumVoices      vec.U
	BasePhaseDelta vec.F
}

// NewVoiceParams extracts the parameters for the stereo voice at
// laneIndex (0..vec.StereoVoices) out of a cluster's smoothed
// parameters, broadcasting that voice's scalar values back out across a
// full vector so the rest of the oscillator's math stays vectorized. It
// also returns how many vec.F-wide sub-oscillator stages are needed to
// realize that voice's unison count.
func NewVoiceParams(laneIndex int, params *ClusterParams) (VoiceParams, int) {
	l := 2 * laneIndex // L/R lanes of this voice are adjacent

	normDetune := params.Detune.Current()[l]
	normDetuneRange := params.DetuneRange.Current()[l]
	detune := normDetuneRange * PitchRangeSemitones * normDetune

	normTranspose := params.Transpose.Current()[l]
	transpose := (2*normTranspose - 1) * PitchRangeSemitones

	numVoicesF := numVoicesFromNorm(params.NumVoices.Current())[l]
	numVoices := uint32(numVoicesF)

	n := numVoices + (numVoices & 1)
	numOscsStereo := vec.EnclosingDiv(int(n), vec.Width)
	if numOscsStereo < 1 {
		numOscsStereo = 1
	}
	if numOscsStereo > OscsPerVoice {
		numOscsStereo = OscsPerVoice
	}

	baseNormFrame := params.Frame.Current()[l]
	basePhaseDelta := params.PhaseDelta[l]

	return VoiceParams{
		BaseNormFrame:  vec.SplatStereo(baseNormFrame, baseNormFrame),
		Transpose:      vec.SplatStereo(transpose, transpose),
		Detune:         vec.SplatStereo(detune, detune),
		NumVoices:      vec.SplatU(numVoices),
		BasePhaseDelta: vec.SplatStereo(basePhaseDelta, basePhaseDelta),
	}, numOscsStereo
}

// GetParams computes, for the oscIndex'th vec.F-wide sub-oscillator
// stage of this voice, the per-lane detuned phase delta, the per-lane
// wavetable frame position, and a mask of which lanes correspond to a
// real unison oscillator (a voice with fewer than MaxUnison unison
// copies leaves the high lanes of its last stage inactive).
//
// The detune fan is symmetric: unison oscillators are paired up and
// spread outward from center, alternating sign, so an even unison count
// never leaves one copy undetuned in the middle.
func (vp VoiceParams) GetParams(oscIndex int) (phaseDelta, normFrame vec.F, mask vec.Mask) {
	lastPair := uint32((MaxUnison+(MaxUnison&1))>>1) - 1
	if lastPair < 1 {
		lastPair = 1
	}
	lastPairF := float32(lastPair)

	for lane := 0; lane < vec.Width; lane++ {
		voiceIndex := uint32(oscIndex*vec.Width + lane)
		pairIndex := voiceIndex >> 1
		negate := (voiceIndex^pairIndex)&1 != 0

		nv := vp.NumVoices[lane]
		denom := nv
		if denom < 2 {
			denom = 2
		}
		detuneStep := 1.0 / float32(denom-1)
		start := (nv + 1) & 1
		absNormDetune := detuneStep * float32(start+(pairIndex<<1))
		normDetune := absNormDetune
		if negate {
			normDetune = -absNormDetune
		}

		detuneSemitones := vp.Detune[lane]*normDetune + vp.Transpose[lane]
		detuneRatio := semitoneRatio(detuneSemitones)
		phaseDelta[lane] = vp.BasePhaseDelta[lane] * detuneRatio

		normVoiceSpread := float32(pairIndex) / lastPairF
		frame := normVoiceSpread*0 + vp.BaseNormFrame[lane] // frame_spread is 0 until a spread param is added
		if frame < 0.0001 {
			frame = 0.0001
		}
		if frame > 0.9999 {
			frame = 0.9999
		}
		normFrame[lane] = frame

		nvRounded := nv + (nv & 1)
		mask[lane] = nvRounded > voiceIndex
	}
	return phaseDelta, normFrame, mask
}
