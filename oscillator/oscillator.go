// Package oscillator implements the polyphonic wavetable oscillator
// node: a processor.Processor that drives one voice.WTOscVoiceCluster
// per cluster slot, reading samples from a shared
// wavetable.BandLimitedWaveTables.
package oscillator

import (
	"fmt"
	"math"

	"github.com/sigflow/polygraph/buffer"
	"github.com/sigflow/polygraph/lender"
	"github.com/sigflow/polygraph/processor"
	"github.com/sigflow/polygraph/vec"
	"github.com/sigflow/polygraph/voice"
)

// baseLog2Alpha is the one-pole smoothing coefficient's base
// log2(alpha), tuned so dividing by the sample rate makes every cluster
// parameter settle to within ~0.1% of a new target in about 20ms
// regardless of sr.
const baseLog2Alpha = -500.0

// WTOsc is the oscillator node. Its zero value is not ready to process;
// call Initialize first.
type WTOsc struct {
	table          *lender.Ref[*wavetableAsset]
	tableReceiver  *lender.Receiver[*wavetableAsset]
	startingPhases [voice.OscsPerVoice]vec.F

	sampleRate float32
	log2Alpha  float32

	scratch []vec.F

	clusters []*voice.WTOscVoiceCluster
	params   []*voice.ClusterParams

	parameters *Parameters
}

// wavetableAsset is the Lendable payload: a built wavetable plus
// whatever starting-phase table was baked in alongside it.
type wavetableAsset struct {
	Table          WaveTable
	StartingPhases [voice.OscsPerVoice]vec.F
}

// WaveTable is the subset of wavetable.BandLimitedWaveTables an
// oscillator needs; declared here (instead of importing package
// wavetable) so oscillator only depends on the shape it samples, not
// on WAV decoding or FFT mipmap construction.
type WaveTable interface {
	ResampleSelect(phaseDelta, frame, phase vec.U, mask vec.Mask) vec.F
	NumFrames() int
}

// New returns a WTOsc with no wavetable loaded; call Initialize, then
// ReplaceTable, before processing.
func New() *WTOsc {
	return &WTOsc{parameters: NewParameters()}
}

// Parameters exposes the oscillator's live control object.
func (o *WTOsc) Parameters() processor.Parameters { return o.parameters }

// SetParameters replaces the oscillator's control object wholesale,
// for a host that loads its own Parameters (e.g. from a config file)
// rather than mutating the one New created.
func (o *WTOsc) SetParameters(p *Parameters) { o.parameters = p }

// AudioIOLayout reports that the oscillator has no buffer inputs and
// one stereo output.
func (o *WTOsc) AudioIOLayout() (numInputs, numOutputs int) { return 0, 1 }

// Initialize (re)allocates every cluster's state for the given sample
// rate, block size, and cluster count. Returns zero latency samples:
// the oscillator introduces none.
func (o *WTOsc) Initialize(sampleRate float32, maxBufferSize, maxNumClusters int) int {
	o.sampleRate = sampleRate
	o.log2Alpha = baseLog2Alpha / sampleRate

	o.clusters = make([]*voice.WTOscVoiceCluster, maxNumClusters)
	o.params = make([]*voice.ClusterParams, maxNumClusters)
	for i := range o.clusters {
		o.clusters[i] = voice.NewWTOscVoiceCluster()
		o.params[i] = voice.NewClusterParams()
	}

	if voice.OscsPerVoice > 1 {
		o.scratch = make([]vec.F, maxBufferSize)
	} else {
		o.scratch = nil
	}

	return 0
}

// AttachTableFeed wires this oscillator up to a SharedLender's fan-out
// so ReplaceTable swaps happen lock-free from the configuration thread
// without ever blocking the audio thread: call PollTable once per block
// before Process to pick up the newest lent table, if any.
func (o *WTOsc) AttachTableFeed(ln *lender.SharedLender[*wavetableAsset]) {
	o.tableReceiver = ln.CreateReceiver()
}

// PollTable adopts the newest wavetable asset handed to this
// oscillator's receiver since the last call, if any.
func (o *WTOsc) PollTable() {
	if o.tableReceiver == nil {
		return
	}
	if next := o.tableReceiver.RecvLatest(); next != nil {
		o.table = next
		o.startingPhases = next.Value.StartingPhases
	}
}

// ReplaceTable installs table directly (bypassing the lender feed),
// primarily for tests and for a single-process host with no
// configuration/audio thread split.
func (o *WTOsc) ReplaceTable(table WaveTable, startingPhases [voice.OscsPerVoice]vec.F) {
	o.table = lender.NewRef(&wavetableAsset{Table: table, StartingPhases: startingPhases})
	o.startingPhases = startingPhases
}

// sumToStereo folds one Oscillator's width-vec.Width output (up to
// vec.StereoVoices unison copies of a single voice, interleaved L/R)
// down to that voice's one (L, R) sample, summing every unison copy's
// contribution.
func sumToStereo(v vec.F) (l, r float32) {
	for i := 0; i < vec.StereoVoices; i++ {
		l += v[2*i]
		r += v[2*i+1]
	}
	return l, r
}

// Process advances clusterIdx's voices by one block and writes the
// result to output port 0.
func (o *WTOsc) Process(buffers *buffer.Dispatcher, clusterIdx int) (vec.Mask, error) {
	if clusterIdx < 0 || clusterIdx >= len(o.clusters) {
		return vec.Mask{}, fmt.Errorf("oscillator: cluster index %d out of range", clusterIdx)
	}
	if o.table == nil {
		return vec.Mask{}, nil
	}
	table := o.table.Value.Table
	numFrames := table.NumFrames()
	if numFrames == 0 {
		return vec.Mask{}, nil
	}

	out, err := buffers.Output(0)
	if err != nil {
		return vec.Mask{}, err
	}
	if len(out) == 0 {
		return vec.Mask{}, nil
	}

	blockSize := len(out)
	smoothDt := vec.Splat(1.0 / float32(blockSize))
	numFramesF := vec.Splat(float32(numFrames))

	for i := range out {
		out[i] = vec.F{}
	}

	cluster := o.clusters[clusterIdx]
	params := o.params[clusterIdx]
	params.TickN(o.log2Alpha, blockSize)

	cluster.ActiveVoices(func(voiceIndex int, oscs []*voice.Oscillator) {
		vp, numOscs := voice.NewVoiceParams(voiceIndex, params)
		if numOscs > len(oscs) {
			numOscs = len(oscs)
		}
		if numOscs == 0 {
			return
		}

		first := oscs[0]
		mask := first.SetParamsSmoothed(vp, 0, numFramesF, smoothDt)
		lLane, rLane := 2*voiceIndex, 2*voiceIndex+1

		if voice.OscsPerVoice > 1 {
			scratch := o.scratch[:blockSize]
			for i := range scratch {
				scratch[i] = first.TickAll(table, mask)
			}
			for oscIndex := 1; oscIndex < numOscs; oscIndex++ {
				osc := oscs[oscIndex]
				m := osc.SetParamsSmoothed(vp, oscIndex, numFramesF, smoothDt)
				for i := range scratch {
					scratch[i] = scratch[i].Add(osc.TickAll(table, m))
				}
			}
			for i := range out {
				l, r := sumToStereo(scratch[i])
				out[i][lLane], out[i][rLane] = l, r
			}
		} else {
			for i := range out {
				sample := first.TickAll(table, mask)
				l, r := sumToStereo(sample)
				out[i][lLane], out[i][rLane] = l, r
			}
		}
	})

	cluster.SetWeightsSmoothed(params, smoothDt)
	for i, sample := range out {
		normal, flipped := cluster.GetSampleWeights()
		cluster.TickWeightSmoothers()
		out[i] = sample.Mul(normal).Add(vec.SwapStereo(sample).Mul(flipped))
	}

	return vec.SplatMask(false), nil
}

// ActivateVoice assigns a note/velocity to (cluster, lane) and snaps
// its oscillators' parameters straight to their target (no glide).
func (o *WTOsc) ActivateVoice(index processor.VoiceIndex, note uint8, velocity float32) {
	cluster := o.clusters[index.Cluster]
	params := o.params[index.Cluster]
	l := 2 * index.Lane

	mask := vec.SplatMask(false)
	mask[l], mask[l+1] = true, true

	ratio := setVoiceNote(params, o.sampleRate, mask, note)
	cluster.ScalePhaseDeltas(ratio)

	cluster.ActiveVoiceMask |= 1 << uint(index.Lane)
	vp, numOscs := voice.NewVoiceParams(index.Lane, params)
	for j := 0; j < numOscs && j < len(cluster.Voices[index.Lane]); j++ {
		cluster.Voices[index.Lane][j].SetParams(vp, j, vec.Splat(float32(o.numFrames())))
	}
	cluster.SetWeights(params, mask)

	random := params.Random.Current()
	cluster.ResetPhases(mask, random, o.startingPhases[:])
}

// DeactivateVoice marks (cluster, lane) as released; the oscillator has
// no envelope of its own so it reports the voice inactive immediately.
func (o *WTOsc) DeactivateVoice(index processor.VoiceIndex, velocity float32) {
	o.clusters[index.Cluster].ActiveVoiceMask &^= 1 << uint(index.Lane)
}

// Reset reseeds (cluster, lane)'s phase from the starting-phase table.
func (o *WTOsc) Reset(index processor.VoiceIndex) {
	mask := vec.SplatMask(false)
	l := 2 * index.Lane
	mask[l], mask[l+1] = true, true
	random := o.params[index.Cluster].Random.Current()
	o.clusters[index.Cluster].ResetPhases(mask, random, o.startingPhases[:])
}

// MoveState migrates one voice's oscillator and parameter state between
// two (cluster, lane) slots, used when a StackVoiceManager repacks its
// voice stack.
func (o *WTOsc) MoveState(from, to processor.VoiceIndex) {
	o.clusters[from.Cluster].MoveState(from.Lane, o.clusters[to.Cluster], to.Lane)
	o.params[from.Cluster].MoveState(from.Lane, o.params[to.Cluster], to.Lane)
}

func (o *WTOsc) numFrames() int {
	if o.table == nil {
		return 0
	}
	return o.table.Value.Table.NumFrames()
}

// setVoiceNote rebases a cluster's phase-delta parameter around note,
// treating A4 (MIDI 69) at 440Hz as the reference pitch, and rescales
// every already-active voice's in-flight phase delta by the resulting
// ratio so a pitch change doesn't reset unison detune spread.
func setVoiceNote(params *voice.ClusterParams, sampleRate float32, mask vec.Mask, note uint8) vec.F {
	a4PhaseDelta := 440.0 / sampleRate
	semitonesFromA4 := float32(int(note) - 69)
	newPhaseDelta := a4PhaseDelta * float32(math.Exp2(float64(semitonesFromA4)/12.0))

	var ratio vec.F
	for i := range ratio {
		if mask[i] && params.PhaseDelta[i] != 0 {
			ratio[i] = newPhaseDelta / params.PhaseDelta[i]
		} else {
			ratio[i] = 1
		}
	}

	params.SetBasePhaseDelta(vec.Splat(newPhaseDelta), mask)
	return ratio
}
