// Package processor declares the interface every audio graph node
// implements: something that turns a cluster's worth of input buffers
// into a cluster's worth of output buffers, once per vec.StereoVoices
// voices, and that knows how to move or discard per-voice state when
// the owning StackVoiceManager repacks its voice stack.
package processor

import (
	"io"

	"github.com/sigflow/polygraph/buffer"
	"github.com/sigflow/polygraph/vec"
)

// Parameters is anything a Processor's user-facing controls can be
// serialized to and restored from — typically a struct of plain fields
// plus a host's automatable-parameter bindings. The zero-value no-op
// implementation is NoParameters, for processors with nothing to save.
type Parameters interface {
	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
}

// NoParameters implements Parameters as a no-op, for Processors with no
// persistent state of their own.
type NoParameters struct{}

func (NoParameters) Serialize(io.Writer) error  { return nil }
func (NoParameters) Deserialize(io.Reader) error { return nil }

// VoiceIndex names one lane within one cluster: (cluster, lane).
type VoiceIndex struct {
	Cluster, Lane int
}

// Processor is one audio graph node's behavior: given this block's
// input and output buffers (addressed through a buffer.Dispatcher) and
// which cluster of voices it is processing, produce output and report
// which lanes are still making sound.
type Processor interface {
	// Process advances clusterIdx's voices by one block, reading inputs
	// and writing outputs through buffers, and returns the mask of lanes
	// still active after processing (a Processor may decide a voice has
	// finished releasing and go silent on its own, independent of
	// DeactivateVoice).
	Process(buffers *buffer.Dispatcher, clusterIdx int) (vec.Mask, error)

	// AudioIOLayout reports how many buffer input and output ports this
	// Processor expects.
	AudioIOLayout() (numInputs, numOutputs int)

	// Parameters returns the live Parameters object backing this
	// Processor's controls.
	Parameters() Parameters

	// Initialize (re)allocates internal state for the given sample rate,
	// maximum block size, and maximum number of simultaneously live
	// clusters, and returns the number of samples of latency this
	// Processor introduces.
	Initialize(sampleRate float32, maxBufferSize, maxNumClusters int) int

	// ActivateVoice starts a new voice at index with the given note and
	// velocity.
	ActivateVoice(index VoiceIndex, note uint8, velocity float32)

	// DeactivateVoice begins releasing the voice at index; the voice
	// need not go silent immediately, but should eventually report
	// itself inactive from Process's returned mask.
	DeactivateVoice(index VoiceIndex, velocity float32)

	// Reset reinitializes the running state behind index's voice (WTOsc
	// reseeds the voice's oscillator phases); it does not change whether
	// the voice is active.
	Reset(index VoiceIndex)

	// MoveState migrates from's voice state to to; used when a
	// StackVoiceManager repacks its voice stack. WTOsc swaps the two
	// slots, so from then holds to's former state.
	MoveState(from, to VoiceIndex)
}
