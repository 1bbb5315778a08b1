package dsp

import (
	"io"
	"math"

	"github.com/sigflow/polygraph/buffer"
	"github.com/sigflow/polygraph/processor"
	"github.com/sigflow/polygraph/vec"
	"gopkg.in/yaml.v3"
)

// SVFParameters is the control surface for an SVFProcessor: cutoff in Hz
// and a normalized [0,1] resonance, both applied globally (this demo
// node has no per-voice modulation).
type SVFParameters struct {
	CutoffHz   float32 `yaml:"cutoff_hz"`
	Resonance  float32 `yaml:"resonance"`
}

// NewSVFParameters returns a moderately open lowpass with light
// resonance.
func NewSVFParameters() *SVFParameters {
	return &SVFParameters{CutoffHz: 2000, Resonance: 0.2}
}

func (p *SVFParameters) Serialize(w io.Writer) error   { return yaml.NewEncoder(w).Encode(p) }
func (p *SVFParameters) Deserialize(r io.Reader) error { return yaml.NewDecoder(r).Decode(p) }

// SVFProcessor wraps SVF as a processor.Processor: a single-input,
// single-output lowpass filter node with no voice state of its own
// (ActivateVoice/DeactivateVoice are no-ops; Reset and MoveState act on
// the whole cluster's filter state, not on one lane), suitable
// as the filter stage of a small oscillator -> filter -> master demo
// graph.
type SVFProcessor struct {
	sampleRate float32
	filters    []SVF
	params     *SVFParameters
}

// NewSVFProcessor returns an SVFProcessor with default parameters;
// Initialize must be called before Process.
func NewSVFProcessor() *SVFProcessor {
	return &SVFProcessor{params: NewSVFParameters()}
}

func (p *SVFProcessor) Parameters() processor.Parameters { return p.params }

// SetParameters replaces the filter's control object wholesale, for a
// host that loads its own SVFParameters rather than mutating the one
// NewSVFProcessor created.
func (p *SVFProcessor) SetParameters(params *SVFParameters) { p.params = params }

func (p *SVFProcessor) AudioIOLayout() (numInputs, numOutputs int) { return 1, 1 }

func (p *SVFProcessor) Initialize(sampleRate float32, maxBufferSize, maxNumClusters int) int {
	p.sampleRate = sampleRate
	p.filters = make([]SVF, maxNumClusters)
	return 0
}

// Process reads cluster clusterIdx's input, runs it through that
// cluster's own filter state, and writes the lowpass output.
func (p *SVFProcessor) Process(buffers *buffer.Dispatcher, clusterIdx int) (vec.Mask, error) {
	if clusterIdx < 0 || clusterIdx >= len(p.filters) {
		return vec.Mask{}, nil
	}
	in, err := buffers.Input(0)
	if err != nil && err != buffer.ErrUnused {
		return vec.Mask{}, err
	}
	out, err := buffers.Output(0)
	if err != nil {
		return vec.Mask{}, err
	}

	wc := 2 * math.Pi * float64(p.params.CutoffHz) / float64(p.sampleRate)
	g := vec.TanHalf(vec.Splat(float32(wc)))
	res := vec.Splat(1 - p.params.Resonance)

	f := &p.filters[clusterIdx]
	for i := range out {
		var x vec.F
		if in != nil {
			x = in[i]
		}
		f.Process(x, g, res)
		out[i] = f.Lowpass()
	}
	return vec.SplatMask(false), nil
}

func (p *SVFProcessor) ActivateVoice(index processor.VoiceIndex, note uint8, velocity float32) {}
func (p *SVFProcessor) DeactivateVoice(index processor.VoiceIndex, velocity float32)            {}
func (p *SVFProcessor) Reset(index processor.VoiceIndex) {
	if index.Cluster >= 0 && index.Cluster < len(p.filters) {
		p.filters[index.Cluster].Reset()
	}
}
func (p *SVFProcessor) MoveState(from, to processor.VoiceIndex) {
	if from.Cluster >= 0 && from.Cluster < len(p.filters) && to.Cluster >= 0 && to.Cluster < len(p.filters) {
		p.filters[to.Cluster] = p.filters[from.Cluster]
	}
}
