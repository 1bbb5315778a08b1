package oscillator

import (
	"io"

	"gopkg.in/yaml.v3"
)

// Parameters holds the oscillator's nine user-facing normalized
// controls, persisted as YAML alongside the rest of a graph's
// configuration.
type Parameters struct {
	Level       float32 `yaml:"level"`
	Frame       float32 `yaml:"frame"`
	NumVoices   float32 `yaml:"num_voices"`
	Detune      float32 `yaml:"detune"`
	Pan         float32 `yaml:"pan"`
	Transpose   float32 `yaml:"transpose"`
	Stereo      float32 `yaml:"stereo"`
	DetuneRange float32 `yaml:"detune_range"`
	Random      float32 `yaml:"random"`
}

// NewParameters returns a Parameters set to the oscillator's documented
// defaults.
func NewParameters() *Parameters {
	return &Parameters{
		Level:       0.70710677, // 1/sqrt(2)
		Frame:       0,
		NumVoices:   0,
		Detune:      0.5,
		Pan:         0.5,
		Transpose:   0.5,
		Stereo:      1,
		DetuneRange: 1.0 / 48.0,
		Random:      1,
	}
}

func (p *Parameters) Serialize(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(p)
}

func (p *Parameters) Deserialize(r io.Reader) error {
	return yaml.NewDecoder(r).Decode(p)
}
