// Package host wires together package graph, schedule, buffer, and a
// handful of processor.Processor nodes into a small runnable engine: a
// standalone demonstration of the scheduler and buffer dispatcher
// compiled and driven end to end, independent of any real-time audio
// backend, rendering an offline oscillator -> filter -> master demo
// chain driven entirely from a config file.
package host

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sigflow/polygraph/dsp"
	"github.com/sigflow/polygraph/oscillator"
)

// Config is the demo host's full configuration, loadable from YAML and
// overridable by CLI flags (see cmd/graphhost).
type Config struct {
	SampleRate float32 `yaml:"sample_rate"`
	BufferSize int     `yaml:"buffer_size"`
	NumBlocks  int     `yaml:"num_blocks"`
	Out        string  `yaml:"out"`

	// Note and Velocity describe the single voice this demo activates
	// at startup and holds for the whole render.
	Note     uint8   `yaml:"note"`
	Velocity float32 `yaml:"velocity"`

	Oscillator *oscillator.Parameters `yaml:"oscillator"`
	Filter     *dsp.SVFParameters     `yaml:"filter"`
}

// DefaultConfig returns the configuration cmd/graphhost runs with when
// no --config file is found: an A4 note on the first (sine) frame of
// the demo table, through a gently resonant lowpass.
func DefaultConfig() *Config {
	return &Config{
		SampleRate: 48000,
		BufferSize: 256,
		NumBlocks:  100,
		Out:        "-",
		Note:       69,
		Velocity:   1.0,
		Oscillator: oscillator.NewParameters(),
		Filter:     dsp.NewSVFParameters(),
	}
}

// LoadConfig reads a YAML config file at path, falling back to
// DefaultConfig unchanged if the file does not exist (a missing config
// file is not an error: it's how a first run looks).
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("host: reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("host: parsing config %s: %w", path, err)
	}
	return cfg, nil
}
