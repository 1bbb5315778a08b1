// Command graphhost renders a small demonstration graph — a
// polyphonic wavetable oscillator through a resonant lowpass into the
// master bus — to 16-bit PCM, either a WAV file or headerless to
// stdout. It exists to exercise package schedule and package buffer
// end to end outside of any real-time audio backend.
package main

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/pflag"

	"github.com/sigflow/polygraph/host"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	configPath := pflag.String("config", "graphhost.yaml", "path to a YAML config file")
	sampleRate := pflag.Float64("sample-rate", 0, "override the config's sample rate (Hz)")
	bufferSize := pflag.Int("buffer-size", 0, "override the config's block size (samples)")
	numBlocks := pflag.Int("num-blocks", 0, "override the config's number of blocks to render")
	out := pflag.String("out", "", "override the config's output path (\"-\" for stdout)")
	pflag.Parse()

	cfg, err := host.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("loading config", "err", err)
	}
	if *sampleRate != 0 {
		cfg.SampleRate = float32(*sampleRate)
	}
	if *bufferSize != 0 {
		cfg.BufferSize = *bufferSize
	}
	if *numBlocks != 0 {
		cfg.NumBlocks = *numBlocks
	}
	if *out != "" {
		cfg.Out = *out
	}

	logger.Info("starting graphhost",
		"config", *configPath,
		"sample_rate", cfg.SampleRate,
		"buffer_size", cfg.BufferSize,
		"num_blocks", cfg.NumBlocks,
		"out", cfg.Out,
		"note", cfg.Note,
	)

	engine, err := host.NewEngine(cfg)
	if err != nil {
		logger.Fatal("building demo graph", "err", err)
	}

	numNodes, numBuffers, numTasks := engine.Stats()
	logger.Info("compiled schedule",
		"nodes", numNodes,
		"buffers", numBuffers,
		"tasks", numTasks,
	)

	sink, closeSink, err := openSink(cfg)
	if err != nil {
		logger.Fatal("opening output", "err", err)
	}
	defer func() {
		if err := closeSink(); err != nil {
			logger.Error("closing output", "err", err)
		}
	}()

	for block := 0; block < cfg.NumBlocks; block++ {
		start := time.Now()
		left, right, err := engine.RenderBlock()
		if err != nil {
			logger.Fatal("rendering block", "block", block, "err", err)
		}
		logger.Debug("rendered block", "block", block, "samples", len(left), "elapsed", time.Since(start))
		if err := sink.write(left, right); err != nil {
			logger.Fatal("writing block", "block", block, "err", err)
		}
	}

	logger.Info("render complete", "blocks", cfg.NumBlocks)
}

// pcmSink accepts one stereo block at a time as float32 left/right
// samples and writes it as interleaved 16-bit PCM in its own format.
type pcmSink interface {
	write(left, right []float32) error
}

// openSink picks a raw-PCM stdout sink for cfg.Out == "-", or a proper
// WAV file sink otherwise, returning a close func valid in both cases.
func openSink(cfg *host.Config) (pcmSink, func() error, error) {
	if cfg.Out == "-" {
		return &rawPCMSink{w: os.Stdout}, func() error { return nil }, nil
	}

	f, err := os.Create(cfg.Out)
	if err != nil {
		return nil, nil, err
	}
	enc := wav.NewEncoder(f, int(cfg.SampleRate), 16, 2, 1)
	sink := &wavSink{enc: enc, sampleRate: int(cfg.SampleRate)}
	closeFn := func() error {
		if err := enc.Close(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return sink, closeFn, nil
}

// rawPCMSink writes little-endian interleaved 16-bit stereo PCM with
// no container, the natural shape for piping into another tool.
type rawPCMSink struct {
	w io.Writer
}

func (s *rawPCMSink) write(left, right []float32) error {
	buf := make([]byte, 4*len(left))
	for i := range left {
		binary.LittleEndian.PutUint16(buf[4*i:], uint16(floatToPCM16(left[i])))
		binary.LittleEndian.PutUint16(buf[4*i+2:], uint16(floatToPCM16(right[i])))
	}
	_, err := s.w.Write(buf)
	return err
}

// wavSink accumulates blocks into a go-audio/wav Encoder, the proper
// WAV-file output path.
type wavSink struct {
	enc        *wav.Encoder
	sampleRate int
}

func (s *wavSink) write(left, right []float32) error {
	data := make([]int, 2*len(left))
	for i := range left {
		data[2*i] = int(floatToPCM16(left[i]))
		data[2*i+1] = int(floatToPCM16(right[i]))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: s.sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	return s.enc.Write(buf)
}

func floatToPCM16(x float32) int16 {
	v := float64(x) * 32767
	if v > 32767 {
		v = 32767
	}
	if v < -32768 {
		v = -32768
	}
	return int16(math.Round(v))
}
