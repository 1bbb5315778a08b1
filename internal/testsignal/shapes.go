// Package testsignal generates procedural full-bandwidth waveform
// frames for wavetable.FromFrames, standing in for a bundled factory
// wavetable asset so the oscillator and the demo host have something to
// play without requiring an on-disk .wav file.
package testsignal

import "math"

// FrameLen matches wavetable.FrameLen; duplicated as an untyped constant
// here to avoid this package importing wavetable (this package only
// produces plain []float32 frames, independent of the mipmap format).
const FrameLen = 2048

func sine(i, n int) float32 {
	return float32(math.Sin(2 * math.Pi * float64(i) / float64(n)))
}

// Sine returns one full cycle of a pure sine wave.
func Sine() []float32 {
	frame := make([]float32, FrameLen)
	for i := range frame {
		frame[i] = sine(i, FrameLen)
	}
	return frame
}

// Saw returns one full cycle of a band-unlimited sawtooth, ramping
// linearly from -1 to just under 1.
func Saw() []float32 {
	frame := make([]float32, FrameLen)
	for i := range frame {
		frame[i] = 2*float32(i)/float32(FrameLen) - 1
	}
	return frame
}

// Square returns one full cycle of a band-unlimited 50%-duty square
// wave.
func Square() []float32 {
	frame := make([]float32, FrameLen)
	for i := range frame {
		if i < FrameLen/2 {
			frame[i] = 1
		} else {
			frame[i] = -1
		}
	}
	return frame
}

// Triangle returns one full cycle of a band-unlimited triangle wave.
func Triangle() []float32 {
	frame := make([]float32, FrameLen)
	for i := range frame {
		t := float32(i) / float32(FrameLen)
		var v float32
		if t < 0.25 {
			v = 4 * t
		} else if t < 0.75 {
			v = 2 - 4*t
		} else {
			v = 4*t - 4
		}
		frame[i] = v
	}
	return frame
}

// BasicShapes returns the four classic analog waveform frames in a
// fixed order (sine, saw, square, triangle), ready to pass to
// wavetable.FromFrames — this package's equivalent of the original
// implementation's bundled basic_shapes table.
func BasicShapes() [][]float32 {
	return [][]float32{Sine(), Saw(), Square(), Triangle()}
}
