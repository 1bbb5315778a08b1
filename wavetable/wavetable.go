// Package wavetable implements band-limited wavetable storage: a stack
// of mipmaps per waveform frame, built by a forward/inverse real FFT
// pass that progressively discards high partials, plus the masked
// lerp-gather resampling routine an Oscillator drives every sample.
package wavetable

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/go-audio/wav"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/sigflow/polygraph/vec"
)

const (
	// NumOctaves is both the number of frequency octaves a wavetable
	// spans and log2 of the sample count in one frame.
	NumOctaves = 11
	// FrameLen is the sample count of one mipmap level.
	FrameLen = 1 << NumOctaves
	// NumMipmaps is the number of band-limited copies stored per frame:
	// one per octave, plus the unfiltered original.
	NumMipmaps = NumOctaves + 1

	fractBits = 32 - NumOctaves
	phaseMask = uint32(FrameLen - 1)
)

// BandLimitedWaveTables stores NumMipmaps band-limited copies of each of
// its wavetable frames, flattened into one slice for cache-friendly
// gather access: index (frame, mipmap, sample) lives at
// ((frame*NumMipmaps)+mipmap)*FrameLen + sample.
type BandLimitedWaveTables struct {
	data      []float32
	numFrames int
}

// WithFrameCount allocates an all-zero table with room for numFrames
// frames; CreateMipmaps has not been run, so only WriteTable's slots
// hold meaningful data until it is.
func WithFrameCount(numFrames int) *BandLimitedWaveTables {
	return &BandLimitedWaveTables{
		data:      make([]float32, numFrames*NumMipmaps*FrameLen),
		numFrames: numFrames,
	}
}

// NumFrames reports how many wavetable frames this asset holds.
func (t *BandLimitedWaveTables) NumFrames() int { return t.numFrames }

// fullTableSlot is the mipmap index WriteTable fills directly: the
// un-band-limited, full-bandwidth original frame.
const fullTableSlot = NumMipmaps - 1

func (t *BandLimitedWaveTables) slot(frame, mipmap int) []float32 {
	base := (frame*NumMipmaps + mipmap) * FrameLen
	return t.data[base : base+FrameLen]
}

// WriteTable copies each of frames (each FrameLen samples long) into
// this table's full-bandwidth mipmap slot. It panics if len(frames) !=
// t.NumFrames() or any frame is not exactly FrameLen samples.
func (t *BandLimitedWaveTables) WriteTable(frames [][]float32) {
	if len(frames) != t.numFrames {
		panic(fmt.Sprintf("wavetable: got %d frames, table has room for %d", len(frames), t.numFrames))
	}
	for i, frame := range frames {
		if len(frame) != FrameLen {
			panic(fmt.Sprintf("wavetable: frame %d has %d samples, want %d", i, len(frame), FrameLen))
		}
		copy(t.slot(i, fullTableSlot), frame)
	}
}

// FromFrames builds a complete, mipmapped table directly from raw
// full-bandwidth frames.
func FromFrames(frames [][]float32) *BandLimitedWaveTables {
	t := WithFrameCount(len(frames))
	t.WriteTable(frames)
	t.CreateMipmaps()
	return t
}

// FromWAVFile decodes a mono WAV file whose sample count is an exact
// multiple of FrameLen into a wavetable with one frame per FrameLen
// samples, then builds its mipmaps. Samples are normalized to [-1, 1]
// from the file's native integer PCM depth (go-audio/wav exposes PCM
// samples as integers regardless of bit depth; true IEEE-float WAV
// source material should be pre-normalized upstream of this call).
func FromWAVFile(r io.ReadSeeker) (*BandLimitedWaveTables, error) {
	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavetable: decode wav: %w", err)
	}
	if buf.Format.NumChannels != 1 {
		return nil, fmt.Errorf("wavetable: wav file must be mono, got %d channels", buf.Format.NumChannels)
	}
	if len(buf.Data)%FrameLen != 0 {
		return nil, fmt.Errorf("wavetable: sample count %d is not a multiple of %d", len(buf.Data), FrameLen)
	}

	numFrames := len(buf.Data) / FrameLen
	maxVal := float32(int(1) << uint(buf.SourceBitDepth-1))
	if buf.SourceBitDepth == 0 {
		maxVal = float32(1 << 15)
	}

	frames := make([][]float32, numFrames)
	for i := range frames {
		frame := make([]float32, FrameLen)
		for j := range frame {
			frame[j] = float32(buf.Data[i*FrameLen+j]) / maxVal
		}
		frames[i] = frame
	}
	return FromFrames(frames), nil
}

// CreateMipmaps (re)builds every band-limited mipmap of every frame from
// its full-bandwidth slot: a forward real FFT, then for each octave
// (highest partial count first) an inverse FFT of a shrinking low-pass
// window of the spectrum, normalized back to the time domain.
func (t *BandLimitedWaveTables) CreateMipmaps() {
	fft := fourier.NewFFT(FrameLen)
	const normalization = 1.0 / float32(FrameLen)

	full := make([]float64, FrameLen)
	spectrumScratch := make([]complex128, FrameLen/2+1)
	timeScratch := make([]float64, FrameLen)

	for f := 0; f < t.numFrames; f++ {
		fullSlot := t.slot(f, fullTableSlot)
		for i, v := range fullSlot {
			full[i] = float64(v)
		}
		spectrum := fft.Coefficients(nil, full)

		partials := 1 << (NumOctaves - 1)
		for mipmap := NumOctaves - 1; mipmap >= 0; mipmap-- {
			passBand := partials/2 + 1
			for i := range spectrumScratch {
				if i < passBand && i < len(spectrum) {
					spectrumScratch[i] = spectrum[i]
				} else {
					spectrumScratch[i] = 0
				}
			}
			seq := fft.Sequence(timeScratch, spectrumScratch)
			out := t.slot(f, mipmap)
			for i, v := range seq {
				out[i] = float32(v) * normalization
			}
			partials /= 2
		}
	}
}

// getResampleData derives, for each lane independently, the fractional
// interpolation weight and the two flat sample indices to gather and
// lerp between — selecting a coarser mipmap (fewer partials) the higher
// phaseDelta (i.e. pitch) is, so a resampled sawtooth an octave up never
// aliases.
func getResampleData(phase, frame, phaseDelta vec.U) (fract vec.F, startIdx, endIdx vec.U) {
	for i := range phase {
		octaves := bits.LeadingZeros32(phaseDelta[i])
		if octaves > NumOctaves {
			octaves = NumOctaves
		}

		fract[i] = vec.FxpToFlp(vec.U{phase[i] << NumOctaves})[0]

		tableStart := (uint32(octaves) + frame[i]*NumMipmaps) << NumOctaves

		phaseA := phase[i] >> fractBits
		phaseB := (phaseA + 1) & phaseMask

		startIdx[i] = tableStart + phaseA
		endIdx[i] = tableStart + phaseB
	}
	return fract, startIdx, endIdx
}

// ResampleSelect produces one vector of samples, one per lane, gathering
// from the flat mipmap store at the indices getResampleData derives and
// linearly interpolating between them. Lanes where mask is false read
// as silence rather than gathering (guarding against an inactive lane
// holding a stale, possibly out-of-range frame index).
func (t *BandLimitedWaveTables) ResampleSelect(phaseDelta, frame, phase vec.U, mask vec.Mask) vec.F {
	fract, startIdx, endIdx := getResampleData(phase, frame, phaseDelta)

	var a, b vec.F
	for i := range mask {
		if !mask[i] {
			continue
		}
		if int(startIdx[i]) < len(t.data) {
			a[i] = t.data[startIdx[i]]
		}
		if int(endIdx[i]) < len(t.data) {
			b[i] = t.data[endIdx[i]]
		}
	}
	return vec.Lerp(a, b, fract)
}
