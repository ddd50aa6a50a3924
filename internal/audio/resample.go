package audio

import (
	"fmt"
	"math"
)

// sincTaps is the half-width of the windowed-sinc kernel used for
// anti-aliasing. 16 taps per side keeps resampling well under a millisecond
// for typical utterances while suppressing aliasing far better than
// sample skipping, which measurably hurts transcription accuracy.
const sincTaps = 16

// Resample converts a clip to the target sample rate using windowed-sinc
// interpolation with a low-pass cutoff at the narrower Nyquist frequency.
// A clip already at the target rate is returned unchanged.
func Resample(clip Clip, targetRate int) (Clip, error) {
	if clip.SampleRate <= 0 {
		return Clip{}, fmt.Errorf("audio: sample rate must be positive, got %d", clip.SampleRate)
	}
	if targetRate <= 0 {
		return Clip{}, fmt.Errorf("audio: target rate must be positive, got %d", targetRate)
	}
	if clip.SampleRate == targetRate || len(clip.Samples) == 0 {
		return Clip{Samples: clip.Samples, SampleRate: targetRate}, nil
	}

	ratio := float64(targetRate) / float64(clip.SampleRate)
	outLen := int(math.Round(float64(len(clip.Samples)) * ratio))
	if outLen < 1 {
		outLen = 1
	}

	// When downsampling, the low-pass cutoff must sit at the output Nyquist
	// (expressed as a fraction of the input rate) so frequencies above it do
	// not alias into the output band.
	cutoff := 1.0
	if ratio < 1 {
		cutoff = ratio
	}

	in := clip.Samples
	out := make([]float32, outLen)
	step := 1.0 / ratio
	taps := sincTaps
	if ratio < 1 {
		// Widen the kernel when downsampling so the filter stays sharp at
		// the lower cutoff.
		taps = int(math.Ceil(float64(sincTaps) / ratio))
	}

	for i := range out {
		center := float64(i) * step
		lo := int(math.Floor(center)) - taps + 1
		hi := int(math.Floor(center)) + taps

		var acc, norm float64
		for j := lo; j <= hi; j++ {
			if j < 0 || j >= len(in) {
				continue
			}
			x := center - float64(j)
			w := lanczosWindow(x, float64(taps)) * sinc(cutoff*x) * cutoff
			acc += float64(in[j]) * w
			norm += w
		}
		if norm != 0 {
			acc /= norm
		}
		out[i] = clampSample(acc)
	}

	return Clip{Samples: out, SampleRate: targetRate}, nil
}

// sinc is the normalized sinc function sin(pi x)/(pi x).
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// lanczosWindow tapers the sinc kernel to a finite width of a taps.
func lanczosWindow(x, a float64) float64 {
	if x <= -a || x >= a {
		return 0
	}
	return sinc(x / a)
}

func clampSample(v float64) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return float32(v)
}
