package audio

import "math"

// Normalization bounds, on the int16 RMS scale.
const (
	// DefaultTargetRMS is a typical speech level for 16-bit audio.
	DefaultTargetRMS = 3000.0
	// DefaultMaxGainDB caps how hard quiet audio is boosted so near-silence
	// is not amplified into noise.
	DefaultMaxGainDB = 30.0

	// minGainLinear is the attenuation floor; louder-than-target audio is
	// never cut below one tenth.
	minGainLinear = 0.1
	// silenceRMS marks input too quiet to normalize at all.
	silenceRMS = 1.0
)

// Normalize applies RMS gain normalization toward targetRMS, clamping the
// gain to maxGainDB and scaling it down further if the loudest sample would
// clip. Empty or effectively silent clips pass through unchanged with
// Normalized=false.
func Normalize(clip Clip, targetRMS, maxGainDB float64) (Clip, Meta) {
	meta := Meta{Duration: clip.Duration()}

	if len(clip.Samples) == 0 {
		return clip, meta
	}

	current := clip.RMS()
	meta.OriginalRMS = current
	meta.ProcessedRMS = current
	if current < silenceRMS {
		return clip, meta
	}

	gain := targetRMS / current
	maxGain := math.Pow(10, maxGainDB/20)
	gain = math.Min(gain, maxGain)
	gain = math.Max(gain, minGainLinear)

	// Reduce the gain so the peak sample lands inside [-1,1] instead of
	// hard-clipping it.
	var peak float64
	for _, s := range clip.Samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	if peak*gain > 1 {
		gain = 1 / peak
	}

	out := make([]float32, len(clip.Samples))
	for i, s := range clip.Samples {
		out[i] = clampSample(float64(s) * gain)
	}

	norm := Clip{Samples: out, SampleRate: clip.SampleRate}
	meta.ProcessedRMS = norm.RMS()
	meta.GainDB = 20 * math.Log10(gain)
	meta.Normalized = true
	return norm, meta
}
