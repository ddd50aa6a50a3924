package audio

import "time"

// Gate decisions.
type GateDecision int

const (
	// Admitted means the clip may proceed to normalization and dispatch.
	Admitted GateDecision = iota
	// RejectedTooShort means the clip was below the minimum duration,
	// typically an accidental key tap.
	RejectedTooShort
	// RejectedTooQuiet means the clip RMS was below the volume threshold.
	RejectedTooQuiet
)

func (d GateDecision) String() string {
	switch d {
	case RejectedTooShort:
		return "too_short"
	case RejectedTooQuiet:
		return "too_quiet"
	default:
		return "admitted"
	}
}

// safePadDuration is the minimum length handed to a provider when padding is
// enabled; very short clips are measurably harder for backends to transcribe.
const safePadDuration = time.Second

// GateConfig controls clip admission.
type GateConfig struct {
	MinDuration time.Duration
	// MinRMS rejects clips quieter than this int16-scale RMS. Zero disables
	// the check.
	MinRMS float64
	// PadShort zero-pads admitted clips shorter than safePadDuration.
	PadShort bool
}

// Admit decides whether a captured clip is worth transcribing. Admitted clips
// may be tail-padded; the returned clip is the one to hand onward and padded
// reports whether padding was applied. A rejected clip must never reach a
// provider.
func Admit(clip Clip, cfg GateConfig) (out Clip, decision GateDecision, padded bool) {
	if clip.Duration() < cfg.MinDuration {
		return clip, RejectedTooShort, false
	}
	if cfg.MinRMS > 0 && clip.RMS() < cfg.MinRMS {
		return clip, RejectedTooQuiet, false
	}

	if cfg.PadShort && clip.Duration() < safePadDuration && clip.SampleRate > 0 {
		want := int(safePadDuration.Seconds() * float64(clip.SampleRate))
		if want > len(clip.Samples) {
			padded := make([]float32, want)
			copy(padded, clip.Samples)
			return Clip{Samples: padded, SampleRate: clip.SampleRate}, Admitted, true
		}
	}

	return clip, Admitted, false
}
