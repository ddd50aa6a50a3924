// Package audio holds the capture buffer and the processing stages that turn
// raw microphone frames into clean 16 kHz mono PCM ready for transcription.
package audio

import (
	"math"
	"time"
)

// TargetRate is the canonical sample rate expected by every transcription
// backend.
const TargetRate = 16000

// pcmScale maps float32 samples in [-1,1] onto the int16 range. RMS values
// throughout the package are expressed on the int16 scale (0 = silence,
// ~3000 = normal speech, 32767 = max) to match the settings thresholds.
const pcmScale = 32768.0

// Clip is a single captured utterance. Samples are mono float32 in [-1,1].
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Meta records what the processing stages did to a clip.
type Meta struct {
	OriginalRMS  float64
	ProcessedRMS float64
	GainDB       float64
	Normalized   bool
	Padded       bool
	Duration     time.Duration
}

// Duration returns the clip length derived from sample count and rate.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// RMS returns the root-mean-square amplitude on the int16 scale.
func (c Clip) RMS() float64 {
	return rms(c.Samples)
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) * pcmScale
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// FrameBuffer accumulates capture frames for one recording session.
// Multi-channel frames are downmixed to mono on append, so the resulting
// Clip always has channel count 1.
//
// FrameBuffer is not safe for concurrent use; the Recorder serializes
// access with its own lock.
type FrameBuffer struct {
	samples    []float32
	sampleRate int
	channels   int
}

// NewFrameBuffer creates a buffer for frames at the given device-native rate
// and channel count.
func NewFrameBuffer(sampleRate, channels int) *FrameBuffer {
	if channels < 1 {
		channels = 1
	}
	return &FrameBuffer{sampleRate: sampleRate, channels: channels}
}

// Append adds interleaved frames to the buffer, averaging channels to mono.
func (b *FrameBuffer) Append(frames []float32) {
	if b.channels == 1 {
		b.samples = append(b.samples, frames...)
		return
	}
	for i := 0; i+b.channels <= len(frames); i += b.channels {
		var sum float32
		for ch := 0; ch < b.channels; ch++ {
			sum += frames[i+ch]
		}
		b.samples = append(b.samples, sum/float32(b.channels))
	}
}

// Len returns the number of mono samples buffered so far.
func (b *FrameBuffer) Len() int { return len(b.samples) }

// Reset discards buffered samples but keeps capacity for the next session.
func (b *FrameBuffer) Reset() { b.samples = b.samples[:0] }

// Take returns the buffered audio as a Clip and resets the buffer. The clip
// owns its own copy; the buffer can be reused immediately.
func (b *FrameBuffer) Take() Clip {
	out := make([]float32, len(b.samples))
	copy(out, b.samples)
	b.Reset()
	return Clip{Samples: out, SampleRate: b.sampleRate}
}
