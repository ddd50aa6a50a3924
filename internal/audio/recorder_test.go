package audio

import (
	"testing"
)

func TestNewRecorderAndClose(t *testing.T) {
	r, err := NewRecorder(48000, 1)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()

	if r.sampleRate != 48000 {
		t.Errorf("sampleRate = %d, want 48000", r.sampleRate)
	}
	if r.channels != 1 {
		t.Errorf("channels = %d, want 1", r.channels)
	}
}

func TestRecorderNotRecordingByDefault(t *testing.T) {
	r, err := NewRecorder(48000, 1)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	defer r.Close()

	if r.IsRecording() {
		t.Error("IsRecording() should be false after creation")
	}
}

func TestStopWithoutStart(t *testing.T) {
	r, err := NewRecorder(48000, 1)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	defer r.Close()

	if _, ok := r.Stop(); ok {
		t.Error("Stop() without Start() should report no session")
	}
}

func TestBytesToFloat32(t *testing.T) {
	// 1.0 in little-endian float32 is 0x3F800000.
	data := []byte{0x00, 0x00, 0x80, 0x3F}
	samples := bytesToFloat32(data, 1)

	if len(samples) != 1 {
		t.Fatalf("bytesToFloat32() returned %d samples, want 1", len(samples))
	}
	if samples[0] != 1.0 {
		t.Errorf("bytesToFloat32() = %f, want 1.0", samples[0])
	}
}

func TestBytesToFloat32Multiple(t *testing.T) {
	// Two samples: 0.0 and -1.0 (0x00000000, 0xBF800000).
	data := []byte{
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x80, 0xBF,
	}
	samples := bytesToFloat32(data, 2)

	if len(samples) != 2 {
		t.Fatalf("bytesToFloat32() returned %d samples, want 2", len(samples))
	}
	if samples[0] != 0.0 {
		t.Errorf("samples[0] = %f, want 0.0", samples[0])
	}
	if samples[1] != -1.0 {
		t.Errorf("samples[1] = %f, want -1.0", samples[1])
	}
}

func TestFrameBufferDownmixesToMono(t *testing.T) {
	fb := NewFrameBuffer(48000, 2)
	fb.Append([]float32{0.5, -0.5, 1.0, 0.0})

	clip := fb.Take()
	if len(clip.Samples) != 2 {
		t.Fatalf("Take() returned %d samples, want 2", len(clip.Samples))
	}
	if clip.Samples[0] != 0.0 {
		t.Errorf("Samples[0] = %f, want 0.0", clip.Samples[0])
	}
	if clip.Samples[1] != 0.5 {
		t.Errorf("Samples[1] = %f, want 0.5", clip.Samples[1])
	}
	if clip.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", clip.SampleRate)
	}
}

func TestFrameBufferTakeResets(t *testing.T) {
	fb := NewFrameBuffer(16000, 1)
	fb.Append([]float32{0.1, 0.2})

	first := fb.Take()
	if len(first.Samples) != 2 {
		t.Fatalf("first Take() = %d samples, want 2", len(first.Samples))
	}
	if fb.Len() != 0 {
		t.Errorf("Len() after Take() = %d, want 0", fb.Len())
	}

	// The taken clip must own its data.
	fb.Append([]float32{0.9, 0.9})
	if first.Samples[0] != 0.1 {
		t.Errorf("taken clip mutated by later Append: %f", first.Samples[0])
	}
}
