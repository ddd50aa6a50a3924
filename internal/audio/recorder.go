package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// ErrNoDevice is returned when no capture device could be opened, typically
// because none exists or microphone permission was denied.
var ErrNoDevice = errors.New("audio: no capture device available")

// flushWait bounds how long Stop waits for the final device callback to
// land in the buffer before handing the clip off.
const flushWait = 150 * time.Millisecond

// Recorder captures audio from the default microphone at the device-native
// sample rate into a FrameBuffer. The pipeline resamples afterward; the
// recorder makes no assumption that the native rate equals TargetRate.
type Recorder struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate int
	channels   int

	mu        sync.Mutex
	buf       *FrameBuffer
	recording bool
	lastData  time.Time
}

// NewRecorder creates a recorder capturing at the given device rate and
// channel count. Call Close when done.
func NewRecorder(sampleRate, channels int) (*Recorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: initializing context: %w", err)
	}

	return &Recorder{
		ctx:        ctx,
		sampleRate: sampleRate,
		channels:   channels,
		buf:        NewFrameBuffer(sampleRate, channels),
	}, nil
}

// Start begins capturing from the default microphone. It fails with
// ErrNoDevice when the device cannot be opened, leaving no partial buffer
// behind.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return fmt.Errorf("audio: already recording")
	}
	r.buf.Reset()
	r.recording = true
	r.mu.Unlock()

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = uint32(r.channels)
	deviceCfg.SampleRate = uint32(r.sampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: r.onData,
	}

	device, err := malgo.InitDevice(r.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		r.abortStart()
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		r.abortStart()
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	r.mu.Lock()
	r.device = device
	r.mu.Unlock()

	return nil
}

func (r *Recorder) abortStart() {
	r.mu.Lock()
	r.recording = false
	r.buf.Reset()
	r.mu.Unlock()
}

// Stop ends the capture and returns the buffered audio as a Clip. It waits
// briefly (bounded by flushWait) for the last in-flight device callback so
// the tail of the utterance is not cut off. Returns false if the recorder
// was not recording.
func (r *Recorder) Stop() (Clip, bool) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return Clip{}, false
	}
	last := r.lastData
	r.mu.Unlock()

	// Give the device one callback period to flush, but never stall the
	// chord handler past flushWait.
	deadline := time.Now().Add(flushWait)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		cur := r.lastData
		r.mu.Unlock()
		if cur.After(last) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.recording = false

	return r.buf.Take(), true
}

// IsRecording reports whether a capture session is active.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Close releases all audio resources.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.recording = false
	r.mu.Unlock()

	if r.ctx != nil {
		if err := r.ctx.Uninit(); err != nil {
			return fmt.Errorf("audio: uninitializing context: %w", err)
		}
		r.ctx.Free()
	}

	return nil
}

// onData is the malgo callback invoked when capture data is available.
// pSample holds interleaved little-endian float32 frames.
func (r *Recorder) onData(_, pSample []byte, frameCount uint32) {
	samples := bytesToFloat32(pSample, frameCount*uint32(r.channels))

	r.mu.Lock()
	if r.recording {
		r.buf.Append(samples)
		r.lastData = time.Now()
	}
	r.mu.Unlock()
}

// bytesToFloat32 converts raw bytes (little-endian float32) to a float32 slice.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}
