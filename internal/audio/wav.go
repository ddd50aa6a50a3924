package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-audio/wav"
)

// wavHeaderSize is the fixed RIFF/WAVE header length for 16-bit mono PCM.
const wavHeaderSize = 44

// EncodeWAV serializes a clip as a mono 16-bit PCM RIFF/WAVE file:
// a 44-byte header ("RIFF", chunk size, "WAVE", 16-byte "fmt " subchunk with
// PCM format tag 1, then the "data" subchunk), little-endian throughout.
// Samples are quantized from float32 to int16.
func EncodeWAV(clip Clip) []byte {
	n := len(clip.Samples)
	dataSize := n * 2

	buf := make([]byte, 0, wavHeaderSize+dataSize)
	w := bytes.NewBuffer(buf)

	w.WriteString("RIFF")
	binary.Write(w, binary.LittleEndian, uint32(36+dataSize))
	w.WriteString("WAVE")

	w.WriteString("fmt ")
	binary.Write(w, binary.LittleEndian, uint32(16)) // PCM subchunk size
	binary.Write(w, binary.LittleEndian, uint16(1))  // format tag: PCM
	binary.Write(w, binary.LittleEndian, uint16(1))  // channels: mono
	binary.Write(w, binary.LittleEndian, uint32(clip.SampleRate))
	binary.Write(w, binary.LittleEndian, uint32(clip.SampleRate*2)) // byte rate
	binary.Write(w, binary.LittleEndian, uint16(2))                 // block align
	binary.Write(w, binary.LittleEndian, uint16(16))                // bits per sample

	w.WriteString("data")
	binary.Write(w, binary.LittleEndian, uint32(dataSize))
	for _, s := range clip.Samples {
		binary.Write(w, binary.LittleEndian, floatToPCM(s))
	}

	return w.Bytes()
}

// DecodeWAV parses a PCM WAV file back into a Clip. Multi-channel files are
// downmixed to mono.
func DecodeWAV(data []byte) (Clip, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("audio: decode wav: %w", err)
	}
	if d.BitDepth != 16 {
		return Clip{}, fmt.Errorf("audio: unsupported wav bit depth %d", d.BitDepth)
	}

	channels := pcm.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	fb := NewFrameBuffer(pcm.Format.SampleRate, channels)
	frames := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		frames[i] = pcmToFloat(int16(v))
	}
	fb.Append(frames)
	return fb.Take(), nil
}

// floatToPCM quantizes a float32 sample to int16, saturating at the rails.
func floatToPCM(s float32) int16 {
	v := math.Round(float64(s) * pcmScale)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// pcmToFloat maps an int16 sample into [-1,1).
func pcmToFloat(v int16) float32 {
	return float32(float64(v) / pcmScale)
}
