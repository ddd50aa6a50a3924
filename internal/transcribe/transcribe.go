// Package transcribe provides speech-to-text backends and the router that
// selects among them.
//
// Supported backends:
//   - local: whisper.cpp via Go bindings (always available once the model loads)
//   - openai: OpenAI Whisper API (requires OPENAI_API_KEY)
//   - groq: Groq Whisper API (requires GROQ_API_KEY)
package transcribe

import (
	"context"
	"time"
)

// Request carries one normalized utterance to a backend. Audio is always
// 16 kHz mono: WAV bytes for HTTP backends, Samples for in-process ones.
type Request struct {
	WAV      []byte
	Samples  []float32
	Prompt   string // vocabulary biasing hint, may be empty
	Language string // ISO code; empty means auto-detect
}

// Result is the normalized output of any backend. The router fills defaults
// (empty text, language "unknown") for backends that cannot supply a field,
// so callers never branch on provider identity.
type Result struct {
	Text         string
	Language     string
	Confidence   float64
	Provider     string
	UsedFallback bool
	Duration     time.Duration // audio duration as reported by the backend
	Latency      time.Duration
}

// Provider converts audio to text.
type Provider interface {
	// Name identifies the backend ("local", "openai", "groq").
	Name() string
	// Available reports whether the backend's prerequisites (credential,
	// loaded model) are currently met.
	Available() bool
	// Transcribe processes one utterance. Implementations must honor ctx
	// cancellation for network calls.
	Transcribe(ctx context.Context, req Request) (Result, error)
	// Close releases backend resources.
	Close() error
}
