package transcribe

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Whisper runs whisper.cpp in-process. It is the designated fallback: once
// the model is loaded it has no external prerequisite and never becomes
// unavailable.
type Whisper struct {
	model whisper.Model
}

// NewWhisper loads a whisper ggml model from the given path.
// The caller must call Close() when done.
func NewWhisper(modelPath string) (*Whisper, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}
	return &Whisper{model: model}, nil
}

func (w *Whisper) Name() string { return "local" }

func (w *Whisper) Available() bool { return w.model != nil }

// Close releases the whisper model resources.
func (w *Whisper) Close() error {
	if w.model != nil {
		return w.model.Close()
	}
	return nil
}

// Transcribe runs mono 16kHz float32 samples through the model. The hint
// prompt biases decoding toward the configured vocabulary.
func (w *Whisper) Transcribe(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	wctx, err := w.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: create context: %w", err)
	}

	if req.Prompt != "" {
		wctx.SetInitialPrompt(req.Prompt)
	}
	if req.Language != "" {
		if err := wctx.SetLanguage(req.Language); err != nil {
			return Result{}, fmt.Errorf("transcribe: set language %q: %w", req.Language, err)
		}
	}

	if err := wctx.Process(req.Samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("transcribe: process: %w", err)
	}

	var segments []string
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("transcribe: next segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}

	return Result{
		Text:     strings.TrimSpace(strings.Join(segments, " ")),
		Language: req.Language,
		Provider: w.Name(),
		Duration: time.Duration(float64(len(req.Samples)) / 16000 * float64(time.Second)),
		Latency:  time.Since(start),
	}, nil
}
