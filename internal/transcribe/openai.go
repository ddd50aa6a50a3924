package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI transcribes via the OpenAI Whisper API.
type OpenAI struct {
	client *openai.Client
	apiKey string
}

// NewOpenAI creates the OpenAI backend. The API key comes from the
// OPENAI_API_KEY environment variable; without it the backend reports
// unavailable.
func NewOpenAI() *OpenAI {
	apiKey := os.Getenv("OPENAI_API_KEY")
	var client *openai.Client
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}
	return &OpenAI{client: client, apiKey: apiKey}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Available() bool { return o.apiKey != "" }

func (o *OpenAI) Close() error { return nil }

// Transcribe sends the WAV to the whisper-1 endpoint in verbose mode so the
// detected language and duration come back with the text.
func (o *OpenAI) Transcribe(ctx context.Context, req Request) (Result, error) {
	if o.client == nil {
		return Result{}, fmt.Errorf("transcribe: openai: OPENAI_API_KEY not set")
	}

	start := time.Now()

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(req.WAV),
		FilePath: "audio.wav",
		Prompt:   req.Prompt,
		Language: req.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: openai: %w", err)
	}

	duration := time.Duration(resp.Duration * float64(time.Second))
	if duration == 0 {
		duration = wavDuration(req.WAV)
	}

	return Result{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Provider: o.Name(),
		Duration: duration,
		Latency:  time.Since(start),
	}, nil
}
