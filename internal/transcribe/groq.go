package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"
)

// groqModel balances speed, accuracy, and cost on Groq's Whisper hosting.
const groqModel = "whisper-large-v3-turbo"

// Groq transcribes via Groq's OpenAI-compatible Whisper API.
type Groq struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
}

// NewGroq creates the Groq backend. The API key comes from the GROQ_API_KEY
// environment variable; without it the backend reports unavailable.
func NewGroq() *Groq {
	return &Groq{
		apiKey:     os.Getenv("GROQ_API_KEY"),
		baseURL:    "https://api.groq.com/openai/v1",
		httpClient: &http.Client{Timeout: 60 * time.Second},
		retry:      DefaultRetryConfig(),
	}
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) Available() bool { return g.apiKey != "" }

func (g *Groq) Close() error { return nil }

type groqTranscription struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Transcribe uploads the WAV as multipart form data and decodes the
// verbose_json response.
func (g *Groq) Transcribe(ctx context.Context, req Request) (Result, error) {
	if g.apiKey == "" {
		return Result{}, fmt.Errorf("transcribe: groq: GROQ_API_KEY not set")
	}

	start := time.Now()
	var parsed groqTranscription

	retryErr := withRetry(ctx, g.retry, func() error {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)

		part, err := writer.CreateFormFile("file", "audio.wav")
		if err != nil {
			return fmt.Errorf("creating form file: %w", err)
		}
		if _, err = part.Write(req.WAV); err != nil {
			return fmt.Errorf("writing audio: %w", err)
		}

		if err = writer.WriteField("model", groqModel); err != nil {
			return fmt.Errorf("writing model field: %w", err)
		}
		if err = writer.WriteField("response_format", "verbose_json"); err != nil {
			return fmt.Errorf("writing format field: %w", err)
		}
		if req.Language != "" {
			if err = writer.WriteField("language", req.Language); err != nil {
				return fmt.Errorf("writing language field: %w", err)
			}
		}
		if req.Prompt != "" {
			if err = writer.WriteField("prompt", req.Prompt); err != nil {
				return fmt.Errorf("writing prompt field: %w", err)
			}
		}
		if err = writer.Close(); err != nil {
			return fmt.Errorf("closing writer: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/audio/transcriptions", body)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
		httpReq.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := g.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			apiErr := fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(respBody))
			if isRetryableHTTPStatus(resp.StatusCode) {
				return apiErr
			}
			return permanent(apiErr)
		}

		if err = json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
	if retryErr != nil {
		return Result{}, fmt.Errorf("transcribe: groq: %w", retryErr)
	}

	duration := time.Duration(parsed.Duration * float64(time.Second))
	if duration == 0 {
		duration = wavDuration(req.WAV)
	}

	return Result{
		Text:     strings.TrimSpace(parsed.Text),
		Language: parsed.Language,
		Provider: g.Name(),
		Duration: duration,
		Latency:  time.Since(start),
	}, nil
}

// wavDuration estimates audio length from WAV payload size, assuming the
// canonical 16 kHz mono 16-bit layout with a 44-byte header.
func wavDuration(wav []byte) time.Duration {
	if len(wav) <= 44 {
		return 0
	}
	secs := float64(len(wav)-44) / (16000 * 2)
	return time.Duration(secs * float64(time.Second))
}
