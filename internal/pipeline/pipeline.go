// Package pipeline runs one captured clip through gating, normalization,
// transcription, and text post-processing, producing exactly one Outcome
// per clip. Transcription happens on a worker goroutine so the hotkey
// listener and the server stay responsive.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pttscribe/ptt-scribe/internal/audio"
	"github.com/pttscribe/ptt-scribe/internal/deliver"
	"github.com/pttscribe/ptt-scribe/internal/history"
	"github.com/pttscribe/ptt-scribe/internal/replace"
	"github.com/pttscribe/ptt-scribe/internal/settings"
	"github.com/pttscribe/ptt-scribe/internal/transcribe"
	"github.com/pttscribe/ptt-scribe/internal/vocab"
)

// Status classifies how a captured clip ended up.
type Status string

const (
	// StatusOK means the clip produced a transcript.
	StatusOK Status = "ok"
	// StatusCancelledShort means the clip was too short to process.
	StatusCancelledShort Status = "cancelled_short"
	// StatusCancelledQuiet means the clip was below the volume floor.
	StatusCancelledQuiet Status = "cancelled_quiet"
	// StatusProviderUnavailable means no transcription backend could serve.
	StatusProviderUnavailable Status = "provider_unavailable"
	// StatusFailed means the pipeline hit an unexpected error.
	StatusFailed Status = "failed"
)

// Outcome is the single result record emitted for one captured clip.
type Outcome struct {
	Status       Status        `json:"status"`
	Text         string        `json:"text"`
	RawText      string        `json:"raw_text,omitempty"`
	Provider     string        `json:"provider,omitempty"`
	Language     string        `json:"language,omitempty"`
	UsedFallback bool          `json:"used_fallback,omitempty"`
	Matched      []string      `json:"matched_terms,omitempty"`
	Audio        audio.Meta    `json:"audio"`
	Latency      time.Duration `json:"latency"`
	Error        string        `json:"error,omitempty"`
}

// Router is the provider-dispatch dependency.
type Router interface {
	Dispatch(ctx context.Context, preferred string, req transcribe.Request) (transcribe.Result, error)
}

// Deliverer hands finished text to the user.
type Deliverer interface {
	Deliver(text string, opts deliver.Options) error
	Status(title, message string) error
}

// job pairs a captured clip with its completion callback.
type job struct {
	clip audio.Clip
	done func(Outcome)
}

// Pipeline owns the worker that processes captured clips one at a time.
type Pipeline struct {
	router    Router
	deliverer Deliverer
	settings  *settings.Store
	vocab     *vocab.Store
	rules     *replace.Store
	history   *history.Store
	debug     *DebugDump

	jobs chan job
	done chan struct{}
	once sync.Once

	mu        sync.Mutex
	onOutcome []func(Outcome)
}

// New creates a Pipeline. debug may be nil when audio dumping is disabled
// at the configuration level.
func New(router Router, deliverer Deliverer, st *settings.Store, vb *vocab.Store, rules *replace.Store, hist *history.Store, debug *DebugDump) *Pipeline {
	return &Pipeline{
		router:    router,
		deliverer: deliverer,
		settings:  st,
		vocab:     vb,
		rules:     rules,
		history:   hist,
		debug:     debug,
		jobs:      make(chan job, 4),
		done:      make(chan struct{}),
	}
}

// OnOutcome registers an observer called with every outcome, after the
// job's own completion callback. Used by the server to broadcast results.
func (p *Pipeline) OnOutcome(fn func(Outcome)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onOutcome = append(p.onOutcome, fn)
}

// Submit queues a clip for processing. done is called exactly once with
// the outcome, on the worker goroutine.
func (p *Pipeline) Submit(clip audio.Clip, done func(Outcome)) {
	select {
	case p.jobs <- job{clip: clip, done: done}:
	case <-p.done:
	}
}

// Run processes submitted clips until Stop is called. Run it in a
// goroutine.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			out := p.process(ctx, j.clip)
			if j.done != nil {
				j.done(out)
			}
			p.broadcast(out)
		}
	}
}

// Stop terminates the worker. Safe to call multiple times.
func (p *Pipeline) Stop() {
	p.once.Do(func() { close(p.done) })
}

func (p *Pipeline) broadcast(out Outcome) {
	p.mu.Lock()
	observers := make([]func(Outcome), len(p.onOutcome))
	copy(observers, p.onOutcome)
	p.mu.Unlock()
	for _, fn := range observers {
		fn(out)
	}
}

func (p *Pipeline) process(ctx context.Context, clip audio.Clip) Outcome {
	start := time.Now()

	gated, decision, padded := audio.Admit(clip, audio.GateConfig{
		MinDuration: time.Duration(p.settings.Float("min_duration_sec") * float64(time.Second)),
		MinRMS:      p.settings.Float("min_volume_rms"),
		PadShort:    p.settings.Bool("pad_short_clips"),
	})
	switch decision {
	case audio.RejectedTooShort:
		slog.Info("[pipeline] clip rejected", "reason", decision, "duration", clip.Duration())
		return p.finishRejected(StatusCancelledShort, clip, start)
	case audio.RejectedTooQuiet:
		slog.Info("[pipeline] clip rejected", "reason", decision, "rms", clip.RMS())
		return p.finishRejected(StatusCancelledQuiet, clip, start)
	}

	resampled, err := audio.Resample(gated, audio.TargetRate)
	if err != nil {
		return p.finishFailed(fmt.Errorf("resampling: %w", err), start)
	}

	processed := resampled
	meta := audio.Meta{
		OriginalRMS:  resampled.RMS(),
		ProcessedRMS: resampled.RMS(),
		Duration:     resampled.Duration(),
	}
	if p.settings.Bool("volume_normalization") {
		processed, meta = audio.Normalize(resampled, p.settings.Float("target_rms"), p.settings.Float("max_gain_db"))
	}
	meta.Padded = padded

	terms := p.vocab.Terms()
	req := transcribe.Request{
		WAV:      audio.EncodeWAV(processed),
		Samples:  processed.Samples,
		Prompt:   vocab.Prompt(terms),
		Language: p.settings.String("language"),
	}

	if p.debug != nil && p.settings.Bool("debug_audio") {
		if err := p.debug.Dump(req.WAV, meta); err != nil {
			slog.Warn("[pipeline] debug dump failed", "error", err)
		}
	}

	res, err := p.router.Dispatch(ctx, p.settings.String("provider"), req)
	if err != nil {
		if errors.Is(err, transcribe.ErrNoProvider) {
			slog.Warn("[pipeline] no provider available", "error", err)
			out := Outcome{
				Status:  StatusProviderUnavailable,
				Audio:   meta,
				Latency: time.Since(start),
				Error:   err.Error(),
			}
			p.notifyStatus("Transcription unavailable", "no provider could process the clip")
			return out
		}
		return p.finishFailed(fmt.Errorf("dispatching: %w", err), start)
	}

	text, matched := vocab.ApplyCasing(res.Text, terms)
	text = replace.Apply(text, p.rules.Rules())
	if p.settings.Bool("content_filter") {
		text = replace.FilterHallucination(text)
	}

	if err := p.history.Add(text); err != nil {
		slog.Warn("[pipeline] history append failed", "error", err)
	}

	if err := p.deliverer.Deliver(text, deliver.Options{
		AutoPaste:          p.settings.Bool("auto_paste"),
		ClipboardSyncDelay: time.Duration(p.settings.Float("clipboard_sync_delay") * float64(time.Second)),
		PasteDelay:         time.Duration(p.settings.Float("paste_delay") * float64(time.Second)),
		Notify:             p.settings.Bool("notifications"),
	}); err != nil {
		slog.Warn("[pipeline] delivery failed", "error", err)
	}

	slog.Info("[pipeline] clip transcribed",
		"provider", res.Provider,
		"fallback", res.UsedFallback,
		"duration", meta.Duration,
		"latency", time.Since(start),
	)

	return Outcome{
		Status:       StatusOK,
		Text:         text,
		RawText:      res.Text,
		Provider:     res.Provider,
		Language:     res.Language,
		UsedFallback: res.UsedFallback,
		Matched:      matched,
		Audio:        meta,
		Latency:      time.Since(start),
	}
}

func (p *Pipeline) finishRejected(status Status, clip audio.Clip, start time.Time) Outcome {
	out := Outcome{
		Status: status,
		Audio: audio.Meta{
			OriginalRMS: clip.RMS(),
			Duration:    clip.Duration(),
		},
		Latency: time.Since(start),
	}
	switch status {
	case StatusCancelledShort:
		p.notifyStatus("Recording too short", "hold the chord a little longer")
	case StatusCancelledQuiet:
		p.notifyStatus("Recording too quiet", "clip was below the volume floor")
	}
	return out
}

func (p *Pipeline) finishFailed(err error, start time.Time) Outcome {
	slog.Error("[pipeline] processing failed", "error", err)
	p.notifyStatus("Transcription failed", err.Error())
	return Outcome{
		Status:  StatusFailed,
		Latency: time.Since(start),
		Error:   err.Error(),
	}
}

func (p *Pipeline) notifyStatus(title, message string) {
	if !p.settings.Bool("notifications") {
		return
	}
	if err := p.deliverer.Status(title, message); err != nil {
		slog.Warn("[pipeline] status notification failed", "error", err)
	}
}
