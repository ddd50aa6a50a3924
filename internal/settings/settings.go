// Package settings is the schema-driven runtime settings store.
//
// Every option declares its type, default, and constraints up front; the one
// generic Set operation validates against that declaration, so adding an
// option is a single schema entry. Values persist to a JSON file on every
// successful mutation and a rejected value leaves prior state untouched.
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Type is the declared value type of an option.
type Type string

const (
	String  Type = "string"
	Number  Type = "number"
	Boolean Type = "boolean"
)

// Option declares one setting: its type, default, and constraints.
type Option struct {
	Type        Type     `json:"type"`
	Default     any      `json:"default"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Enum        []string `json:"options,omitempty"`
	Description string   `json:"description,omitempty"`
}

func bound(f float64) *float64 { return &f }

// Schema declares every runtime option.
var Schema = map[string]Option{
	"language": {
		Type: String, Default: "",
		Enum:        []string{"", "en", "fr", "zh", "ja"},
		Description: "Transcription language (empty for auto-detect)",
	},
	"keybinding": {
		Type: String, Default: "ctrl",
		Enum:        []string{"ctrl", "shift"},
		Description: "Modifier key for the push-to-talk chord (+ Option)",
	},
	"provider": {
		Type: String, Default: "local",
		Enum:        []string{"local", "openai", "groq"},
		Description: "Preferred transcription provider",
	},
	"paste_delay": {
		Type: Number, Default: 0.5, Min: bound(0), Max: bound(2),
		Description: "Delay after paste before restoring the clipboard (s)",
	},
	"clipboard_sync_delay": {
		Type: Number, Default: 0.15, Min: bound(0.05), Max: bound(1),
		Description: "Delay before paste so the clipboard has synced (s)",
	},
	"volume_normalization": {
		Type: Boolean, Default: true,
		Description: "Normalize clip volume toward the target RMS",
	},
	"target_rms": {
		Type: Number, Default: 3000.0, Min: bound(0), Max: bound(32767),
		Description: "Target RMS level on the 16-bit scale",
	},
	"max_gain_db": {
		Type: Number, Default: 30.0, Min: bound(0), Max: bound(60),
		Description: "Maximum normalization gain in dB",
	},
	"min_volume_rms": {
		Type: Number, Default: 0.0, Min: bound(0), Max: bound(32767),
		Description: "Reject clips quieter than this RMS (0 disables)",
	},
	"min_duration_sec": {
		Type: Number, Default: 0.3, Min: bound(0), Max: bound(5),
		Description: "Reject clips shorter than this (accidental taps)",
	},
	"pad_short_clips": {
		Type: Boolean, Default: true,
		Description: "Zero-pad very short clips before transcription",
	},
	"max_recording_sec": {
		Type: Number, Default: 120.0, Min: bound(5), Max: bound(600),
		Description: "Force-stop recordings longer than this",
	},
	"content_filter": {
		Type: Boolean, Default: false,
		Description: "Drop known silence hallucinations",
	},
	"debug_audio": {
		Type: Boolean, Default: false,
		Description: "Persist processed clips and metadata for diagnosis",
	},
	"auto_paste": {
		Type: Boolean, Default: true,
		Description: "Paste transcription into the focused window",
	},
	"notifications": {
		Type: Boolean, Default: false,
		Description: "Desktop notification on delivery and errors",
	},
}

// Guard is a veto hook consulted before a key is mutated; it can reject a
// change based on runtime state (e.g. switching the chord mid-recording).
type Guard func(value any) error

// Store holds current values and persists them to a JSON file.
type Store struct {
	path string

	mu     sync.Mutex
	values map[string]any
	guards map[string]Guard
}

// NewStore loads the settings file at path, merging stored values over
// schema defaults. Unknown keys in the file are dropped; a missing or
// corrupt file falls back to defaults.
func NewStore(path string) *Store {
	values := defaults()

	if data, err := os.ReadFile(path); err == nil {
		var stored map[string]any
		if err := json.Unmarshal(data, &stored); err != nil {
			slog.Warn("[settings] file is corrupt, using defaults", "path", path, "error", err)
		} else {
			for k, v := range stored {
				if _, known := Schema[k]; !known {
					continue
				}
				if err := validate(k, v); err == nil {
					values[k] = normalize(k, v)
				}
			}
		}
	}

	return &Store{path: path, values: values, guards: make(map[string]Guard)}
}

func defaults() map[string]any {
	out := make(map[string]any, len(Schema))
	for k, opt := range Schema {
		out[k] = opt.Default
	}
	return out
}

// SetGuard installs a veto hook for one key.
func (s *Store) SetGuard(key string, g Guard) {
	s.mu.Lock()
	s.guards[key] = g
	s.mu.Unlock()
}

// Get returns the current value of key, or the schema default for an
// unknown key (nil if the key is not declared at all).
func (s *Store) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	if opt, ok := Schema[key]; ok {
		return opt.Default
	}
	return nil
}

// String returns a string-typed setting.
func (s *Store) String(key string) string {
	v, _ := s.Get(key).(string)
	return v
}

// Bool returns a boolean-typed setting.
func (s *Store) Bool(key string) bool {
	v, _ := s.Get(key).(bool)
	return v
}

// Float returns a number-typed setting.
func (s *Store) Float(key string) float64 {
	switch v := s.Get(key).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Set validates value against the schema (and any guard) and persists it.
// On validation failure the prior value is retained and the error describes
// the violated constraint.
func (s *Store) Set(key string, value any) error {
	if err := validate(key, value); err != nil {
		return err
	}
	value = normalize(key, value)

	s.mu.Lock()
	if g, ok := s.guards[key]; ok {
		if err := g(value); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	prev := s.values[key]
	s.values[key] = value
	snapshot := make(map[string]any, len(s.values))
	for k, v := range s.values {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if err := s.persist(snapshot); err != nil {
		s.mu.Lock()
		s.values[key] = prev
		s.mu.Unlock()
		return err
	}

	slog.Info("[settings] option changed", "key", key, "value", value)
	return nil
}

// All returns a snapshot of every current value.
func (s *Store) All() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Store) persist(values map[string]any) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encoding: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("settings: writing %s: %w", s.path, err)
	}
	return nil
}

// validate checks value against the schema entry for key.
func validate(key string, value any) error {
	opt, ok := Schema[key]
	if !ok {
		return fmt.Errorf("settings: unknown setting %q", key)
	}

	switch opt.Type {
	case String:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("settings: %s must be a string", key)
		}
		if len(opt.Enum) > 0 {
			for _, e := range opt.Enum {
				if str == e {
					return nil
				}
			}
			return fmt.Errorf("settings: %s must be one of %v", key, opt.Enum)
		}
	case Boolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("settings: %s must be a boolean", key)
		}
	case Number:
		f, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("settings: %s must be a number", key)
		}
		if opt.Min != nil && f < *opt.Min {
			return fmt.Errorf("settings: %s must be >= %v", key, *opt.Min)
		}
		if opt.Max != nil && f > *opt.Max {
			return fmt.Errorf("settings: %s must be <= %v", key, *opt.Max)
		}
	}
	return nil
}

// normalize coerces numeric values to float64 so stored and loaded values
// compare equal.
func normalize(key string, value any) any {
	if Schema[key].Type == Number {
		if f, ok := toFloat(value); ok {
			return f
		}
	}
	return value
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
