// Package config loads the startup configuration from YAML. Runtime-tunable
// options live in the settings store; this file covers what must be known
// before the pipeline starts (paths, capture format, server address).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all startup configuration.
type Config struct {
	DataDir   string         `yaml:"data_dir"`
	ModelPath string         `yaml:"model_path"`
	Audio     AudioConfig    `yaml:"audio"`
	Server    ServerConfig   `yaml:"server"`
	Provider  ProviderConfig `yaml:"provider"`
	LogLevel  string         `yaml:"log_level"`
}

// AudioConfig holds capture settings. The pipeline resamples to its
// canonical rate, so the capture rate just needs to match the device.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
}

// ServerConfig holds the control-surface settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	MDNS bool   `yaml:"mdns"`
}

// ProviderConfig holds transcription dispatch settings.
type ProviderConfig struct {
	Timeout        Duration `yaml:"timeout"`
	HealthInterval Duration `yaml:"health_interval"`
}

// Duration wraps time.Duration so YAML accepts values like "30s".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ptt-scribe")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	home, _ := os.UserHomeDir()
	share := filepath.Join(home, ".local", "share", "ptt-scribe")

	return &Config{
		DataDir:   share,
		ModelPath: filepath.Join(share, "models", "ggml-base.en.bin"),
		Audio: AudioConfig{
			SampleRate: 48000,
			Channels:   1,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8730",
			MDNS: false,
		},
		Provider: ProviderConfig{
			Timeout:        Duration(30 * time.Second),
			HealthInterval: Duration(time.Minute),
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled with
// defaults. Tilde (~) in paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.DataDir = expandTilde(cfg.DataDir)
	cfg.ModelPath = expandTilde(cfg.ModelPath)

	return cfg, nil
}

// WriteDefault writes a commented default config to the default path if no
// config exists yet. Returns the written path, or "" when a config was
// already present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(DefaultConfigDir(), 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	cfg := Default()
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	content := "# ptt-scribe configuration\n# Runtime options (provider, keybinding, delays) live in settings.json\n# and are edited through the API; this file covers startup-only values.\n\n" + string(body)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing default config: %w", err)
	}
	return path, nil
}

// SettingsPath returns the path of the runtime settings file.
func (c *Config) SettingsPath() string { return filepath.Join(c.DataDir, "settings.json") }

// VocabularyPath returns the path of the vocabulary file.
func (c *Config) VocabularyPath() string { return filepath.Join(c.DataDir, "vocabulary.txt") }

// ReplacementsPath returns the path of the replacement rules file.
func (c *Config) ReplacementsPath() string { return filepath.Join(c.DataDir, "replacements.json") }

// HistoryPath returns the path of the transcription history file.
func (c *Config) HistoryPath() string { return filepath.Join(c.DataDir, "history.json") }

// DebugDir returns the directory for debug audio dumps.
func (c *Config) DebugDir() string { return filepath.Join(c.DataDir, "debug") }

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}

	if c.ModelPath == "" {
		return fmt.Errorf("model_path must not be empty")
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}

	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be > 0")
	}

	if c.Provider.HealthInterval <= 0 {
		return fmt.Errorf("provider.health_interval must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a config log level onto slog, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
