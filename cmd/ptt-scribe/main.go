// Command ptt-scribe is a push-to-talk dictation daemon. Hold the
// configured chord (modifier + option) to record; release to transcribe
// and paste the text into the focused window. A local HTTP/WebSocket API
// exposes settings, vocabulary, replacement rules, and history.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pttscribe/ptt-scribe/internal/audio"
	"github.com/pttscribe/ptt-scribe/internal/config"
	"github.com/pttscribe/ptt-scribe/internal/deliver"
	"github.com/pttscribe/ptt-scribe/internal/history"
	"github.com/pttscribe/ptt-scribe/internal/hotkey"
	"github.com/pttscribe/ptt-scribe/internal/pipeline"
	"github.com/pttscribe/ptt-scribe/internal/replace"
	"github.com/pttscribe/ptt-scribe/internal/server"
	"github.com/pttscribe/ptt-scribe/internal/settings"
	"github.com/pttscribe/ptt-scribe/internal/transcribe"
	"github.com/pttscribe/ptt-scribe/internal/vocab"
)

const watchInterval = 2 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/ptt-scribe/config.yaml)")
	writeConfig := flag.Bool("init", false, "write a default config file and exit")
	flag.Parse()

	if *writeConfig {
		path, err := config.WriteDefault()
		if err != nil {
			fmt.Fprintf(os.Stderr, "writing default config: %v\n", err)
			os.Exit(1)
		}
		if path == "" {
			fmt.Println("Config already exists at", config.DefaultConfigPath())
		} else {
			fmt.Println("Wrote default config to", path)
		}
		return
	}

	// API keys for the remote providers come from the environment or .env.
	if err := godotenv.Load(); err == nil {
		slog.Info("[main] loaded .env")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("config", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("config validation", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	printBanner(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fatal("creating data dir", err)
	}

	st := settings.NewStore(cfg.SettingsPath())

	vb, err := vocab.NewStore(cfg.VocabularyPath())
	if err != nil {
		fatal("vocabulary store", err)
	}
	vb.Watch(watchInterval)
	defer vb.Stop()

	rules, err := replace.NewStore(cfg.ReplacementsPath())
	if err != nil {
		fatal("replacements store", err)
	}
	rules.Watch(watchInterval)
	defer rules.Stop()

	hist := history.NewStore(cfg.HistoryPath())

	slog.Info("[main] loading whisper model", "path", cfg.ModelPath)
	modelStart := time.Now()
	local, err := transcribe.NewWhisper(cfg.ModelPath)
	if err != nil {
		fatal("loading whisper model (run 'fetch-model' to download it)", err)
	}
	slog.Info("[main] model loaded", "elapsed", time.Since(modelStart).Round(time.Millisecond))

	router, err := transcribe.NewRouter(
		[]transcribe.Provider{local, transcribe.NewOpenAI(), transcribe.NewGroq()},
		"local",
		cfg.Provider.Timeout.Std(),
	)
	if err != nil {
		fatal("provider router", err)
	}
	router.StartHealthLoop(cfg.Provider.HealthInterval.Std())
	defer router.Stop()

	recorder, err := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		fatal("audio recorder (check microphone permissions)", err)
	}
	defer recorder.Close()
	slog.Info("[main] audio recorder ready", "rate", cfg.Audio.SampleRate, "channels", cfg.Audio.Channels)

	var debug *pipeline.DebugDump
	if debug, err = pipeline.NewDebugDump(cfg.DebugDir()); err != nil {
		fatal("debug dump dir", err)
	}

	pipe := pipeline.New(router, deliver.New(), st, vb, rules, hist, debug)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pipe.Run(ctx)
	defer pipe.Stop()

	binding, err := hotkey.BindingFor(st.String("keybinding"))
	if err != nil {
		fatal("keybinding", err)
	}
	maxHold := time.Duration(st.Float("max_recording_sec") * float64(time.Second))
	controller := hotkey.NewController(binding, maxHold)
	go controller.Run()
	defer controller.Stop()

	// Switching the chord is vetoed while a capture session is in flight.
	st.SetGuard("keybinding", func(value any) error {
		name, ok := value.(string)
		if !ok {
			return fmt.Errorf("keybinding must be a string")
		}
		b, err := hotkey.BindingFor(name)
		if err != nil {
			return err
		}
		return controller.SetBinding(b)
	})

	srv := server.New(st, vb, rules, hist, func() (string, map[string]bool) {
		return controller.State().String(), router.Availability()
	})
	pipe.OnOutcome(func(out pipeline.Outcome) {
		srv.Hub().Broadcast("outcome", out)
	})
	go func() {
		if err := srv.Listen(cfg.Server.Addr); err != nil {
			slog.Error("[main] server stopped", "error", err)
		}
	}()
	defer srv.Shutdown()

	if cfg.Server.MDNS {
		if port := addrPort(cfg.Server.Addr); port > 0 {
			if err := srv.Announce("ptt-scribe", port); err != nil {
				slog.Warn("[main] mdns announce failed", "error", err)
			}
		}
	}

	go hotkey.Listen(controller)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	slog.Info("[main] ready", "chord", st.String("keybinding")+"+option", "api", cfg.Server.Addr)

	events := controller.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			handleEvent(ev, recorder, pipe, controller, srv)

		case sig := <-sigCh:
			slog.Info("[main] shutting down", "signal", sig)
			if recorder.IsRecording() {
				recorder.Stop()
			}
			recorder.Close()
			router.Stop()
			// Exit directly to avoid gohook's C cleanup crash. The OS
			// reclaims the event hook on process exit.
			os.Exit(0)
		}
	}
}

func handleEvent(ev hotkey.Event, recorder *audio.Recorder, pipe *pipeline.Pipeline, controller *hotkey.Controller, srv *server.Server) {
	switch ev.Type {
	case hotkey.EventStart:
		if err := recorder.Start(); err != nil {
			slog.Error("[main] failed to start recording", "error", err)
			controller.Cancel()
			return
		}
		slog.Info("[main] recording")
		srv.Hub().Broadcast("state", "recording")

	case hotkey.EventStop:
		clip, ok := recorder.Stop()
		srv.Hub().Broadcast("state", "processing")
		if !ok {
			slog.Warn("[main] no audio captured")
			controller.Finish()
			srv.Hub().Broadcast("state", "idle")
			return
		}
		slog.Info("[main] captured clip", "duration", clip.Duration().Round(time.Millisecond))
		pipe.Submit(clip, func(out pipeline.Outcome) {
			controller.Finish()
			srv.Hub().Broadcast("state", "idle")
		})

	case hotkey.EventAbort:
		if _, ok := recorder.Stop(); ok {
			slog.Info("[main] capture aborted, clip discarded")
		}
		srv.Hub().Broadcast("state", "idle")
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		slog.Info("[main] config loaded", "path", defaultPath)
		return cfg, nil
	}

	slog.Info("[main] no config file found, using defaults")
	return config.Default(), nil
}

// addrPort extracts the TCP port from a listen address.
func addrPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== ptt-scribe ===")
	fmt.Printf("  Model:   %s\n", cfg.ModelPath)
	fmt.Printf("  Data:    %s\n", cfg.DataDir)
	fmt.Printf("  Audio:   %dHz, %dch\n", cfg.Audio.SampleRate, cfg.Audio.Channels)
	fmt.Printf("  API:     http://%s\n", cfg.Server.Addr)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("==================")
}

func fatal(msg string, err error) {
	slog.Error("[main] "+msg, "error", err)
	os.Exit(1)
}
