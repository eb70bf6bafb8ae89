package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprcaptions/internal/language"
	"github.com/leonardotrapani/hyprcaptions/internal/notify"
	"github.com/leonardotrapani/hyprcaptions/internal/testutil"
	"go.uber.org/zap/zaptest"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	sc := cfg.ToSessionConfig()
	if sc.Transport.URL != "ws://localhost:8000/ws" {
		t.Errorf("Transport.URL = %q", sc.Transport.URL)
	}
	if sc.Transport.ReconnectDelay != 3*time.Second {
		t.Errorf("ReconnectDelay = %v, want 3s", sc.Transport.ReconnectDelay)
	}
	if sc.Subtitles.Language != language.Source {
		t.Errorf("Language = %q, want source", sc.Subtitles.Language)
	}
	if sc.Summary.Interval != 25*time.Second {
		t.Errorf("Summary.Interval = %v, want 25s", sc.Summary.Interval)
	}
	if sc.Settings.FontSize != 24 || sc.Settings.BottomOffset != 20 {
		t.Errorf("Settings = %+v", sc.Settings)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantKey string
	}{
		{"bad log level", func(c *Config) { c.General.LogLevel = "loud" }, "general.log_level"},
		{"zero sample rate", func(c *Config) { c.Capture.SampleRate = 0 }, "capture.sample_rate"},
		{"zero frame buffer", func(c *Config) { c.Capture.FrameBuffer = 0 }, "capture.frame_buffer"},
		{"video without device", func(c *Config) { c.Capture.VideoDevice = "" }, "capture.video_device"},
		{"http transport url", func(c *Config) { c.Transport.URL = "http://localhost:8000/ws" }, "transport.url"},
		{"zero reconnect delay", func(c *Config) { c.Transport.ReconnectDelay = 0 }, "transport.reconnect_delay"},
		{"unknown language", func(c *Config) { c.Subtitles.Language = "de" }, "subtitles.language"},
		{"unsupported source", func(c *Config) { c.Subtitles.Source = "zh" }, "subtitles.source"},
		{"bad background", func(c *Config) { c.Subtitles.Display.BackgroundColor = "black" }, "subtitles.display.background_color"},
		{"bad text color", func(c *Config) { c.Subtitles.Display.TextColor = "#GG0000" }, "subtitles.display.text_color"},
		{"zero summary interval", func(c *Config) { c.Summary.Interval = 0 }, "summary.interval"},
		{"empty player", func(c *Config) { c.Voice.Player = nil }, "voice.player"},
		{"unknown summarizer", func(c *Config) { c.Backend.Summarizer = "claude" }, "backend.summarizer"},
		{"bad base url", func(c *Config) { c.Backend.BaseURL = "localhost" }, "backend.base_url"},
		{"bad notification type", func(c *Config) { c.Notifications.Type = "email" }, "notifications.type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantKey) {
				t.Errorf("error %q should name %s", err, tt.wantKey)
			}
		})
	}
}

func TestValidate_APIKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg := DefaultConfig()
	cfg.Backend.Translator = "openai"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("expected missing OpenAI key error, got %v", err)
	}

	cfg.Providers["openai"] = ProviderConfig{APIKey: "sk-test"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with provider key: %v", err)
	}

	cfg.Backend.Summarizer = "gemini"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("expected missing Gemini key error, got %v", err)
	}

	t.Setenv("GEMINI_API_KEY", "g-env")
	if got := cfg.APIKey("gemini"); got != "g-env" {
		t.Errorf("APIKey(gemini) = %q, want env value", got)
	}
	if got := cfg.ToBackendConfig().OpenAIAPIKey; got != "sk-test" {
		t.Errorf("OpenAIAPIKey = %q", got)
	}
}

func TestLoadFrom_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadFrom(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not created: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("created config invalid: %v", err)
	}

	again, err := LoadFrom(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("second LoadFrom() error = %v", err)
	}
	if again.Transport.ReconnectDelay != cfg.Transport.ReconnectDelay {
		t.Errorf("ReconnectDelay round trip: %v != %v", again.Transport.ReconnectDelay, cfg.Transport.ReconnectDelay)
	}
	if again.Subtitles.Display != cfg.Subtitles.Display {
		t.Errorf("Display round trip: %+v != %+v", again.Subtitles.Display, cfg.Subtitles.Display)
	}
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := testutil.CreateTempConfigFile(t, `
[transport]
  url = "wss://captions.example.com/ws"
  reconnect_delay = "5s"

[subtitles]
  language = "en"
  auto_voice = true

[subtitles.display]
  font_size = 40
  text_color = "#FFFF00"
`)

	cfg, err := LoadFrom(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Transport.URL != "wss://captions.example.com/ws" {
		t.Errorf("URL = %q", cfg.Transport.URL)
	}
	if cfg.Transport.ReconnectDelay != 5*time.Second {
		t.Errorf("ReconnectDelay = %v, want 5s", cfg.Transport.ReconnectDelay)
	}
	if cfg.Transport.HandshakeTimeout != 10*time.Second {
		t.Errorf("HandshakeTimeout = %v, want default", cfg.Transport.HandshakeTimeout)
	}
	if !cfg.Subtitles.AutoVoice || cfg.Subtitles.Language != "en" {
		t.Errorf("Subtitles = %+v", cfg.Subtitles)
	}
	if d := cfg.Subtitles.Display; d.FontSize != 40 || d.TextColor != "#FFFF00" || d.BottomOffset != 20 {
		t.Errorf("Display = %+v", d)
	}
}

func TestLoadFrom_ParseError(t *testing.T) {
	path := testutil.CreateTempConfigFile(t, "[transport\nurl = ")
	if _, err := LoadFrom(path, zaptest.NewLogger(t)); err == nil {
		t.Error("LoadFrom() should fail on malformed TOML")
	}
}

func TestLoadFrom_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HYPRCAPTIONS_TEST_KEY=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("HYPRCAPTIONS_TEST_KEY") })

	if _, err := LoadFrom(path, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if got := os.Getenv("HYPRCAPTIONS_TEST_KEY"); got != "from-dotenv" {
		t.Errorf("env var = %q, want from-dotenv", got)
	}
}

func TestSessionConfig_ClampsDisplay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Subtitles.Display.FontSize = 200
	cfg.Subtitles.Display.BottomOffset = -5

	s := cfg.ToSessionConfig().Settings
	if s.FontSize != 48 || s.BottomOffset != 0 {
		t.Errorf("clamped settings = %+v", s)
	}
}

func TestMessagesResolve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notifications.Messages.SessionStarted = MessageConfig{Title: "Captions on"}

	msgs := cfg.Notifications.Messages.Resolve()
	if len(msgs) != len(notify.MessageDefs) {
		t.Fatalf("resolved %d messages, want %d", len(msgs), len(notify.MessageDefs))
	}
	started := msgs[notify.MsgSessionStarted]
	if started.Title != "Captions on" {
		t.Errorf("Title = %q, want override", started.Title)
	}
	if started.Body == "" {
		t.Error("Body should fall back to default")
	}
	if !msgs[notify.MsgPermissionDenied].IsError {
		t.Error("permission message should be an error")
	}
}

func TestManager_ReloadNotifiesListeners(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	m, err := NewManagerAt(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewManagerAt() error = %v", err)
	}

	var calls atomic.Int32
	var gotLang atomic.Value
	m.OnReload(func(old, new *Config) {
		calls.Add(1)
		gotLang.Store(new.Subtitles.Language)
	})

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := m.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching() error = %v", err)
	}
	defer m.Stop()

	cfg := m.GetConfig()
	cfg.Subtitles.Language = "es"
	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	testutil.WaitForCondition(t, func() bool { return calls.Load() > 0 }, 3*time.Second)
	if gotLang.Load() != "es" {
		t.Errorf("listener saw language %v, want es", gotLang.Load())
	}
	if m.GetConfig().Subtitles.Language != "es" {
		t.Errorf("GetConfig() not updated")
	}
}

func TestManager_InvalidReloadKeepsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	m, err := NewManagerAt(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewManagerAt() error = %v", err)
	}

	called := false
	m.OnReload(func(old, new *Config) { called = true })

	if err := os.WriteFile(path, []byte("[subtitles]\nlanguage = \"klingon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if m.Reload() {
		t.Error("Reload() should reject invalid config")
	}
	if called {
		t.Error("listener should not run for invalid config")
	}
	if m.GetConfig().Subtitles.Language != "source" {
		t.Errorf("language = %q, want previous value", m.GetConfig().Subtitles.Language)
	}
}

func TestLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.General.LogLevel = "debug"
	if got := cfg.LogLevel().String(); got != "debug" {
		t.Errorf("LogLevel() = %s", got)
	}
	cfg.General.LogLevel = ""
	if got := cfg.LogLevel().String(); got != "info" {
		t.Errorf("LogLevel() = %s, want info", got)
	}
}
