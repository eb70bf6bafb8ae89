package config

import (
	"reflect"
	"time"

	"github.com/leonardotrapani/hyprcaptions/internal/notify"
	"github.com/leonardotrapani/hyprcaptions/internal/subtitle"
)

type GeneralConfig struct {
	LogLevel string `toml:"log_level"` // "debug", "info", "warn", "error"
	EnvFile  string `toml:"env_file"`  // extra .env file loaded before API keys are read
}

type Config struct {
	General       GeneralConfig             `toml:"general"`
	Capture       CaptureConfig             `toml:"capture"`
	Transport     TransportConfig           `toml:"transport"`
	Subtitles     SubtitlesConfig           `toml:"subtitles"`
	Summary       SummaryConfig             `toml:"summary"`
	Voice         VoiceConfig               `toml:"voice"`
	Backend       BackendConfig             `toml:"backend"`
	Providers     map[string]ProviderConfig `toml:"providers"`
	Notifications NotificationsConfig       `toml:"notifications"`
	MockServer    MockServerConfig          `toml:"mock_server"`
}

// ProviderConfig holds API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

type CaptureConfig struct {
	Video            bool   `toml:"video"`
	SampleRate       int    `toml:"sample_rate"`
	FrameSize        int    `toml:"frame_size"`
	AudioTarget      string `toml:"audio_target"`
	VideoDevice      string `toml:"video_device"`
	EchoCancellation bool   `toml:"echo_cancellation"`
	EchoCancelTarget string `toml:"echo_cancel_target"`
	NoiseSuppression bool   `toml:"noise_suppression"`
	FrameBuffer      int    `toml:"frame_buffer"`
}

type TransportConfig struct {
	URL              string        `toml:"url"`
	ReconnectDelay   time.Duration `toml:"reconnect_delay"`
	HandshakeTimeout time.Duration `toml:"handshake_timeout"`
	WriteTimeout     time.Duration `toml:"write_timeout"`
	EventBuffer      int           `toml:"event_buffer"`
}

type SubtitlesConfig struct {
	Language           string            `toml:"language"` // "source", "ru", "en", "es", "zh"
	Source             string            `toml:"source"`
	AutoVoice          bool              `toml:"auto_voice"`
	TranslationTimeout time.Duration     `toml:"translation_timeout"`
	FilterSubstrings   []string          `toml:"filter_substrings"`
	FilterExact        []string          `toml:"filter_exact"`
	Placeholder        string            `toml:"placeholder"`
	Display            subtitle.Settings `toml:"display"`
}

type SummaryConfig struct {
	Enabled  bool          `toml:"enabled"`
	Interval time.Duration `toml:"interval"`
	Timeout  time.Duration `toml:"timeout"`
}

type VoiceConfig struct {
	Serialize bool          `toml:"serialize"`
	Timeout   time.Duration `toml:"timeout"`
	Player    []string      `toml:"player"`
}

type BackendConfig struct {
	Translator  string        `toml:"translator"`  // "http", "openai"
	Summarizer  string        `toml:"summarizer"`  // "http", "openai", "gemini"
	Synthesizer string        `toml:"synthesizer"` // "http", "openai"
	BaseURL     string        `toml:"base_url"`
	Timeout     time.Duration `toml:"timeout"`
	OpenAIModel string        `toml:"openai_model"`
	OpenAIVoice string        `toml:"openai_voice"`
	GeminiModel string        `toml:"gemini_model"`
}

type MockServerConfig struct {
	Addr           string        `toml:"addr"`
	PhraseInterval time.Duration `toml:"phrase_interval"`
	JSON           bool          `toml:"json"`
}

type NotificationsConfig struct {
	Enabled  bool           `toml:"enabled"`
	Type     string         `toml:"type"` // "desktop", "log", "none"
	Messages MessagesConfig `toml:"messages"`
}

type MessageConfig struct {
	Title string `toml:"title"`
	Body  string `toml:"body"`
}

type MessagesConfig struct {
	SessionStarted   MessageConfig `toml:"session_started"`
	SessionStopped   MessageConfig `toml:"session_stopped"`
	PermissionDenied MessageConfig `toml:"permission_denied"`
	ConfigReloaded   MessageConfig `toml:"config_reloaded"`
	SummaryToggled   MessageConfig `toml:"summary_toggled"`
}

// Resolve merges user config with defaults from MessageDefs
func (m *MessagesConfig) Resolve() map[notify.MessageType]notify.Message {
	result := make(map[notify.MessageType]notify.Message)

	v := reflect.ValueOf(m).Elem()
	t := v.Type()
	tagToField := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		tagToField[t.Field(i).Tag.Get("toml")] = i
	}

	for _, def := range notify.MessageDefs {
		msg := notify.Message{
			Title:   def.DefaultTitle,
			Body:    def.DefaultBody,
			IsError: def.IsError,
		}
		if idx, ok := tagToField[def.ConfigKey]; ok {
			userMsg := v.Field(idx).Interface().(MessageConfig)
			if userMsg.Title != "" {
				msg.Title = userMsg.Title
			}
			if userMsg.Body != "" {
				msg.Body = userMsg.Body
			}
		}
		result[def.Type] = msg
	}
	return result
}
