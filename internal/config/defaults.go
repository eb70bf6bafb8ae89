package config

import (
	"github.com/leonardotrapani/hyprcaptions/internal/backend"
	"github.com/leonardotrapani/hyprcaptions/internal/capture"
	"github.com/leonardotrapani/hyprcaptions/internal/mockserver"
	"github.com/leonardotrapani/hyprcaptions/internal/subtitle"
	"github.com/leonardotrapani/hyprcaptions/internal/summary"
	"github.com/leonardotrapani/hyprcaptions/internal/transport"
	"github.com/leonardotrapani/hyprcaptions/internal/voice"
)

// DefaultConfig returns the configuration written on first start.
func DefaultConfig() *Config {
	c := capture.DefaultConstraints()
	t := transport.DefaultConfig()
	s := subtitle.DefaultConfig()
	sum := summary.DefaultConfig()
	v := voice.DefaultConfig()
	b := backend.DefaultConfig()
	m := mockserver.DefaultConfig()

	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Capture: CaptureConfig{
			Video:            c.Video,
			SampleRate:       c.SampleRate,
			FrameSize:        c.FrameSize,
			AudioTarget:      c.AudioTarget,
			VideoDevice:      c.VideoDevice,
			EchoCancellation: c.EchoCancellation,
			EchoCancelTarget: c.EchoCancelTarget,
			NoiseSuppression: c.NoiseSuppression,
			FrameBuffer:      c.FrameBuffer,
		},
		Transport: TransportConfig{
			URL:              t.URL,
			ReconnectDelay:   t.ReconnectDelay,
			HandshakeTimeout: t.HandshakeTimeout,
			WriteTimeout:     t.WriteTimeout,
			EventBuffer:      t.EventBuffer,
		},
		Subtitles: SubtitlesConfig{
			Language:           string(s.Language),
			Source:             string(s.Source),
			AutoVoice:          false,
			TranslationTimeout: s.TranslationTimeout,
			FilterSubstrings:   s.Filter.Substrings,
			FilterExact:        s.Filter.Exact,
			Placeholder:        s.Filter.Placeholder,
			Display:            subtitle.DefaultSettings(),
		},
		Summary: SummaryConfig{
			Enabled:  false,
			Interval: sum.Interval,
			Timeout:  sum.Timeout,
		},
		Voice: VoiceConfig{
			Serialize: v.Serialize,
			Timeout:   v.Timeout,
			Player:    append([]string(nil), voice.DefaultPlayerCommand...),
		},
		Backend: BackendConfig{
			Translator:  b.Translator,
			Summarizer:  b.Summarizer,
			Synthesizer: b.Synthesizer,
			BaseURL:     b.BaseURL,
			Timeout:     b.Timeout,
			OpenAIModel: b.OpenAIModel,
			OpenAIVoice: b.OpenAIVoice,
			GeminiModel: b.GeminiModel,
		},
		Providers: make(map[string]ProviderConfig),
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		MockServer: MockServerConfig{
			Addr:           m.Addr,
			PhraseInterval: m.PhraseInterval,
		},
	}
}
