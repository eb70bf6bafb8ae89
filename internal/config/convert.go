package config

import (
	"os"

	"github.com/leonardotrapani/hyprcaptions/internal/backend"
	"github.com/leonardotrapani/hyprcaptions/internal/capture"
	"github.com/leonardotrapani/hyprcaptions/internal/language"
	"github.com/leonardotrapani/hyprcaptions/internal/mockserver"
	"github.com/leonardotrapani/hyprcaptions/internal/session"
	"github.com/leonardotrapani/hyprcaptions/internal/subtitle"
	"github.com/leonardotrapani/hyprcaptions/internal/summary"
	"github.com/leonardotrapani/hyprcaptions/internal/transport"
	"github.com/leonardotrapani/hyprcaptions/internal/voice"
	"go.uber.org/zap"
)

var providerEnvVars = map[string]string{
	"openai": "OPENAI_API_KEY",
	"gemini": "GEMINI_API_KEY",
}

// APIKey returns the key for a provider from [providers.<name>] or its
// environment variable.
func (c *Config) APIKey(provider string) string {
	if c.Providers != nil {
		if pc, ok := c.Providers[provider]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}
	if envVar := providerEnvVars[provider]; envVar != "" {
		return os.Getenv(envVar)
	}
	return ""
}

func (c *Config) ToCaptureConstraints() capture.Constraints {
	return capture.Constraints{
		Video:            c.Capture.Video,
		SampleRate:       c.Capture.SampleRate,
		FrameSize:        c.Capture.FrameSize,
		AudioTarget:      c.Capture.AudioTarget,
		VideoDevice:      c.Capture.VideoDevice,
		EchoCancellation: c.Capture.EchoCancellation,
		EchoCancelTarget: c.Capture.EchoCancelTarget,
		NoiseSuppression: c.Capture.NoiseSuppression,
		FrameBuffer:      c.Capture.FrameBuffer,
	}
}

func (c *Config) ToTransportConfig() transport.Config {
	return transport.Config{
		URL:              c.Transport.URL,
		ReconnectDelay:   c.Transport.ReconnectDelay,
		HandshakeTimeout: c.Transport.HandshakeTimeout,
		WriteTimeout:     c.Transport.WriteTimeout,
		EventBuffer:      c.Transport.EventBuffer,
	}
}

func (c *Config) ToSubtitleConfig() subtitle.Config {
	return subtitle.Config{
		Language:           language.Code(c.Subtitles.Language),
		Source:             language.Code(c.Subtitles.Source),
		AutoVoice:          c.Subtitles.AutoVoice,
		TranslationTimeout: c.Subtitles.TranslationTimeout,
		Filter: subtitle.Filter{
			Substrings:  c.Subtitles.FilterSubstrings,
			Exact:       c.Subtitles.FilterExact,
			Placeholder: c.Subtitles.Placeholder,
		},
	}
}

func (c *Config) ToSessionConfig() session.Config {
	return session.Config{
		Capture:   c.ToCaptureConstraints(),
		Transport: c.ToTransportConfig(),
		Subtitles: c.ToSubtitleConfig(),
		Summary: summary.Config{
			Interval: c.Summary.Interval,
			Timeout:  c.Summary.Timeout,
		},
		SummaryEnabled: c.Summary.Enabled,
		Voice: voice.Config{
			Serialize: c.Voice.Serialize,
			Timeout:   c.Voice.Timeout,
		},
		Settings: c.Subtitles.Display.Clamp(),
	}
}

func (c *Config) ToBackendConfig() backend.Config {
	return backend.Config{
		Translator:   c.Backend.Translator,
		Summarizer:   c.Backend.Summarizer,
		Synthesizer:  c.Backend.Synthesizer,
		BaseURL:      c.Backend.BaseURL,
		Timeout:      c.Backend.Timeout,
		OpenAIAPIKey: c.APIKey("openai"),
		OpenAIModel:  c.Backend.OpenAIModel,
		OpenAIVoice:  c.Backend.OpenAIVoice,
		GeminiAPIKey: c.APIKey("gemini"),
		GeminiModel:  c.Backend.GeminiModel,
	}
}

func (c *Config) ToMockServerConfig() mockserver.Config {
	cfg := mockserver.DefaultConfig()
	if c.MockServer.Addr != "" {
		cfg.Addr = c.MockServer.Addr
	}
	if c.MockServer.PhraseInterval > 0 {
		cfg.PhraseInterval = c.MockServer.PhraseInterval
	}
	cfg.JSON = c.MockServer.JSON
	cfg.SampleRate = c.Capture.SampleRate
	return cfg
}

// LogLevel returns the configured zap level, defaulting to info.
func (c *Config) LogLevel() zap.AtomicLevel {
	level, err := zap.ParseAtomicLevel(c.General.LogLevel)
	if err != nil {
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return level
}
