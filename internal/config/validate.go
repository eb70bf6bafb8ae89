package config

import (
	"fmt"
	"net/url"

	"github.com/leonardotrapani/hyprcaptions/internal/language"
	"github.com/leonardotrapani/hyprcaptions/internal/subtitle"
)

func (c *Config) Validate() error {
	switch c.General.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid general.log_level: %s (must be debug, info, warn or error)", c.General.LogLevel)
	}

	if c.Capture.SampleRate <= 0 {
		return fmt.Errorf("invalid capture.sample_rate: %d", c.Capture.SampleRate)
	}
	if c.Capture.FrameSize <= 0 {
		return fmt.Errorf("invalid capture.frame_size: %d", c.Capture.FrameSize)
	}
	if c.Capture.FrameBuffer <= 0 {
		return fmt.Errorf("invalid capture.frame_buffer: %d", c.Capture.FrameBuffer)
	}
	if c.Capture.Video && c.Capture.VideoDevice == "" {
		return fmt.Errorf("invalid capture.video_device: empty while capture.video is enabled")
	}

	u, err := url.Parse(c.Transport.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("invalid transport.url: %q (must be ws:// or wss://)", c.Transport.URL)
	}
	if c.Transport.ReconnectDelay <= 0 {
		return fmt.Errorf("invalid transport.reconnect_delay: %v", c.Transport.ReconnectDelay)
	}
	if c.Transport.HandshakeTimeout <= 0 {
		return fmt.Errorf("invalid transport.handshake_timeout: %v", c.Transport.HandshakeTimeout)
	}
	if c.Transport.WriteTimeout <= 0 {
		return fmt.Errorf("invalid transport.write_timeout: %v", c.Transport.WriteTimeout)
	}

	if !language.IsValid(language.Code(c.Subtitles.Language)) {
		return fmt.Errorf("invalid subtitles.language: %s (must be source, ru, en, es or zh)", c.Subtitles.Language)
	}
	if !language.Supported(language.Code(c.Subtitles.Source)) {
		return fmt.Errorf("invalid subtitles.source: %s (must be ru, en or es)", c.Subtitles.Source)
	}
	if c.Subtitles.TranslationTimeout <= 0 {
		return fmt.Errorf("invalid subtitles.translation_timeout: %v", c.Subtitles.TranslationTimeout)
	}
	if err := validateDisplay(c.Subtitles.Display); err != nil {
		return err
	}

	if c.Summary.Interval <= 0 {
		return fmt.Errorf("invalid summary.interval: %v", c.Summary.Interval)
	}
	if c.Summary.Timeout <= 0 {
		return fmt.Errorf("invalid summary.timeout: %v", c.Summary.Timeout)
	}

	if c.Voice.Timeout <= 0 {
		return fmt.Errorf("invalid voice.timeout: %v", c.Voice.Timeout)
	}
	if len(c.Voice.Player) == 0 {
		return fmt.Errorf("invalid voice.player: empty")
	}

	if err := c.validateBackend(); err != nil {
		return err
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if c.Notifications.Enabled && !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	if c.MockServer.PhraseInterval < 0 {
		return fmt.Errorf("invalid mock_server.phrase_interval: %v", c.MockServer.PhraseInterval)
	}

	return nil
}

// validateDisplay rejects values a user typed that cannot be parsed; ranges
// are clamped later rather than rejected.
func validateDisplay(s subtitle.Settings) error {
	if _, err := subtitle.ParseRGBA(s.BackgroundColor); err != nil {
		return fmt.Errorf("invalid subtitles.display.background_color: %w", err)
	}
	if _, err := subtitle.ParseHex(s.TextColor); err != nil {
		return fmt.Errorf("invalid subtitles.display.text_color: %w", err)
	}
	if s.FontFamily == "" {
		return fmt.Errorf("invalid subtitles.display.font_family: empty")
	}
	return nil
}

func (c *Config) validateBackend() error {
	b := c.Backend
	check := func(key, value string, allowed ...string) error {
		if value == "" {
			return nil
		}
		for _, a := range allowed {
			if value == a {
				return nil
			}
		}
		return fmt.Errorf("invalid backend.%s: %s (must be one of %v)", key, value, allowed)
	}
	if err := check("translator", b.Translator, "http", "openai"); err != nil {
		return err
	}
	if err := check("summarizer", b.Summarizer, "http", "openai", "gemini"); err != nil {
		return err
	}
	if err := check("synthesizer", b.Synthesizer, "http", "openai"); err != nil {
		return err
	}

	usesHTTP := b.Translator == "http" || b.Summarizer == "http" || b.Synthesizer == "http" ||
		b.Translator == "" || b.Summarizer == "" || b.Synthesizer == ""
	if usesHTTP {
		u, err := url.Parse(b.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid backend.base_url: %q (must be http:// or https://)", b.BaseURL)
		}
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("invalid backend.timeout: %v", b.Timeout)
	}

	usesOpenAI := b.Translator == "openai" || b.Summarizer == "openai" || b.Synthesizer == "openai"
	if usesOpenAI && c.APIKey("openai") == "" {
		return fmt.Errorf("OpenAI API key required: not found in config (providers.openai.api_key) or environment variable (OPENAI_API_KEY)")
	}
	if b.Summarizer == "gemini" && c.APIKey("gemini") == "" {
		return fmt.Errorf("Gemini API key required: not found in config (providers.gemini.api_key) or environment variable (GEMINI_API_KEY)")
	}
	return nil
}
