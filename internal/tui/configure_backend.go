package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprcaptions/internal/config"
)

// providerDisplayNames maps provider IDs to human-readable names
var providerDisplayNames = map[string]string{
	"http":   "Caption backend (HTTP)",
	"openai": "OpenAI",
	"gemini": "Google Gemini",
}

func getProviderDisplayName(providerName string) string {
	if name, ok := providerDisplayNames[providerName]; ok {
		return name
	}
	return providerName
}

func backendOptions(names ...string) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(names))
	for _, n := range names {
		options = append(options, huh.NewOption(getProviderDisplayName(n), n))
	}
	return options
}

func editBackend(cfg *config.Config) error {
	b := cfg.Backend
	wsURL := cfg.Transport.URL

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Transcription WebSocket").
				Description("ws:// or wss:// endpoint that receives audio").
				Value(&wsURL).
				Validate(validateScheme("ws", "wss")),
			huh.NewInput().
				Title("Backend URL").
				Description("Base URL of /api/translate, /api/summarize and /api/tts").
				Value(&b.BaseURL).
				Validate(validateScheme("http", "https")),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Translation").
				Options(backendOptions("http", "openai")...).
				Value(&b.Translator),
			huh.NewSelect[string]().
				Title("Summaries").
				Options(backendOptions("http", "openai", "gemini")...).
				Value(&b.Summarizer),
			huh.NewSelect[string]().
				Title("Speech").
				Options(backendOptions("http", "openai")...).
				Value(&b.Synthesizer),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Backend = b
	cfg.Transport.URL = wsURL

	for _, name := range requiredProviders(b) {
		if err := configureProviderKey(cfg, name); err != nil {
			return err
		}
	}
	return nil
}

// requiredProviders lists the API-key providers the backend selection uses.
func requiredProviders(b config.BackendConfig) []string {
	var out []string
	if b.Translator == "openai" || b.Summarizer == "openai" || b.Synthesizer == "openai" {
		out = append(out, "openai")
	}
	if b.Summarizer == "gemini" {
		out = append(out, "gemini")
	}
	return out
}

func configureProviderKey(cfg *config.Config, name string) error {
	current := cfg.Providers[name].APIKey
	desc := "Leave empty to use the environment variable"
	if current != "" {
		desc = fmt.Sprintf("Current: %s. Leave empty to keep", maskAPIKey(current))
	}

	var apiKey string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(getProviderDisplayName(name) + " API Key").
				Description(desc).
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]config.ProviderConfig)
	}
	cfg.Providers[name] = config.ProviderConfig{APIKey: apiKey}
	return nil
}
