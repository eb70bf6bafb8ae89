// Package backend implements the derived-task collaborators: translation,
// summarization and speech synthesis.
package backend

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

type Translator interface {
	// Translate converts text between languages given by full English names
	// ("Russian", "English").
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

type Synthesizer interface {
	// Synthesize returns an encoded audio payload for text spoken in language
	// (a short code such as "en").
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// Config selects and configures the implementation for each concern.
type Config struct {
	Translator  string // "http" or "openai"
	Summarizer  string // "http", "openai" or "gemini"
	Synthesizer string // "http" or "openai"

	BaseURL string
	Timeout time.Duration

	OpenAIAPIKey string
	OpenAIModel  string
	OpenAIVoice  string
	GeminiAPIKey string
	GeminiModel  string
}

func DefaultConfig() Config {
	return Config{
		Translator:  "http",
		Summarizer:  "http",
		Synthesizer: "http",
		BaseURL:     "http://localhost:8000",
		Timeout:     15 * time.Second,
		OpenAIModel: "gpt-4o-mini",
		OpenAIVoice: "alloy",
		GeminiModel: "gemini-2.0-flash",
	}
}

// Set bundles the three collaborators a session uses.
type Set struct {
	Translator  Translator
	Summarizer  Summarizer
	Synthesizer Synthesizer
}

// New builds the collaborators named in cfg.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}

	var httpClient *HTTPClient
	httpBackend := func() *HTTPClient {
		if httpClient == nil {
			httpClient = NewHTTPClient(cfg.BaseURL, cfg.Timeout, logger)
		}
		return httpClient
	}
	var openaiClient *OpenAIClient
	openaiBackend := func() (*OpenAIClient, error) {
		if openaiClient != nil {
			return openaiClient, nil
		}
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required: set providers.openai.api_key or OPENAI_API_KEY")
		}
		openaiClient = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIVoice, logger)
		return openaiClient, nil
	}

	set := &Set{}

	switch cfg.Translator {
	case "", "http":
		set.Translator = httpBackend()
	case "openai":
		c, err := openaiBackend()
		if err != nil {
			return nil, err
		}
		set.Translator = c
	default:
		return nil, fmt.Errorf("unsupported translator: %s", cfg.Translator)
	}

	switch cfg.Summarizer {
	case "", "http":
		set.Summarizer = httpBackend()
	case "openai":
		c, err := openaiBackend()
		if err != nil {
			return nil, err
		}
		set.Summarizer = c
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("Gemini API key required: set providers.gemini.api_key or GEMINI_API_KEY")
		}
		g, err := NewGeminiSummarizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, err
		}
		set.Summarizer = g
	default:
		return nil, fmt.Errorf("unsupported summarizer: %s", cfg.Summarizer)
	}

	switch cfg.Synthesizer {
	case "", "http":
		set.Synthesizer = httpBackend()
	case "openai":
		c, err := openaiBackend()
		if err != nil {
			return nil, err
		}
		set.Synthesizer = c
	default:
		return nil, fmt.Errorf("unsupported synthesizer: %s", cfg.Synthesizer)
	}

	return set, nil
}
