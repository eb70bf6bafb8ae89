package backend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestNew_DefaultsToHTTP(t *testing.T) {
	set, err := New(context.Background(), DefaultConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := set.Translator.(*HTTPClient); !ok {
		t.Errorf("Translator = %T, want *HTTPClient", set.Translator)
	}
	if _, ok := set.Summarizer.(*HTTPClient); !ok {
		t.Errorf("Summarizer = %T, want *HTTPClient", set.Summarizer)
	}
	if _, ok := set.Synthesizer.(*HTTPClient); !ok {
		t.Errorf("Synthesizer = %T, want *HTTPClient", set.Synthesizer)
	}
}

func TestNew_OpenAI(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Translator = "openai"
	cfg.Synthesizer = "openai"
	cfg.OpenAIAPIKey = "test-key"

	set, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := set.Translator.(*OpenAIClient); !ok {
		t.Errorf("Translator = %T, want *OpenAIClient", set.Translator)
	}
	if set.Translator != Translator(set.Synthesizer.(*OpenAIClient)) {
		t.Error("openai collaborators should share one client")
	}
}

func TestNew_Errors(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown translator", func(c *Config) { c.Translator = "deepl" }, "unsupported translator"},
		{"unknown summarizer", func(c *Config) { c.Summarizer = "bard" }, "unsupported summarizer"},
		{"unknown synthesizer", func(c *Config) { c.Synthesizer = "say" }, "unsupported synthesizer"},
		{"openai without key", func(c *Config) { c.Translator = "openai" }, "OpenAI API key required"},
		{"gemini without key", func(c *Config) { c.Summarizer = "gemini" }, "Gemini API key required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(context.Background(), cfg, zaptest.NewLogger(t))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("New() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestError(t *testing.T) {
	inner := errors.New("dial failed")
	err := newError(OpSummarize, inner)

	if !errors.Is(err, inner) {
		t.Error("Error should unwrap to the cause")
	}
	if !IsSummarization(err) || IsTranslation(err) || IsTTS(err) {
		t.Errorf("op predicates wrong for %v", err)
	}
	if newError(OpTTS, nil) != nil {
		t.Error("newError(nil) should be nil")
	}
	if got := statusError(OpTTS, 503).Error(); !strings.Contains(got, "503") {
		t.Errorf("status error message = %q", got)
	}
}

func TestOpenAITranslateBlankIsNoop(t *testing.T) {
	c := NewOpenAIClient("test-key", "", "", zaptest.NewLogger(t))
	got, err := c.Translate(context.Background(), "   ", "Russian", "English")
	if err != nil || got != "   " {
		t.Errorf("Translate(blank) = %q, %v", got, err)
	}
}

func TestPrompts(t *testing.T) {
	p := BuildTranslationPrompt("Russian", "Spanish")
	for _, want := range []string{"Russian", "Spanish", "ONLY the translated text"} {
		if !strings.Contains(p, want) {
			t.Errorf("translation prompt missing %q", want)
		}
	}
	if !strings.Contains(BuildSummaryPrompt(), "summary") {
		t.Error("summary prompt should mention summary")
	}
}
