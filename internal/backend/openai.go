package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient implements Translator, Summarizer and Synthesizer using
// OpenAI chat completions and the speech endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
	voice  string
	logger *zap.Logger
}

func NewOpenAIClient(apiKey, model, voice string, logger *zap.Logger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
		voice:  voice,
		logger: logger.Named("backend.openai"),
	}
}

func (c *OpenAIClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	out, err := c.complete(ctx, BuildTranslationPrompt(sourceLang, targetLang), text)
	if err != nil {
		return "", newError(OpTranslate, err)
	}
	return out, nil
}

func (c *OpenAIClient) Summarize(ctx context.Context, content string) (string, error) {
	out, err := c.complete(ctx, BuildSummaryPrompt(), content)
	if err != nil {
		return "", newError(OpSummarize, err)
	}
	return out, nil
}

func (c *OpenAIClient) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.SpeechVoice(c.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, newError(OpTTS, fmt.Errorf("openai speech: %w", err))
	}
	defer resp.Close()

	audio, err := io.ReadAll(io.LimitReader(resp, maxAudioBytes))
	if err != nil {
		return nil, newError(OpTTS, fmt.Errorf("read speech: %w", err))
	}
	c.logger.Debug("speech synthesized", zap.String("language", language), zap.Int("bytes", len(audio)))
	return audio, nil
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.2,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Debug("chat completion failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion: no response choices")
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("chat completion", zap.Duration("elapsed", time.Since(start)), zap.Int("chars", len(out)))
	return out, nil
}
