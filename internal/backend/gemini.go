package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiSummarizer implements Summarizer with Google's Gemini API.
type GeminiSummarizer struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiSummarizer(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiSummarizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiSummarizer{
		client: client,
		model:  model,
		logger: logger.Named("backend.gemini"),
	}, nil
}

func (g *GeminiSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(BuildSummaryPrompt(), genai.RoleUser),
		genai.NewContentFromText(content, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", newError(OpSummarize, fmt.Errorf("gemini generate: %w", err))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", newError(OpSummarize, errors.New("gemini generate: no candidates"))
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	summary := strings.TrimSpace(sb.String())
	if summary == "" {
		return "", newError(OpSummarize, errors.New("gemini generate: empty response"))
	}
	g.logger.Debug("summary generated", zap.Int("chars", len(summary)))
	return summary, nil
}
